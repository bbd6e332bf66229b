package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Product is a merchant catalogue entry used to prefill invoice lines.
type Product struct {
	ID          snowflake.ID    `json:"id" gorm:"primaryKey"`
	MerchantID  snowflake.ID    `json:"merchant_id" gorm:"not null;index"`
	Code        string          `json:"code,omitempty" gorm:"size:64"`
	Name        string          `json:"name" gorm:"size:256;not null"`
	Description string          `json:"description,omitempty" gorm:"size:512"`
	UnitPrice   decimal.Decimal `json:"unit_price" gorm:"type:numeric(18,6);not null"`
	VATRate     decimal.Decimal `json:"vat_rate" gorm:"type:numeric(9,4);not null"`
	CreatedAt   time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time       `json:"updated_at" gorm:"not null"`
}

func (Product) TableName() string { return "products" }
