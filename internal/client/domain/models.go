package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Client struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	MerchantID snowflake.ID `gorm:"not null;index" json:"merchant_id"`
	Name       string       `gorm:"size:256;not null" json:"name"`
	Email      string       `gorm:"size:256" json:"email,omitempty"`
	TaxID      string       `gorm:"size:64" json:"tax_id,omitempty"`
	Address    string       `gorm:"size:512" json:"address,omitempty"`
	CreatedAt  time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null" json:"updated_at"`
}

func (Client) TableName() string { return "clients" }
