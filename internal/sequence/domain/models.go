package domain

import (
	"time"

	"github.com/AdrianPopi/acont/internal/document"
	"github.com/bwmarrin/snowflake"
)

// Counter is the persisted next number for one (merchant, year, doc type) key.
type Counter struct {
	MerchantID snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"merchant_id"`
	Year       int          `gorm:"primaryKey;autoIncrement:false" json:"year"`
	DocType    string       `gorm:"primaryKey;size:32" json:"doc_type"`
	NextNumber int64        `gorm:"not null;default:1" json:"next_number"`
	CreatedAt  time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null" json:"updated_at"`
}

func (Counter) TableName() string { return "document_sequences" }

type Key struct {
	MerchantID snowflake.ID
	Year       int
	DocType    document.DocType
}

func (k Key) Valid() bool {
	return k.MerchantID != 0 && k.Year > 0 && k.DocType.Valid()
}
