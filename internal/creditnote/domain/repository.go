package domain

import (
	"context"
	"time"

	"github.com/AdrianPopi/acont/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ListFilter struct {
	Status    string
	InvoiceID *snowflake.ID
	Year      int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, note *CreditNote, items []CreditNoteItem) error
	FindByID(ctx context.Context, db *gorm.DB, merchantID, id snowflake.ID) (*CreditNote, error)
	FindForUpdate(ctx context.Context, db *gorm.DB, merchantID, id snowflake.ID) (*CreditNote, error)
	ListItems(ctx context.Context, db *gorm.DB, creditNoteID snowflake.ID) ([]CreditNoteItem, error)
	List(ctx context.Context, db *gorm.DB, merchantID snowflake.ID, filter ListFilter, page pagination.Pagination) ([]*CreditNote, error)
	// LastIssuedDate returns the issue date of the most recent numbered
	// credit note of the merchant.
	LastIssuedDate(ctx context.Context, db *gorm.DB, merchantID snowflake.ID) (*time.Time, error)
	// IssuedGrossForInvoice returns the gross amounts of every issued
	// credit note referencing the invoice. Values are negative.
	IssuedGrossForInvoice(ctx context.Context, db *gorm.DB, merchantID, invoiceID snowflake.ID) ([]decimal.Decimal, error)
	Update(ctx context.Context, db *gorm.DB, note *CreditNote) error
	Delete(ctx context.Context, db *gorm.DB, merchantID, id snowflake.ID) error
}
