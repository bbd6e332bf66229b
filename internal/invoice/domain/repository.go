package domain

import (
	"context"
	"time"

	"github.com/AdrianPopi/acont/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	Status   string
	ClientID *snowflake.ID
	Year     int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice, items []InvoiceItem) error
	FindByID(ctx context.Context, db *gorm.DB, merchantID, id snowflake.ID) (*Invoice, error)
	// FindForUpdate loads the invoice under a row lock held until the
	// transaction ends.
	FindForUpdate(ctx context.Context, db *gorm.DB, merchantID, id snowflake.ID) (*Invoice, error)
	ListItems(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]InvoiceItem, error)
	List(ctx context.Context, db *gorm.DB, merchantID snowflake.ID, filter ListFilter, page pagination.Pagination) ([]*Invoice, error)
	ListIssuedForClient(ctx context.Context, db *gorm.DB, merchantID, clientID snowflake.ID) ([]Invoice, error)
	// LastIssuedDate returns the issue date of the most recent numbered
	// invoice of the merchant, or nil when none was issued yet.
	LastIssuedDate(ctx context.Context, db *gorm.DB, merchantID snowflake.ID) (*time.Time, error)
	Update(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	Delete(ctx context.Context, db *gorm.DB, merchantID, id snowflake.ID) error
}
