package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/AdrianPopi/acont/internal/document"
	"github.com/AdrianPopi/acont/internal/totals"
	"github.com/AdrianPopi/acont/pkg/db/pagination"
	"github.com/shopspring/decimal"
)

type ItemInput struct {
	ProductID   string           `json:"product_id"`
	ItemCode    string           `json:"item_code"`
	Description string           `json:"description"`
	Quantity    decimal.Decimal  `json:"quantity"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
	VATRate     *decimal.Decimal `json:"vat_rate"`
}

type CreateRequest struct {
	ClientID      string `json:"client_id"`
	ClientName    string `json:"client_name"`
	ClientEmail   string `json:"client_email"`
	ClientTaxID   string `json:"client_tax_id"`
	ClientAddress string `json:"client_address"`

	// IssueDate and DueDate are YYYY-MM-DD. IssueDate defaults to today.
	IssueDate string `json:"issue_date"`
	DueDate   string `json:"due_date"`

	Language string `json:"language"`
	Currency string `json:"currency"`

	DiscountPercent decimal.Decimal `json:"discount_percent"`
	AdvancePaid     decimal.Decimal `json:"advance_paid"`

	CommunicationMode      string `json:"communication_mode"`
	CommunicationReference string `json:"communication_reference"`
	Template               string `json:"template"`
	Notes                  string `json:"notes"`

	Metadata map[string]any `json:"metadata"`
	Items    []ItemInput    `json:"items"`

	// IssueNow allocates a number within the create transaction. Nil means true.
	IssueNow *bool `json:"issue_now"`
}

type ListRequest struct {
	pagination.Pagination
	Status   string
	ClientID string
	Year     int
}

type ListResponse struct {
	pagination.PageInfo
	Invoices []Summary `json:"invoices"`
}

// Summary is the list projection of an invoice.
type Summary struct {
	ID            string `json:"id"`
	InvoiceNo     string `json:"invoice_no"`
	DisplayNumber string `json:"display_number"`
	Status        string `json:"status"`
	IssueDate     string `json:"issue_date"`
	DueDate       string `json:"due_date,omitempty"`
	ClientName    string `json:"client_name"`
	TotalGross    string `json:"total_gross"`
	AdvancePaid   string `json:"advance_paid"`
}

// Detail is an invoice with its items and totals rebuilt from the items.
type Detail struct {
	Invoice       Invoice        `json:"invoice"`
	Items         []InvoiceItem  `json:"items"`
	DisplayNumber string         `json:"display_number"`
	Totals        totals.Summary `json:"totals"`
	Result        totals.Result  `json:"-"`
}

// Meta previews numbering state for the year of an issue date.
type Meta struct {
	LastIssuedDate *string `json:"last_issued_date"`
	NextNumber     string  `json:"next_number"`
	Year           int     `json:"year"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (Detail, error)
	Issue(ctx context.Context, id string) (Detail, error)
	MarkPaid(ctx context.Context, id string) (Detail, error)
	Void(ctx context.Context, id string, reason string) (Detail, error)
	DeleteDraft(ctx context.Context, id string) error
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	Get(ctx context.Context, id string) (Detail, error)
	Meta(ctx context.Context, issueDate *time.Time) (Meta, error)
	ListIssuedForClient(ctx context.Context, clientID string) ([]Summary, error)
}

var (
	ErrInvalidClientName = document.NewValidationError("client_name", "invalid_client_name", "client name is required")
	ErrInvalidAdvance    = document.NewValidationError("advance_paid", "invalid_advance_paid", "advance paid cannot be negative")
	ErrInvalidReference  = document.NewValidationError("communication_reference", "invalid_communication_reference", "invalid structured communication")
	ErrClientNotFound    = fmt.Errorf("client %w", document.ErrNotFound)
	ErrProductNotFound   = fmt.Errorf("product %w", document.ErrNotFound)
)
