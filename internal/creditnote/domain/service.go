package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AdrianPopi/acont/internal/document"
	invoicedomain "github.com/AdrianPopi/acont/internal/invoice/domain"
	"github.com/AdrianPopi/acont/internal/totals"
	"github.com/AdrianPopi/acont/pkg/db/pagination"
)

type CreateRequest struct {
	InvoiceID              string         `json:"invoice_id"`
	IssueDate              string         `json:"issue_date"`
	Language               string         `json:"language"`
	Template               string         `json:"template"`
	CommunicationMode      string         `json:"communication_mode"`
	CommunicationReference string         `json:"communication_reference"`
	Notes                  string         `json:"notes"`
	Metadata               map[string]any `json:"metadata"`
	Lines                  []LineOverride `json:"lines"`
	IssueNow               *bool          `json:"issue_now"`
}

type ListRequest struct {
	pagination.Pagination
	Status    string `form:"status"`
	InvoiceID string `form:"invoice_id"`
	Year      int    `form:"year"`
}

type ListResponse struct {
	pagination.PageInfo
	CreditNotes []Summary `json:"credit_notes"`
}

type Summary struct {
	ID            string `json:"id"`
	InvoiceID     string `json:"invoice_id"`
	CreditNoteNo  string `json:"credit_note_no"`
	DisplayNumber string `json:"display_number"`
	Status        string `json:"status"`
	IssueDate     string `json:"issue_date"`
	ClientName    string `json:"client_name"`
	TotalGross    string `json:"total_gross"`
}

type Detail struct {
	CreditNote    CreditNote       `json:"credit_note"`
	Items         []CreditNoteItem `json:"items"`
	DisplayNumber string           `json:"display_number"`
	InvoiceNo     string           `json:"invoice_no"`
	Totals        totals.Summary   `json:"totals"`
	Result        totals.Result    `json:"-"`
}

type Meta struct {
	LastIssuedDate *string `json:"last_issued_date"`
	NextNumber     string  `json:"next_number"`
	Year           int     `json:"year"`
}

type Service interface {
	// EligibleInvoices lists the issued invoices of a client that can be
	// credited.
	EligibleInvoices(ctx context.Context, clientID string) ([]invoicedomain.Summary, error)
	// SourceInvoice returns an issued invoice with its items, ready to be
	// credited. Invoices in any other status are reported as not found.
	SourceInvoice(ctx context.Context, invoiceID string) (invoicedomain.Detail, error)
	Create(ctx context.Context, req CreateRequest) (Detail, error)
	Issue(ctx context.Context, id string) (Detail, error)
	Void(ctx context.Context, id string, reason string) (Detail, error)
	DeleteDraft(ctx context.Context, id string) error
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	Get(ctx context.Context, id string) (Detail, error)
	Meta(ctx context.Context, issueDate *time.Time) (Meta, error)
}

var (
	ErrSourceInvoiceNotFound = fmt.Errorf("source invoice %w", document.ErrNotFound)
	ErrUnknownSourceLine     = document.NewValidationError("lines", "unknown_source_line", "line does not belong to the source invoice")
	ErrDuplicateSourceLine   = document.NewValidationError("lines", "duplicate_source_line", "source line credited twice")
	ErrInvalidCreditQuantity = document.NewValidationError("quantity", "invalid_quantity", "credited quantity must keep the sign of the invoiced quantity and not exceed it")
	ErrMissingIDGenerator    = errors.New("missing_id_generator")
)

func normalizeMode(mode string) string {
	return strings.ToLower(strings.TrimSpace(mode))
}
