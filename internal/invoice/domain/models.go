// Package domain contains persistence models for invoicing.
package domain

import (
	"time"

	"github.com/AdrianPopi/acont/internal/document"
	"github.com/AdrianPopi/acont/internal/totals"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	CommunicationSimple     = "simple"
	CommunicationStructured = "structured"
)

// Invoice is a merchant-issued sales document. The client block is a snapshot
// taken at creation time.
type Invoice struct {
	ID                     snowflake.ID      `gorm:"primaryKey" json:"id"`
	MerchantID             snowflake.ID      `gorm:"not null;index;uniqueIndex:ux_invoices_number,priority:1" json:"merchant_id"`
	ClientID               *snowflake.ID     `gorm:"index" json:"client_id,omitempty"`
	Status                 document.Status   `gorm:"size:16;not null;index" json:"status"`
	Series                 string            `gorm:"size:16;not null" json:"series"`
	Year                   int               `gorm:"not null;uniqueIndex:ux_invoices_number,priority:2" json:"year"`
	Number                 *int64            `gorm:"uniqueIndex:ux_invoices_number,priority:3" json:"number,omitempty"`
	InvoiceNo              string            `gorm:"size:64;not null" json:"invoice_no"`
	IssueDate              time.Time         `gorm:"type:date;not null;index" json:"issue_date"`
	DueDate                *time.Time        `gorm:"type:date" json:"due_date,omitempty"`
	Language               string            `gorm:"size:2;not null" json:"language"`
	Currency               string            `gorm:"size:3;not null" json:"currency"`
	ClientName             string            `gorm:"size:256;not null" json:"client_name"`
	ClientEmail            string            `gorm:"size:256" json:"client_email"`
	ClientTaxID            string            `gorm:"size:64" json:"client_tax_id"`
	ClientAddress          string            `gorm:"size:512" json:"client_address"`
	DiscountPercent        decimal.Decimal   `gorm:"type:numeric(9,4);not null" json:"discount_percent"`
	AdvancePaid            decimal.Decimal   `gorm:"type:numeric(18,6);not null" json:"advance_paid"`
	SubtotalNet            decimal.Decimal   `gorm:"type:numeric(18,6);not null" json:"subtotal_net"`
	VATTotal               decimal.Decimal   `gorm:"type:numeric(18,6);not null" json:"vat_total"`
	TotalGross             decimal.Decimal   `gorm:"type:numeric(18,6);not null" json:"total_gross"`
	CommunicationMode      string            `gorm:"size:16;not null" json:"communication_mode"`
	CommunicationReference string            `gorm:"size:32" json:"communication_reference"`
	Template               string            `gorm:"size:16;not null" json:"template"`
	Notes                  string            `gorm:"size:1024" json:"notes"`
	Metadata               datatypes.JSONMap `json:"metadata,omitempty"`
	IssuedAt               *time.Time        `json:"issued_at,omitempty"`
	PaidAt                 *time.Time        `json:"paid_at,omitempty"`
	VoidedAt               *time.Time        `json:"voided_at,omitempty"`
	CreatedAt              time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt              time.Time         `gorm:"not null" json:"updated_at"`
}

func (Invoice) TableName() string { return "invoices" }

// InvoiceItem is a line of an invoice. Amounts are derived from quantity,
// unit price, VAT rate and the invoice discount and are never edited.
type InvoiceItem struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	InvoiceID   snowflake.ID    `gorm:"not null;index" json:"invoice_id"`
	ProductID   *snowflake.ID   `json:"product_id,omitempty"`
	Position    int             `gorm:"not null" json:"position"`
	ItemCode    string          `gorm:"size:64" json:"item_code"`
	Description string          `gorm:"size:512" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:numeric(18,6);not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(18,6);not null" json:"unit_price"`
	VATRate     decimal.Decimal `gorm:"type:numeric(9,4);not null" json:"vat_rate"`
	LineNet     decimal.Decimal `gorm:"type:numeric(18,6);not null" json:"line_net"`
	LineVAT     decimal.Decimal `gorm:"type:numeric(18,6);not null" json:"line_vat"`
	LineGross   decimal.Decimal `gorm:"type:numeric(18,6);not null" json:"line_gross"`
	CreatedAt   time.Time       `gorm:"not null" json:"created_at"`
}

func (InvoiceItem) TableName() string { return "invoice_items" }

func (it InvoiceItem) Input() totals.LineInput {
	return totals.LineInput{Quantity: it.Quantity, UnitPrice: it.UnitPrice, VATRate: it.VATRate}
}

// Line restores the computed line from the persisted amounts.
func (it InvoiceItem) Line() totals.Line {
	return totals.Restore(it.Input(), it.LineNet, it.LineVAT, it.LineGross)
}

// Totals rebuilds the invoice aggregates from its persisted items.
func Totals(inv Invoice, items []InvoiceItem) totals.Result {
	lines := make([]totals.Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, it.Line())
	}
	return totals.Aggregate(lines, inv.AdvancePaid)
}
