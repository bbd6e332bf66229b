package domain

import (
	"time"

	"github.com/AdrianPopi/acont/internal/document"
	invoicedomain "github.com/AdrianPopi/acont/internal/invoice/domain"
	"github.com/AdrianPopi/acont/internal/invoice/format"
	"github.com/AdrianPopi/acont/internal/totals"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// LineOverride credits a single source line, optionally with a smaller
// quantity. Quantity is positive and expressed in source units.
type LineOverride struct {
	SourceItemID snowflake.ID     `json:"source_item_id"`
	Quantity     *decimal.Decimal `json:"quantity"`
}

// Options carries everything NewFromInvoice needs besides the source.
type Options struct {
	NewID                  func() snowflake.ID
	IssueDate              time.Time
	Now                    time.Time
	Language               string
	Template               string
	CommunicationMode      string
	CommunicationReference string
	Notes                  string
	Metadata               map[string]any
	// Lines restricts the credit to a subset of source lines. Empty credits
	// every line in full.
	Lines []LineOverride
}

// Draft is a fully formed credit note that has not been persisted.
type Draft struct {
	CreditNote CreditNote
	Items      []CreditNoteItem
	Result     totals.Result
}

// NewFromInvoice builds a draft credit note reversing the given source
// invoice. The client snapshot is copied and every credited line is negated
// and passed through the calculator with the source discount, so a full
// credit mirrors the source amounts exactly.
func NewFromInvoice(source invoicedomain.Detail, opts Options) (Draft, error) {
	inv := source.Invoice
	if inv.Status != document.StatusIssued {
		return Draft{}, ErrSourceInvoiceNotFound
	}
	if opts.NewID == nil {
		return Draft{}, ErrMissingIDGenerator
	}

	selected, err := selectLines(source.Items, opts.Lines)
	if err != nil {
		return Draft{}, err
	}

	language := opts.Language
	if language == "" {
		language = inv.Language
	}

	cn := CreditNote{
		ID:              opts.NewID(),
		MerchantID:      inv.MerchantID,
		InvoiceID:       inv.ID,
		ClientID:        inv.ClientID,
		Status:          document.StatusDraft,
		Year:            opts.IssueDate.Year(),
		IssueDate:       document.Date(opts.IssueDate),
		Language:        document.NormalizeLanguage(language),
		Currency:        inv.Currency,
		ClientName:      inv.ClientName,
		ClientEmail:     inv.ClientEmail,
		ClientTaxID:     inv.ClientTaxID,
		ClientAddress:   inv.ClientAddress,
		DiscountPercent: inv.DiscountPercent,
		Template:        document.NormalizeTemplate(opts.Template),
		Notes:           document.Clip(opts.Notes, document.MaxNotesLen),
		Metadata:        datatypes.JSONMap{"source_invoice_no": inv.InvoiceNo},
		CreatedAt:       opts.Now,
		UpdatedAt:       opts.Now,
	}
	for k, v := range opts.Metadata {
		cn.Metadata[k] = v
	}
	if err := applyCommunication(&cn, opts); err != nil {
		return Draft{}, err
	}

	inputs := make([]totals.LineInput, 0, len(selected))
	for _, l := range selected {
		inputs = append(inputs, totals.LineInput{Quantity: l.quantity, UnitPrice: l.item.UnitPrice, VATRate: l.item.VATRate})
	}
	result := totals.Compute(totals.Negate(inputs), inv.DiscountPercent, decimal.Zero)

	items := make([]CreditNoteItem, 0, len(selected))
	for i, l := range selected {
		sourceID := l.item.ID
		line := result.Lines[i]
		items = append(items, CreditNoteItem{
			ID:           opts.NewID(),
			CreditNoteID: cn.ID,
			SourceItemID: &sourceID,
			Position:     i + 1,
			ItemCode:     l.item.ItemCode,
			Description:  l.item.Description,
			Quantity:     line.Quantity,
			UnitPrice:    line.UnitPrice,
			VATRate:      line.VATRate,
			LineNet:      line.Net,
			LineVAT:      line.VAT,
			LineGross:    line.Gross,
			CreatedAt:    opts.Now,
		})
	}
	cn.SubtotalNet = result.SubtotalNet
	cn.VATTotal = result.VATTotal
	cn.TotalGross = result.TotalGross

	return Draft{CreditNote: cn, Items: items, Result: result}, nil
}

type selectedLine struct {
	item     invoicedomain.InvoiceItem
	quantity decimal.Decimal
}

func selectLines(items []invoicedomain.InvoiceItem, overrides []LineOverride) ([]selectedLine, error) {
	if len(overrides) == 0 {
		out := make([]selectedLine, 0, len(items))
		for _, it := range items {
			out = append(out, selectedLine{item: it, quantity: it.Quantity})
		}
		return out, nil
	}

	byID := make(map[snowflake.ID]invoicedomain.InvoiceItem, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}

	seen := make(map[snowflake.ID]struct{}, len(overrides))
	out := make([]selectedLine, 0, len(overrides))
	for _, o := range overrides {
		it, ok := byID[o.SourceItemID]
		if !ok {
			return nil, ErrUnknownSourceLine
		}
		if _, dup := seen[o.SourceItemID]; dup {
			return nil, ErrDuplicateSourceLine
		}
		seen[o.SourceItemID] = struct{}{}

		qty := it.Quantity
		if o.Quantity != nil {
			qty = totals.Round(*o.Quantity)
		}
		// a partial credit keeps the sign of the invoiced line
		if qty.Sign() != it.Quantity.Sign() || qty.Abs().GreaterThan(it.Quantity.Abs()) {
			return nil, ErrInvalidCreditQuantity
		}
		out = append(out, selectedLine{item: it, quantity: qty})
	}
	return out, nil
}

func applyCommunication(cn *CreditNote, opts Options) error {
	if normalizeMode(opts.CommunicationMode) != invoicedomain.CommunicationStructured {
		cn.CommunicationMode = invoicedomain.CommunicationSimple
		return nil
	}
	cn.CommunicationMode = invoicedomain.CommunicationStructured
	if opts.CommunicationReference == "" {
		// derived from the number at issuance
		return nil
	}
	if !format.ValidStructuredReference(opts.CommunicationReference) {
		return invoicedomain.ErrInvalidReference
	}
	cn.CommunicationReference = opts.CommunicationReference
	return nil
}
