package pdf

import (
	"sort"
	"strings"

	"github.com/AdrianPopi/acont/internal/config"
	creditnotedomain "github.com/AdrianPopi/acont/internal/creditnote/domain"
	"github.com/AdrianPopi/acont/internal/document"
	invoicedomain "github.com/AdrianPopi/acont/internal/invoice/domain"
	"github.com/AdrianPopi/acont/internal/totals"
	"github.com/shopspring/decimal"
)

type Party struct {
	Name    string
	Address string
	TaxID   string
	Email   string
	IBAN    string
}

type Line struct {
	Code        string
	Description string
	Quantity    string
	UnitPrice   string
	VATRate     string
	Net         string
}

type VATEntry struct {
	Rate string
	Base string
	VAT  string
}

// Document is the printable form of an invoice or credit note. Every amount
// is already formatted for display.
type Document struct {
	Kind          document.DocType
	Language      string
	Template      string
	Number        string
	IssueDate     string
	DueDate       string
	SourceNumber  string
	Seller        Party
	Client        Party
	Lines         []Line
	Totals        totals.Summary
	VAT           []VATEntry
	Communication string
	Notes         string
}

func SellerFromConfig(cfg config.SellerConfig) Party {
	return Party{
		Name:    cfg.Name,
		Address: cfg.Address,
		TaxID:   cfg.TaxID,
		Email:   cfg.Email,
		IBAN:    cfg.IBAN,
	}
}

func FromInvoice(detail invoicedomain.Detail, seller Party) Document {
	inv := detail.Invoice
	doc := Document{
		Kind:          document.DocTypeInvoice,
		Language:      inv.Language,
		Template:      inv.Template,
		Number:        detail.DisplayNumber,
		IssueDate:     inv.IssueDate.Format(document.DateLayout),
		Seller:        seller,
		Client:        Party{Name: inv.ClientName, Address: inv.ClientAddress, TaxID: inv.ClientTaxID, Email: inv.ClientEmail},
		Totals:        detail.Totals,
		VAT:           vatEntries(detail.Totals),
		Communication: inv.CommunicationReference,
		Notes:         inv.Notes,
	}
	if inv.DueDate != nil {
		doc.DueDate = inv.DueDate.Format(document.DateLayout)
	}
	for _, it := range detail.Items {
		doc.Lines = append(doc.Lines, line(it.ItemCode, it.Description, it.Quantity, it.UnitPrice, it.VATRate, it.LineNet))
	}
	return doc
}

func FromCreditNote(detail creditnotedomain.Detail, seller Party) Document {
	cn := detail.CreditNote
	doc := Document{
		Kind:          document.DocTypeCreditNote,
		Language:      cn.Language,
		Template:      cn.Template,
		Number:        detail.DisplayNumber,
		IssueDate:     cn.IssueDate.Format(document.DateLayout),
		SourceNumber:  detail.InvoiceNo,
		Seller:        seller,
		Client:        Party{Name: cn.ClientName, Address: cn.ClientAddress, TaxID: cn.ClientTaxID, Email: cn.ClientEmail},
		Totals:        detail.Totals,
		VAT:           vatEntries(detail.Totals),
		Communication: cn.CommunicationReference,
		Notes:         cn.Notes,
	}
	for _, it := range detail.Items {
		doc.Lines = append(doc.Lines, line(it.ItemCode, it.Description, it.Quantity, it.UnitPrice, it.VATRate, it.LineNet))
	}
	return doc
}

func line(code, description string, qty, price, rate, net decimal.Decimal) Line {
	return Line{
		Code:        code,
		Description: description,
		Quantity:    qty.String(),
		UnitPrice:   totals.Display(price),
		VATRate:     totals.RateKey(rate) + "%",
		Net:         totals.Display(net),
	}
}

// vatEntries orders the breakdown by ascending rate.
func vatEntries(summary totals.Summary) []VATEntry {
	rates := make([]string, 0, len(summary.VATBreakdown))
	for rate := range summary.VATBreakdown {
		rates = append(rates, rate)
	}
	sort.Slice(rates, func(i, j int) bool {
		a, errA := decimal.NewFromString(rates[i])
		b, errB := decimal.NewFromString(rates[j])
		if errA != nil || errB != nil {
			return strings.Compare(rates[i], rates[j]) < 0
		}
		return a.LessThan(b)
	})

	out := make([]VATEntry, 0, len(rates))
	for _, rate := range rates {
		entry := summary.VATBreakdown[rate]
		out = append(out, VATEntry{Rate: rate + "%", Base: entry.Base, VAT: entry.VAT})
	}
	return out
}
