package pdf

import (
	"bytes"
	"context"
	"testing"
	"time"

	creditnotedomain "github.com/AdrianPopi/acont/internal/creditnote/domain"
	"github.com/AdrianPopi/acont/internal/document"
	invoicedomain "github.com/AdrianPopi/acont/internal/invoice/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func invoiceDetail() invoicedomain.Detail {
	d := decimal.RequireFromString
	due := time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC)
	items := []invoicedomain.InvoiceItem{
		{Position: 1, Description: "Consulting", Quantity: d("2"), UnitPrice: d("100"), VATRate: d("21"), LineNet: d("180"), LineVAT: d("37.8"), LineGross: d("217.8")},
		{Position: 2, Description: "Travel", Quantity: d("1"), UnitPrice: d("50"), VATRate: d("0"), LineNet: d("45"), LineVAT: d("0"), LineGross: d("45")},
	}
	inv := invoicedomain.Invoice{
		Status:                 document.StatusIssued,
		InvoiceNo:              "000012",
		IssueDate:              time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		DueDate:                &due,
		Language:               "fr",
		Template:               "modern",
		ClientName:             "Atelier Dupont",
		ClientTaxID:            "BE0123456789",
		DiscountPercent:        d("10"),
		CommunicationReference: "+++000/0000/01297+++",
	}
	result := invoicedomain.Totals(inv, items)
	return invoicedomain.Detail{
		Invoice:       inv,
		Items:         items,
		DisplayNumber: "000012",
		Totals:        result.Summary(decimal.Zero),
		Result:        result,
	}
}

func TestFromInvoice(t *testing.T) {
	doc := FromInvoice(invoiceDetail(), Party{Name: "acont", IBAN: "BE68539007547034"})

	assert.Equal(t, document.DocTypeInvoice, doc.Kind)
	assert.Equal(t, "2025-04-10", doc.DueDate)
	require.Len(t, doc.Lines, 2)
	assert.Equal(t, "2", doc.Lines[0].Quantity)
	assert.Equal(t, "100.00", doc.Lines[0].UnitPrice)
	assert.Equal(t, "21%", doc.Lines[0].VATRate)
	assert.Equal(t, "180.00", doc.Lines[0].Net)

	require.Len(t, doc.VAT, 2)
	assert.Equal(t, VATEntry{Rate: "0%", Base: "45.00", VAT: "0.00"}, doc.VAT[0])
	assert.Equal(t, VATEntry{Rate: "21%", Base: "180.00", VAT: "37.80"}, doc.VAT[1])
	assert.Equal(t, "262.80", doc.Totals.TotalGross)
}

func TestFromCreditNote(t *testing.T) {
	d := decimal.RequireFromString
	items := []creditnotedomain.CreditNoteItem{
		{Position: 1, Description: "Consulting", Quantity: d("-2"), UnitPrice: d("100"), VATRate: d("21"), LineNet: d("-180"), LineVAT: d("-37.8"), LineGross: d("-217.8")},
	}
	result := creditnotedomain.Totals(items)
	doc := FromCreditNote(creditnotedomain.Detail{
		CreditNote: creditnotedomain.CreditNote{
			CreditNoteNo: "000003",
			Status:       document.StatusIssued,
			IssueDate:    time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC),
			Language:     "nl",
			ClientName:   "Atelier Dupont",
		},
		Items:         items,
		DisplayNumber: "000003",
		InvoiceNo:     "000012",
		Totals:        result.Summary(decimal.Zero),
	}, Party{Name: "acont"})

	assert.Equal(t, document.DocTypeCreditNote, doc.Kind)
	assert.Equal(t, "000012", doc.SourceNumber)
	assert.Equal(t, "-2", doc.Lines[0].Quantity)
	assert.Equal(t, "-217.80", doc.Totals.TotalGross)
	assert.Equal(t, "creditnota-000003-atelier-dupont.pdf", Filename(doc))
}

func TestRender(t *testing.T) {
	provider := &MarotoProvider{log: zap.NewNop()}

	for _, template := range []string{"classic", "modern", "minimal"} {
		detail := invoiceDetail()
		detail.Invoice.Template = template
		out, err := provider.Render(context.Background(), FromInvoice(detail, Party{Name: "acont"}))
		require.NoError(t, err, template)
		assert.True(t, bytes.HasPrefix(out, []byte("%PDF")), template)
	}
}

func TestRenderCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&MarotoProvider{log: zap.NewNop()}).Render(ctx, Document{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFilename(t *testing.T) {
	doc := Document{Kind: document.DocTypeInvoice, Language: "en", Number: "000012", Client: Party{Name: "Café Zürich & Co"}}
	assert.Equal(t, "invoice-000012-cafe-zurich-and-co.pdf", Filename(doc))

	doc.Language = "fr"
	doc.Number = "DRAFT"
	doc.Client.Name = ""
	assert.Equal(t, "facture-draft.pdf", Filename(doc))
}
