package pdf

import "github.com/AdrianPopi/acont/internal/document"

type labels struct {
	Invoice       string
	CreditNote    string
	Number        string
	IssueDate     string
	DueDate       string
	SourceInvoice string
	BillTo        string
	VATNumber     string
	Code          string
	Description   string
	Quantity      string
	UnitPrice     string
	VATRate       string
	Amount        string
	Subtotal      string
	Discount      string
	VAT           string
	Total         string
	AdvancePaid   string
	TotalDue      string
	VATBase       string
	Communication string
	Page          string
}

var translations = map[string]labels{
	document.LanguageFR: {
		Invoice: "Facture", CreditNote: "Note de crédit", Number: "Numéro", IssueDate: "Date",
		DueDate: "Échéance", SourceInvoice: "Facture d'origine", BillTo: "Facturé à", VATNumber: "TVA",
		Code: "Code", Description: "Description", Quantity: "Qté", UnitPrice: "Prix unitaire",
		VATRate: "TVA %", Amount: "Montant HT", Subtotal: "Total HT", Discount: "Remise", VAT: "TVA",
		Total: "Total TTC", AdvancePaid: "Acompte", TotalDue: "À payer", VATBase: "Base",
		Communication: "Communication", Page: "Page {current} / {total}",
	},
	document.LanguageEN: {
		Invoice: "Invoice", CreditNote: "Credit note", Number: "Number", IssueDate: "Date",
		DueDate: "Due date", SourceInvoice: "Original invoice", BillTo: "Bill to", VATNumber: "VAT",
		Code: "Code", Description: "Description", Quantity: "Qty", UnitPrice: "Unit price",
		VATRate: "VAT %", Amount: "Net amount", Subtotal: "Subtotal", Discount: "Discount", VAT: "VAT",
		Total: "Total", AdvancePaid: "Advance paid", TotalDue: "Amount due", VATBase: "Base",
		Communication: "Payment reference", Page: "Page {current} of {total}",
	},
	document.LanguageNL: {
		Invoice: "Factuur", CreditNote: "Creditnota", Number: "Nummer", IssueDate: "Datum",
		DueDate: "Vervaldatum", SourceInvoice: "Oorspronkelijke factuur", BillTo: "Factuur aan", VATNumber: "BTW",
		Code: "Code", Description: "Omschrijving", Quantity: "Aantal", UnitPrice: "Eenheidsprijs",
		VATRate: "BTW %", Amount: "Bedrag excl.", Subtotal: "Subtotaal", Discount: "Korting", VAT: "BTW",
		Total: "Totaal", AdvancePaid: "Voorschot", TotalDue: "Te betalen", VATBase: "Basis",
		Communication: "Mededeling", Page: "Pagina {current} van {total}",
	},
}

func labelsFor(lang string) labels {
	return translations[document.NormalizeLanguage(lang)]
}

func (l labels) title(kind document.DocType) string {
	if kind == document.DocTypeCreditNote {
		return l.CreditNote
	}
	return l.Invoice
}
