// Package totals computes line and document amounts for invoices and credit notes.
//
// Every line is rounded once to StorageScale and aggregates are exact sums of
// the rounded line values, so subtotal + vat always equals gross.
package totals

import (
	"strings"

	"github.com/shopspring/decimal"
)

// StorageScale is the number of decimal places persisted for monetary values.
const StorageScale = 6

// RateScale is the number of decimal places persisted for VAT rates and
// discount percentages.
const RateScale = 4

// DisplayScale is the number of decimal places shown on documents.
const DisplayScale = 2

var (
	hundred = decimal.NewFromInt(100)
)

// LineInput is the raw data of a document line. VATRate is a percentage.
type LineInput struct {
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	VATRate   decimal.Decimal
}

// Line is a computed document line.
type Line struct {
	LineInput
	NetBeforeDiscount decimal.Decimal
	Net               decimal.Decimal
	VAT               decimal.Decimal
	Gross             decimal.Decimal
}

type BreakdownEntry struct {
	Base decimal.Decimal `json:"base"`
	VAT  decimal.Decimal `json:"vat"`
}

// Breakdown groups net and VAT amounts by canonical rate key.
type Breakdown map[string]BreakdownEntry

type Result struct {
	Lines          []Line
	SubtotalNet    decimal.Decimal
	VATTotal       decimal.Decimal
	TotalGross     decimal.Decimal
	DiscountAmount decimal.Decimal
	TotalDue       decimal.Decimal
	Breakdown      Breakdown
}

// Compute derives per-line and aggregate amounts.
func Compute(lines []LineInput, discountPercent, advancePaid decimal.Decimal) Result {
	discount := ClampDiscount(discountPercent)

	computed := make([]Line, 0, len(lines))
	for _, in := range lines {
		computed = append(computed, ComputeLine(in, discount))
	}
	return Aggregate(computed, advancePaid)
}

// ComputeLine applies the discount before VAT and rounds each value once.
func ComputeLine(in LineInput, discountPercent decimal.Decimal) Line {
	discount := ClampDiscount(discountPercent)
	factor := hundred.Sub(discount).Div(hundred)

	before := in.Quantity.Mul(in.UnitPrice)
	net := Round(before.Mul(factor))
	vat := Round(net.Mul(in.VATRate).Div(hundred))

	return Line{
		LineInput:         in,
		NetBeforeDiscount: Round(before),
		Net:               net,
		VAT:               vat,
		Gross:             net.Add(vat),
	}
}

// Aggregate sums already computed lines. It is used both at creation time and
// when a persisted document is read back.
func Aggregate(lines []Line, advancePaid decimal.Decimal) Result {
	res := Result{
		Lines:          lines,
		SubtotalNet:    decimal.Zero,
		VATTotal:       decimal.Zero,
		TotalGross:     decimal.Zero,
		DiscountAmount: decimal.Zero,
		TotalDue:       decimal.Zero,
		Breakdown:      Breakdown{},
	}

	before := decimal.Zero
	for _, l := range lines {
		res.SubtotalNet = res.SubtotalNet.Add(l.Net)
		res.VATTotal = res.VATTotal.Add(l.VAT)
		res.TotalGross = res.TotalGross.Add(l.Gross)
		before = before.Add(l.NetBeforeDiscount)
	}
	res.DiscountAmount = before.Sub(res.SubtotalNet)
	res.Breakdown = BreakdownOf(lines)

	due := res.TotalGross.Sub(advancePaid)
	if due.IsPositive() {
		res.TotalDue = due
	}
	return res
}

// BreakdownOf groups line amounts by VAT rate.
func BreakdownOf(lines []Line) Breakdown {
	out := Breakdown{}
	for _, l := range lines {
		key := RateKey(l.VATRate)
		entry, ok := out[key]
		if !ok {
			entry = BreakdownEntry{Base: decimal.Zero, VAT: decimal.Zero}
		}
		entry.Base = entry.Base.Add(l.Net)
		entry.VAT = entry.VAT.Add(l.VAT)
		out[key] = entry
	}
	return out
}

// RateKey renders a VAT rate without trailing zeros, e.g. 21, 5.5 or 0.
func RateKey(rate decimal.Decimal) string {
	s := rate.StringFixed(DisplayScale)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "-0" {
		return "0"
	}
	return s
}

// ClampDiscount keeps a discount percentage within [0, 100].
func ClampDiscount(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	if d.GreaterThan(hundred) {
		return hundred
	}
	return d
}

// Round rounds half away from zero to StorageScale, so Round(-x) == -Round(x).
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(StorageScale)
}

// RoundRate rounds a percentage to RateScale.
func RoundRate(d decimal.Decimal) decimal.Decimal {
	return d.Round(RateScale)
}

// Normalize rounds the inputs to the precision they are stored with. Lines
// computed from normalized inputs recompute identically from stored rows.
func (in LineInput) Normalize() LineInput {
	return LineInput{
		Quantity:  Round(in.Quantity),
		UnitPrice: Round(in.UnitPrice),
		VATRate:   RoundRate(in.VATRate),
	}
}

// Display formats an amount for documents and API responses.
func Display(d decimal.Decimal) string {
	return d.StringFixed(DisplayScale)
}

// Negate returns line inputs with negated quantities, used for storno lines.
func Negate(lines []LineInput) []LineInput {
	out := make([]LineInput, 0, len(lines))
	for _, l := range lines {
		out = append(out, LineInput{
			Quantity:  l.Quantity.Neg(),
			UnitPrice: l.UnitPrice,
			VATRate:   l.VATRate,
		})
	}
	return out
}

// Summary is the display form of a Result.
type Summary struct {
	SubtotalNet    string                  `json:"subtotal_net"`
	VATTotal       string                  `json:"vat_total"`
	TotalGross     string                  `json:"total_gross"`
	DiscountAmount string                  `json:"discount_amount"`
	AdvancePaid    string                  `json:"advance_paid"`
	TotalDue       string                  `json:"total_due"`
	VATBreakdown   map[string]SummaryEntry `json:"vat_breakdown"`
}

type SummaryEntry struct {
	Base string `json:"base"`
	VAT  string `json:"vat"`
}

func (r Result) Summary(advancePaid decimal.Decimal) Summary {
	out := Summary{
		SubtotalNet:    Display(r.SubtotalNet),
		VATTotal:       Display(r.VATTotal),
		TotalGross:     Display(r.TotalGross),
		DiscountAmount: Display(r.DiscountAmount),
		AdvancePaid:    Display(advancePaid),
		TotalDue:       Display(r.TotalDue),
		VATBreakdown:   make(map[string]SummaryEntry, len(r.Breakdown)),
	}
	for rate, entry := range r.Breakdown {
		out.VATBreakdown[rate] = SummaryEntry{Base: Display(entry.Base), VAT: Display(entry.VAT)}
	}
	return out
}

// Restore rebuilds a computed line from persisted values. The pre-discount
// net is derived from quantity and unit price.
func Restore(in LineInput, net, vat, gross decimal.Decimal) Line {
	return Line{
		LineInput:         in,
		NetBeforeDiscount: Round(in.Quantity.Mul(in.UnitPrice)),
		Net:               net,
		VAT:               vat,
		Gross:             gross,
	}
}
