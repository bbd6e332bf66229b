package pdf

import (
	"context"

	"github.com/AdrianPopi/acont/internal/document"
	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/image"
	mline "github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"go.uber.org/zap"
)

type MarotoProvider struct {
	logoPath string
	log      *zap.Logger
}

type style struct {
	titleSize  float64
	titleAlign align.Type
	accent     *props.Color
}

var styles = map[string]style{
	"classic": {titleSize: 20, titleAlign: align.Left},
	"modern":  {titleSize: 24, titleAlign: align.Right, accent: &props.Color{Red: 32, Green: 84, Blue: 160}},
	"minimal": {titleSize: 14, titleAlign: align.Left},
}

func (p *MarotoProvider) Render(ctx context.Context, doc Document) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l := labelsFor(doc.Language)
	st := styles[document.NormalizeTemplate(doc.Template)]

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: l.Page,
			Place:   props.RightBottom,
		}).
		Build()
	m := maroto.New(cfg)

	header := []core.Col{
		text.NewCol(8, l.title(doc.Kind), props.Text{
			Size:  st.titleSize,
			Style: fontstyle.Bold,
			Align: st.titleAlign,
			Color: st.accent,
		}),
	}
	if p.logoPath != "" {
		header = append(header, image.NewFromFileCol(4, p.logoPath, props.Rect{Percent: 80}))
	} else {
		header = append(header, col.New(4))
	}
	m.AddRow(20, header...)

	meta := col.New(6).Add(
		text.New(l.Number+": "+doc.Number, props.Text{Top: 0}),
		text.New(l.IssueDate+": "+doc.IssueDate, props.Text{Top: 5}),
	)
	if doc.DueDate != "" {
		meta.Add(text.New(l.DueDate+": "+doc.DueDate, props.Text{Top: 10}))
	}
	if doc.SourceNumber != "" {
		meta.Add(text.New(l.SourceInvoice+": "+doc.SourceNumber, props.Text{Top: 10}))
	}
	m.AddRow(18, meta, col.New(6))

	m.AddRow(32,
		partyCol(doc.Seller, "", l),
		col.New(2),
		partyCol(doc.Client, l.BillTo, l),
	)

	bold := props.Text{Style: fontstyle.Bold, Size: 9}
	right := props.Text{Size: 9, Align: align.Right}
	boldRight := props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}

	m.AddRow(8,
		text.NewCol(2, l.Code, bold),
		text.NewCol(4, l.Description, bold),
		text.NewCol(1, l.Quantity, boldRight),
		text.NewCol(2, l.UnitPrice, boldRight),
		text.NewCol(1, l.VATRate, boldRight),
		text.NewCol(2, l.Amount, boldRight),
	)
	m.AddRow(2, mline.NewCol(12))
	for _, ln := range doc.Lines {
		m.AddRow(8,
			text.NewCol(2, ln.Code, props.Text{Size: 9}),
			text.NewCol(4, ln.Description, props.Text{Size: 9}),
			text.NewCol(1, ln.Quantity, right),
			text.NewCol(2, ln.UnitPrice, right),
			text.NewCol(1, ln.VATRate, right),
			text.NewCol(2, ln.Net, right),
		)
	}
	m.AddRow(2, mline.NewCol(12))

	m.AddRow(6,
		col.New(6),
		text.NewCol(2, l.VATRate, bold),
		text.NewCol(2, l.VATBase, boldRight),
		text.NewCol(2, l.VAT, boldRight),
	)
	for _, entry := range doc.VAT {
		m.AddRow(6,
			col.New(6),
			text.NewCol(2, entry.Rate, props.Text{Size: 9}),
			text.NewCol(2, entry.Base, right),
			text.NewCol(2, entry.VAT, right),
		)
	}

	totalRow := func(label, value string, strong bool) {
		labelProps, valueProps := props.Text{Size: 9}, right
		if strong {
			labelProps, valueProps = bold, boldRight
		}
		m.AddRow(7,
			col.New(8),
			text.NewCol(2, label, labelProps),
			text.NewCol(2, value, valueProps),
		)
	}
	totalRow(l.Subtotal, doc.Totals.SubtotalNet, false)
	if doc.Totals.DiscountAmount != "" && doc.Totals.DiscountAmount != "0.00" {
		totalRow(l.Discount, doc.Totals.DiscountAmount, false)
	}
	totalRow(l.VAT, doc.Totals.VATTotal, false)
	totalRow(l.Total, doc.Totals.TotalGross, true)
	if doc.Kind == document.DocTypeInvoice {
		if doc.Totals.AdvancePaid != "" && doc.Totals.AdvancePaid != "0.00" {
			totalRow(l.AdvancePaid, doc.Totals.AdvancePaid, false)
		}
		totalRow(l.TotalDue, doc.Totals.TotalDue, true)
	}

	if doc.Communication != "" {
		m.AddRow(10, text.NewCol(12, l.Communication+": "+doc.Communication, props.Text{Top: 4, Size: 10, Style: fontstyle.Bold}))
	}
	if doc.Seller.IBAN != "" {
		m.AddRow(6, text.NewCol(12, "IBAN: "+doc.Seller.IBAN, props.Text{Size: 9}))
	}
	if doc.Notes != "" {
		m.AddRow(16, text.NewCol(12, doc.Notes, props.Text{Top: 4, Size: 9}))
	}

	out, err := m.Generate()
	if err != nil {
		p.log.Error("render document", zap.String("number", doc.Number), zap.Error(err))
		return nil, err
	}
	return out.GetBytes(), nil
}

func partyCol(party Party, heading string, l labels) core.Col {
	c := col.New(5)
	top := 0.0
	if heading != "" {
		c.Add(text.New(heading, props.Text{Style: fontstyle.Bold, Size: 9, Top: top}))
		top += 5
	}
	c.Add(text.New(party.Name, props.Text{Style: fontstyle.Bold, Top: top}))
	top += 5
	for _, value := range []string{party.Address, party.Email} {
		if value == "" {
			continue
		}
		c.Add(text.New(value, props.Text{Size: 9, Top: top}))
		top += 5
	}
	if party.TaxID != "" {
		c.Add(text.New(l.VATNumber+": "+party.TaxID, props.Text{Size: 9, Top: top}))
	}
	return c
}
