package service

import (
	"context"
	"errors"
	"strings"
	"time"

	clientdomain "github.com/AdrianPopi/acont/internal/client/domain"
	"github.com/AdrianPopi/acont/internal/clock"
	"github.com/AdrianPopi/acont/internal/document"
	"github.com/AdrianPopi/acont/internal/invoice/domain"
	"github.com/AdrianPopi/acont/internal/invoice/format"
	productdomain "github.com/AdrianPopi/acont/internal/product/domain"
	"github.com/AdrianPopi/acont/internal/totals"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type draft struct {
	invoice domain.Invoice
	items   []domain.InvoiceItem
}

// buildDraft validates the request, fills client and product fields from
// master data and computes all amounts. Nothing is persisted.
func (s *Service) buildDraft(ctx context.Context, merchantID snowflake.ID, req domain.CreateRequest) (draft, error) {
	currency, err := document.NormalizeCurrency(req.Currency)
	if err != nil {
		return draft{}, err
	}

	issueDate := clock.Today(s.clock)
	if raw := strings.TrimSpace(req.IssueDate); raw != "" {
		if issueDate, err = document.ParseDate("issue_date", raw); err != nil {
			return draft{}, err
		}
	}
	var dueDate *time.Time
	if raw := strings.TrimSpace(req.DueDate); raw != "" {
		parsed, err := document.ParseDate("due_date", raw)
		if err != nil {
			return draft{}, err
		}
		dueDate = &parsed
	}

	if req.AdvancePaid.IsNegative() {
		return draft{}, domain.ErrInvalidAdvance
	}

	now := s.clock.Now()
	inv := domain.Invoice{
		ID:                s.genID.Generate(),
		MerchantID:        merchantID,
		Status:            document.StatusDraft,
		Year:              issueDate.Year(),
		IssueDate:         issueDate,
		DueDate:           dueDate,
		Language:          document.NormalizeLanguage(req.Language),
		Currency:          currency,
		DiscountPercent:   totals.ClampDiscount(totals.RoundRate(req.DiscountPercent)),
		AdvancePaid:       totals.Round(req.AdvancePaid),
		CommunicationMode: domain.CommunicationSimple,
		Template:          document.NormalizeTemplate(req.Template),
		Notes:             document.Clip(req.Notes, document.MaxNotesLen),
		Metadata:          datatypes.JSONMap{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	for k, v := range req.Metadata {
		inv.Metadata[k] = v
	}

	if err := s.fillClient(ctx, &inv, req); err != nil {
		return draft{}, err
	}
	if err := fillCommunication(&inv, req); err != nil {
		return draft{}, err
	}

	inputs := make([]totals.LineInput, 0, len(req.Items))
	items := make([]domain.InvoiceItem, 0, len(req.Items))
	for i, in := range req.Items {
		item, err := s.resolveItem(ctx, in)
		if err != nil {
			return draft{}, err
		}
		item.ID = s.genID.Generate()
		item.InvoiceID = inv.ID
		item.Position = i + 1
		item.CreatedAt = now
		items = append(items, item)
		inputs = append(inputs, item.Input())
	}

	result := totals.Compute(inputs, inv.DiscountPercent, inv.AdvancePaid)
	for i := range items {
		items[i].LineNet = result.Lines[i].Net
		items[i].LineVAT = result.Lines[i].VAT
		items[i].LineGross = result.Lines[i].Gross
	}
	inv.SubtotalNet = result.SubtotalNet
	inv.VATTotal = result.VATTotal
	inv.TotalGross = result.TotalGross

	return draft{invoice: inv, items: items}, nil
}

// fillClient snapshots the client block. Explicit request fields win over the
// stored client.
func (s *Service) fillClient(ctx context.Context, inv *domain.Invoice, req domain.CreateRequest) error {
	var stored clientdomain.Client
	if raw := strings.TrimSpace(req.ClientID); raw != "" {
		c, err := s.clients.Get(ctx, raw)
		if err != nil {
			if errors.Is(err, clientdomain.ErrNotFound) || errors.Is(err, clientdomain.ErrInvalidID) {
				return domain.ErrClientNotFound
			}
			return err
		}
		stored = c
		clientID := c.ID
		inv.ClientID = &clientID
	}

	inv.ClientName = document.Clip(document.FirstNonEmpty(req.ClientName, stored.Name), document.MaxNameLen)
	inv.ClientEmail = document.Clip(document.FirstNonEmpty(req.ClientEmail, stored.Email), document.MaxEmailLen)
	inv.ClientTaxID = document.Clip(document.FirstNonEmpty(req.ClientTaxID, stored.TaxID), document.MaxTaxIDLen)
	inv.ClientAddress = document.Clip(document.FirstNonEmpty(req.ClientAddress, stored.Address), document.MaxAddressLen)
	if inv.ClientName == "" {
		return domain.ErrInvalidClientName
	}
	return nil
}

// fillCommunication keeps a supplied structured reference. Without one the
// reference is derived from the number at issuance.
func fillCommunication(inv *domain.Invoice, req domain.CreateRequest) error {
	if strings.ToLower(strings.TrimSpace(req.CommunicationMode)) != domain.CommunicationStructured {
		inv.CommunicationMode = domain.CommunicationSimple
		inv.CommunicationReference = ""
		return nil
	}

	inv.CommunicationMode = domain.CommunicationStructured
	ref := strings.TrimSpace(req.CommunicationReference)
	if ref == "" {
		inv.CommunicationReference = ""
		return nil
	}
	if !format.ValidStructuredReference(ref) {
		return domain.ErrInvalidReference
	}
	inv.CommunicationReference = ref
	return nil
}

// resolveItem applies product defaults to fields the request left empty.
func (s *Service) resolveItem(ctx context.Context, in domain.ItemInput) (domain.InvoiceItem, error) {
	item := domain.InvoiceItem{
		ItemCode:    strings.TrimSpace(in.ItemCode),
		Description: strings.TrimSpace(in.Description),
		Quantity:    in.Quantity,
		UnitPrice:   decimal.Zero,
		VATRate:     decimal.Zero,
	}
	if in.UnitPrice != nil {
		item.UnitPrice = *in.UnitPrice
	}
	if in.VATRate != nil {
		item.VATRate = *in.VATRate
	}

	if raw := strings.TrimSpace(in.ProductID); raw != "" {
		p, err := s.products.Get(ctx, raw)
		if err != nil {
			if errors.Is(err, productdomain.ErrNotFound) || errors.Is(err, productdomain.ErrInvalidID) {
				return domain.InvoiceItem{}, domain.ErrProductNotFound
			}
			return domain.InvoiceItem{}, err
		}
		productID := p.ID
		item.ProductID = &productID
		item.ItemCode = document.FirstNonEmpty(item.ItemCode, p.Code)
		item.Description = document.FirstNonEmpty(item.Description, p.Name)
		if in.UnitPrice == nil {
			item.UnitPrice = p.UnitPrice
		}
		if in.VATRate == nil {
			item.VATRate = p.VATRate
		}
	}

	item.ItemCode = document.Clip(item.ItemCode, document.MaxItemCodeLen)
	item.Description = document.Clip(item.Description, document.MaxDescriptionLen)

	// Zero and negative lines are accepted; rebates are ordinary lines.
	stored := item.Input().Normalize()
	item.Quantity = stored.Quantity
	item.UnitPrice = stored.UnitPrice
	item.VATRate = stored.VATRate
	return item, nil
}

func displayAmount(d decimal.Decimal) string {
	return totals.Display(d)
}
