package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/AdrianPopi/acont/internal/chronology"
	clientdomain "github.com/AdrianPopi/acont/internal/client/domain"
	"github.com/AdrianPopi/acont/internal/clock"
	"github.com/AdrianPopi/acont/internal/document"
	"github.com/AdrianPopi/acont/internal/invoice/domain"
	"github.com/AdrianPopi/acont/internal/invoice/format"
	"github.com/AdrianPopi/acont/internal/merchantcontext"
	obslogger "github.com/AdrianPopi/acont/internal/observability/logger"
	obsmetrics "github.com/AdrianPopi/acont/internal/observability/metrics"
	productdomain "github.com/AdrianPopi/acont/internal/product/domain"
	sequencedomain "github.com/AdrianPopi/acont/internal/sequence/domain"
	"github.com/AdrianPopi/acont/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	Allocator  sequencedomain.Allocator
	Chronology *chronology.Validator
	Clients    clientdomain.Service
	Products   productdomain.Service
	Metrics    *obsmetrics.Metrics         `optional:"true"`
	DocMetrics *obsmetrics.DocumentMetrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	allocator  sequencedomain.Allocator
	chronology *chronology.Validator
	clients    clientdomain.Service
	products   productdomain.Service
	metrics    *obsmetrics.Metrics
	docMetrics *obsmetrics.DocumentMetrics
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("invoice.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		allocator:  p.Allocator,
		chronology: p.Chronology,
		clients:    p.Clients,
		products:   p.Products,
		metrics:    p.Metrics,
		docMetrics: p.DocMetrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.Detail, error) {
	merchantID, err := merchantFromContext(ctx)
	if err != nil {
		return domain.Detail{}, err
	}

	draft, err := s.buildDraft(ctx, merchantID, req)
	if err != nil {
		return domain.Detail{}, err
	}
	issueNow := req.IssueNow == nil || *req.IssueNow

	start := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		key := s.sequenceKey(draft.invoice)
		if issueNow {
			if _, err := s.allocator.Lock(ctx, tx, key); err != nil {
				return err
			}
		}
		if err := s.validateChronology(ctx, tx, draft.invoice); err != nil {
			return err
		}
		if issueNow {
			if err := s.assignNumber(ctx, tx, key, &draft.invoice); err != nil {
				return err
			}
		}
		return s.repo.Insert(ctx, tx, &draft.invoice, draft.items)
	})
	if err != nil {
		if issueNow {
			s.observeIssuance(ctx, merchantID, start, err)
		}
		return domain.Detail{}, document.ClassifyStorageError(err)
	}
	if issueNow {
		s.observeIssuance(ctx, merchantID, start, nil)
	}

	s.log.Info("invoice created",
		zap.String("invoice_id", draft.invoice.ID.String()),
		zap.String("merchant_id", merchantID.String()),
		zap.String("status", string(draft.invoice.Status)),
		zap.String("invoice_no", draft.invoice.InvoiceNo),
	)
	return buildDetail(draft.invoice, draft.items), nil
}

func (s *Service) Issue(ctx context.Context, id string) (domain.Detail, error) {
	merchantID, err := merchantFromContext(ctx)
	if err != nil {
		return domain.Detail{}, err
	}
	invoiceID, err := parseID(id)
	if err != nil {
		return domain.Detail{}, err
	}

	var (
		issued domain.Invoice
		items  []domain.InvoiceItem
	)
	start := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.repo.FindForUpdate(ctx, tx, merchantID, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return document.ErrNotFound
		}
		if err := document.Transition(invoice.Status, document.StatusIssued); err != nil {
			return err
		}

		key := s.sequenceKey(*invoice)
		if _, err := s.allocator.Lock(ctx, tx, key); err != nil {
			return err
		}
		if err := s.validateChronology(ctx, tx, *invoice); err != nil {
			return err
		}
		if err := s.assignNumber(ctx, tx, key, invoice); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, tx, invoice); err != nil {
			return err
		}

		items, err = s.repo.ListItems(ctx, tx, invoice.ID)
		if err != nil {
			return err
		}
		issued = *invoice
		return nil
	})
	s.observeIssuance(ctx, merchantID, start, err)
	if err != nil {
		return domain.Detail{}, document.ClassifyStorageError(err)
	}

	s.log.Info("invoice issued",
		zap.String("invoice_id", issued.ID.String()),
		zap.String("merchant_id", merchantID.String()),
		zap.String("invoice_no", issued.InvoiceNo),
	)
	return buildDetail(issued, items), nil
}

func (s *Service) MarkPaid(ctx context.Context, id string) (domain.Detail, error) {
	return s.transition(ctx, id, document.StatusPaid, func(inv *domain.Invoice, now time.Time) {
		inv.PaidAt = &now
	})
}

func (s *Service) Void(ctx context.Context, id string, reason string) (domain.Detail, error) {
	detail, err := s.transition(ctx, id, document.StatusVoid, func(inv *domain.Invoice, now time.Time) {
		inv.VoidedAt = &now
		if reason = strings.TrimSpace(reason); reason != "" {
			if inv.Metadata == nil {
				inv.Metadata = datatypes.JSONMap{}
			}
			inv.Metadata["void_reason"] = reason
		}
	})
	if err != nil {
		return domain.Detail{}, err
	}
	s.metrics.RecordDocumentVoided(ctx, detail.Invoice.MerchantID.String(), string(document.DocTypeInvoice))
	return detail, nil
}

func (s *Service) transition(ctx context.Context, id string, to document.Status, apply func(*domain.Invoice, time.Time)) (domain.Detail, error) {
	merchantID, err := merchantFromContext(ctx)
	if err != nil {
		return domain.Detail{}, err
	}
	invoiceID, err := parseID(id)
	if err != nil {
		return domain.Detail{}, err
	}

	var (
		updated domain.Invoice
		items   []domain.InvoiceItem
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.repo.FindForUpdate(ctx, tx, merchantID, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return document.ErrNotFound
		}
		from := invoice.Status
		if err := document.Transition(from, to); err != nil {
			return err
		}

		now := s.clock.Now()
		invoice.Status = to
		invoice.UpdatedAt = now
		apply(invoice, now)
		if err := s.repo.Update(ctx, tx, invoice); err != nil {
			return err
		}

		items, err = s.repo.ListItems(ctx, tx, invoice.ID)
		if err != nil {
			return err
		}
		updated = *invoice
		return nil
	})
	if err != nil {
		return domain.Detail{}, document.ClassifyStorageError(err)
	}

	s.log.Info("invoice status changed",
		zap.String("invoice_id", updated.ID.String()),
		zap.String("status", string(to)),
	)
	return buildDetail(updated, items), nil
}

func (s *Service) DeleteDraft(ctx context.Context, id string) error {
	merchantID, err := merchantFromContext(ctx)
	if err != nil {
		return err
	}
	invoiceID, err := parseID(id)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.repo.FindForUpdate(ctx, tx, merchantID, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return document.ErrNotFound
		}
		if invoice.Status != document.StatusDraft {
			return document.ErrNotDraft
		}
		return s.repo.Delete(ctx, tx, merchantID, invoiceID)
	})
	return document.ClassifyStorageError(err)
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	merchantID, err := merchantFromContext(ctx)
	if err != nil {
		return domain.ListResponse{}, err
	}

	filter := domain.ListFilter{
		Status: strings.ToLower(strings.TrimSpace(req.Status)),
		Year:   req.Year,
	}
	if raw := strings.TrimSpace(req.ClientID); raw != "" {
		clientID, err := parseID(raw)
		if err != nil {
			return domain.ListResponse{}, err
		}
		filter.ClientID = &clientID
	}

	items, err := s.repo.List(ctx, s.db, merchantID, filter, req.Pagination)
	if err != nil {
		return domain.ListResponse{}, err
	}

	limit := req.Pagination.Size()
	pageInfo := pagination.BuildCursorPageInfo(items, limit, func(inv *domain.Invoice) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:      inv.ID.String(),
			SortKey: inv.IssueDate.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if len(items) > limit {
		items = items[:limit]
	}

	invoices := make([]domain.Summary, 0, len(items))
	for _, item := range items {
		invoices = append(invoices, toSummary(*item))
	}
	return domain.ListResponse{PageInfo: *pageInfo, Invoices: invoices}, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Detail, error) {
	merchantID, err := merchantFromContext(ctx)
	if err != nil {
		return domain.Detail{}, err
	}
	invoiceID, err := parseID(id)
	if err != nil {
		return domain.Detail{}, err
	}

	invoice, err := s.repo.FindByID(ctx, s.db, merchantID, invoiceID)
	if err != nil {
		return domain.Detail{}, err
	}
	if invoice == nil {
		return domain.Detail{}, document.ErrNotFound
	}
	items, err := s.repo.ListItems(ctx, s.db, invoice.ID)
	if err != nil {
		return domain.Detail{}, err
	}
	return buildDetail(*invoice, items), nil
}

func (s *Service) Meta(ctx context.Context, issueDate *time.Time) (domain.Meta, error) {
	merchantID, err := merchantFromContext(ctx)
	if err != nil {
		return domain.Meta{}, err
	}

	date := clock.Today(s.clock)
	if issueDate != nil {
		date = document.Date(*issueDate)
	}

	last, err := s.repo.LastIssuedDate(ctx, s.db, merchantID)
	if err != nil {
		return domain.Meta{}, err
	}
	preview, err := s.allocator.Peek(ctx, sequencedomain.Key{
		MerchantID: merchantID,
		Year:       date.Year(),
		DocType:    document.DocTypeInvoice,
	}, date)
	if err != nil {
		return domain.Meta{}, err
	}

	meta := domain.Meta{NextNumber: preview.Code, Year: date.Year()}
	if last != nil {
		formatted := last.Format(document.DateLayout)
		meta.LastIssuedDate = &formatted
	}
	return meta, nil
}

func (s *Service) ListIssuedForClient(ctx context.Context, clientID string) ([]domain.Summary, error) {
	merchantID, err := merchantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	id, err := parseID(clientID)
	if err != nil {
		return nil, err
	}

	invoices, err := s.repo.ListIssuedForClient(ctx, s.db, merchantID, id)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Summary, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, toSummary(inv))
	}
	return out, nil
}

func (s *Service) sequenceKey(inv domain.Invoice) sequencedomain.Key {
	return sequencedomain.Key{
		MerchantID: inv.MerchantID,
		Year:       inv.IssueDate.Year(),
		DocType:    document.DocTypeInvoice,
	}
}

// validateChronology must run after the counter lock is held so the last
// issued date cannot move underneath the check.
func (s *Service) validateChronology(ctx context.Context, tx *gorm.DB, inv domain.Invoice) error {
	last, err := s.repo.LastIssuedDate(ctx, tx, inv.MerchantID)
	if err != nil {
		return err
	}
	err = s.chronology.ValidateInvoice(chronology.InvoiceDates{
		IssueDate: inv.IssueDate,
		DueDate:   inv.DueDate,
	}, last)

	var violation *document.ChronologyViolation
	if errors.As(err, &violation) {
		s.metrics.RecordChronologyRejected(ctx, string(document.DocTypeInvoice), string(violation.Rule))
		obslogger.WithContext(ctx, s.log).Warn("invoice chronology violation",
			zap.String("rule", string(violation.Rule)),
			zap.String("issue_date", inv.IssueDate.Format(document.DateLayout)),
			zap.String("conflicting_date", violation.Date.Format(document.DateLayout)),
		)
	}
	return err
}

func (s *Service) assignNumber(ctx context.Context, tx *gorm.DB, key sequencedomain.Key, inv *domain.Invoice) error {
	allocation, err := s.allocator.Allocate(ctx, tx, key, inv.IssueDate)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	number := allocation.Number
	inv.Series = allocation.Series
	inv.Year = allocation.Year
	inv.Number = &number
	inv.InvoiceNo = allocation.Code
	if inv.CommunicationMode == domain.CommunicationStructured && inv.CommunicationReference == "" {
		ref, err := format.DocumentReference(format.ReferenceKindInvoice, allocation.Year, number)
		if err != nil {
			return err
		}
		inv.CommunicationReference = ref
	}
	inv.Status = document.StatusIssued
	inv.IssuedAt = &now
	inv.UpdatedAt = now
	return nil
}

func (s *Service) observeIssuance(ctx context.Context, merchantID snowflake.ID, start time.Time, err error) {
	docType := string(document.DocTypeInvoice)
	var violation *document.ChronologyViolation
	switch {
	case err == nil:
		s.docMetrics.ObserveIssuance(docType, obsmetrics.OutcomeIssued, time.Since(start))
		s.metrics.RecordDocumentIssued(ctx, merchantID.String(), docType)
	case errors.As(err, &violation), errors.Is(err, document.ErrValidation), errors.Is(err, document.ErrInvalidTransition):
		s.docMetrics.ObserveIssuance(docType, obsmetrics.OutcomeRejected, time.Since(start))
	default:
		s.docMetrics.ObserveIssuance(docType, obsmetrics.OutcomeFailed, time.Since(start))
	}
}

func merchantFromContext(ctx context.Context) (snowflake.ID, error) {
	merchantID, ok := merchantcontext.MerchantIDFromContext(ctx)
	if !ok {
		return 0, document.ErrInvalidMerchant
	}
	return merchantID, nil
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, document.ErrInvalidID
	}
	return id, nil
}

func buildDetail(inv domain.Invoice, items []domain.InvoiceItem) domain.Detail {
	if items == nil {
		items = []domain.InvoiceItem{}
	}
	result := domain.Totals(inv, items)
	return domain.Detail{
		Invoice:       inv,
		Items:         items,
		DisplayNumber: document.DisplayNumber(inv.Status, inv.InvoiceNo),
		Totals:        result.Summary(inv.AdvancePaid),
		Result:        result,
	}
}

func toSummary(inv domain.Invoice) domain.Summary {
	out := domain.Summary{
		ID:            inv.ID.String(),
		InvoiceNo:     inv.InvoiceNo,
		DisplayNumber: document.DisplayNumber(inv.Status, inv.InvoiceNo),
		Status:        string(inv.Status),
		IssueDate:     inv.IssueDate.Format(document.DateLayout),
		ClientName:    inv.ClientName,
		TotalGross:    displayAmount(inv.TotalGross),
		AdvancePaid:   displayAmount(inv.AdvancePaid),
	}
	if inv.DueDate != nil {
		out.DueDate = inv.DueDate.Format(document.DateLayout)
	}
	return out
}
