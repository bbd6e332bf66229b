package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/AdrianPopi/acont/internal/chronology"
	"github.com/AdrianPopi/acont/internal/clock"
	"github.com/AdrianPopi/acont/internal/creditnote/domain"
	"github.com/AdrianPopi/acont/internal/document"
	invoicedomain "github.com/AdrianPopi/acont/internal/invoice/domain"
	"github.com/AdrianPopi/acont/internal/invoice/format"
	"github.com/AdrianPopi/acont/internal/merchantcontext"
	obslogger "github.com/AdrianPopi/acont/internal/observability/logger"
	obsmetrics "github.com/AdrianPopi/acont/internal/observability/metrics"
	sequencedomain "github.com/AdrianPopi/acont/internal/sequence/domain"
	"github.com/AdrianPopi/acont/internal/totals"
	"github.com/AdrianPopi/acont/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	InvoiceRepo invoicedomain.Repository
	Invoices    invoicedomain.Service
	Allocator   sequencedomain.Allocator
	Chronology  *chronology.Validator
	Metrics     *obsmetrics.Metrics         `optional:"true"`
	DocMetrics  *obsmetrics.DocumentMetrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	invoiceRepo invoicedomain.Repository
	invoices    invoicedomain.Service
	allocator   sequencedomain.Allocator
	chronology  *chronology.Validator
	metrics     *obsmetrics.Metrics
	docMetrics  *obsmetrics.DocumentMetrics
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("creditnote.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		invoiceRepo: p.InvoiceRepo,
		invoices:    p.Invoices,
		allocator:   p.Allocator,
		chronology:  p.Chronology,
		metrics:     p.Metrics,
		docMetrics:  p.DocMetrics,
	}
}

func (s *Service) EligibleInvoices(ctx context.Context, clientID string) ([]invoicedomain.Summary, error) {
	return s.invoices.ListIssuedForClient(ctx, clientID)
}

func (s *Service) SourceInvoice(ctx context.Context, invoiceID string) (invoicedomain.Detail, error) {
	detail, err := s.invoices.Get(ctx, invoiceID)
	if err != nil {
		return invoicedomain.Detail{}, err
	}
	if detail.Invoice.Status != document.StatusIssued {
		return invoicedomain.Detail{}, domain.ErrSourceInvoiceNotFound
	}
	return detail, nil
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.Detail, error) {
	merchantID, err := merchantFromContext(ctx)
	if err != nil {
		return domain.Detail{}, err
	}
	invoiceID, err := parseID(req.InvoiceID)
	if err != nil {
		return domain.Detail{}, err
	}

	issueDate := clock.Today(s.clock)
	if raw := strings.TrimSpace(req.IssueDate); raw != "" {
		issueDate, err = document.ParseDate("issue_date", raw)
		if err != nil {
			return domain.Detail{}, err
		}
	}
	issueNow := req.IssueNow == nil || *req.IssueNow

	var (
		draft     domain.Draft
		invoiceNo string
	)
	start := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		source, items, err := s.loadSource(ctx, tx, merchantID, invoiceID)
		if err != nil {
			return err
		}
		invoiceNo = source.InvoiceNo

		draft, err = domain.NewFromInvoice(invoicedomain.Detail{Invoice: *source, Items: items}, domain.Options{
			NewID:                  s.genID.Generate,
			IssueDate:              issueDate,
			Now:                    s.clock.Now(),
			Language:               req.Language,
			Template:               req.Template,
			CommunicationMode:      req.CommunicationMode,
			CommunicationReference: strings.TrimSpace(req.CommunicationReference),
			Notes:                  req.Notes,
			Metadata:               req.Metadata,
			Lines:                  req.Lines,
		})
		if err != nil {
			return err
		}

		key := sequenceKey(draft.CreditNote)
		if issueNow {
			if _, err := s.allocator.Lock(ctx, tx, key); err != nil {
				return err
			}
		}
		if err := s.validateChronology(ctx, tx, draft.CreditNote, source.IssueDate); err != nil {
			return err
		}
		if issueNow {
			if err := s.assignNumber(ctx, tx, key, &draft.CreditNote); err != nil {
				return err
			}
		}
		if err := s.repo.Insert(ctx, tx, &draft.CreditNote, draft.Items); err != nil {
			return err
		}
		if issueNow {
			return s.checkOverCredit(ctx, tx, *source)
		}
		return nil
	})
	if issueNow {
		s.observeIssuance(ctx, merchantID, start, err)
	}
	if err != nil {
		return domain.Detail{}, document.ClassifyStorageError(err)
	}

	s.log.Info("credit note created",
		zap.String("credit_note_id", draft.CreditNote.ID.String()),
		zap.String("invoice_id", invoiceID.String()),
		zap.String("merchant_id", merchantID.String()),
		zap.String("status", string(draft.CreditNote.Status)),
		zap.String("credit_note_no", draft.CreditNote.CreditNoteNo),
	)
	return buildDetail(draft.CreditNote, draft.Items, invoiceNo), nil
}

func (s *Service) Issue(ctx context.Context, id string) (domain.Detail, error) {
	merchantID, err := merchantFromContext(ctx)
	if err != nil {
		return domain.Detail{}, err
	}
	noteID, err := parseID(id)
	if err != nil {
		return domain.Detail{}, err
	}

	var (
		issued    domain.CreditNote
		items     []domain.CreditNoteItem
		invoiceNo string
	)
	start := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		note, err := s.repo.FindForUpdate(ctx, tx, merchantID, noteID)
		if err != nil {
			return err
		}
		if note == nil {
			return document.ErrNotFound
		}
		if err := document.Transition(note.Status, document.StatusIssued); err != nil {
			return err
		}
		source, _, err := s.loadSource(ctx, tx, merchantID, note.InvoiceID)
		if err != nil {
			return err
		}
		invoiceNo = source.InvoiceNo

		key := sequenceKey(*note)
		if _, err := s.allocator.Lock(ctx, tx, key); err != nil {
			return err
		}
		if err := s.validateChronology(ctx, tx, *note, source.IssueDate); err != nil {
			return err
		}
		if err := s.assignNumber(ctx, tx, key, note); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, tx, note); err != nil {
			return err
		}
		if err := s.checkOverCredit(ctx, tx, *source); err != nil {
			return err
		}

		items, err = s.repo.ListItems(ctx, tx, note.ID)
		if err != nil {
			return err
		}
		issued = *note
		return nil
	})
	s.observeIssuance(ctx, merchantID, start, err)
	if err != nil {
		return domain.Detail{}, document.ClassifyStorageError(err)
	}

	s.log.Info("credit note issued",
		zap.String("credit_note_id", issued.ID.String()),
		zap.String("merchant_id", merchantID.String()),
		zap.String("credit_note_no", issued.CreditNoteNo),
	)
	return buildDetail(issued, items, invoiceNo), nil
}

func (s *Service) Void(ctx context.Context, id string, reason string) (domain.Detail, error) {
	merchantID, err := merchantFromContext(ctx)
	if err != nil {
		return domain.Detail{}, err
	}
	noteID, err := parseID(id)
	if err != nil {
		return domain.Detail{}, err
	}

	var (
		voided    domain.CreditNote
		items     []domain.CreditNoteItem
		invoiceNo string
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		note, err := s.repo.FindForUpdate(ctx, tx, merchantID, noteID)
		if err != nil {
			return err
		}
		if note == nil {
			return document.ErrNotFound
		}
		if err := document.Transition(note.Status, document.StatusVoid); err != nil {
			return err
		}

		now := s.clock.Now()
		note.Status = document.StatusVoid
		note.VoidedAt = &now
		note.UpdatedAt = now
		if reason = strings.TrimSpace(reason); reason != "" {
			if note.Metadata == nil {
				note.Metadata = datatypes.JSONMap{}
			}
			note.Metadata["void_reason"] = reason
		}
		if err := s.repo.Update(ctx, tx, note); err != nil {
			return err
		}

		items, err = s.repo.ListItems(ctx, tx, note.ID)
		if err != nil {
			return err
		}
		source, err := s.invoiceRepo.FindByID(ctx, tx, merchantID, note.InvoiceID)
		if err != nil {
			return err
		}
		if source != nil {
			invoiceNo = source.InvoiceNo
		}
		voided = *note
		return nil
	})
	if err != nil {
		return domain.Detail{}, document.ClassifyStorageError(err)
	}

	s.metrics.RecordDocumentVoided(ctx, merchantID.String(), string(document.DocTypeCreditNote))
	s.log.Info("credit note voided",
		zap.String("credit_note_id", voided.ID.String()),
		zap.String("merchant_id", merchantID.String()),
	)
	return buildDetail(voided, items, invoiceNo), nil
}

func (s *Service) DeleteDraft(ctx context.Context, id string) error {
	merchantID, err := merchantFromContext(ctx)
	if err != nil {
		return err
	}
	noteID, err := parseID(id)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		note, err := s.repo.FindForUpdate(ctx, tx, merchantID, noteID)
		if err != nil {
			return err
		}
		if note == nil {
			return document.ErrNotFound
		}
		if note.Status != document.StatusDraft {
			return document.ErrNotDraft
		}
		return s.repo.Delete(ctx, tx, merchantID, noteID)
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
	if raw := strings.TrimSpace(req.InvoiceID); raw != "" {
		invoiceID, err := parseID(raw)
		if err != nil {
			return domain.ListResponse{}, err
		}
		filter.InvoiceID = &invoiceID
	}

	notes, err := s.repo.List(ctx, s.db, merchantID, filter, req.Pagination)
	if err != nil {
		return domain.ListResponse{}, err
	}

	limit := req.Pagination.Size()
	pageInfo := pagination.BuildCursorPageInfo(notes, limit, func(cn *domain.CreditNote) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:      cn.ID.String(),
			SortKey: cn.IssueDate.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if len(notes) > limit {
		notes = notes[:limit]
	}

	out := make([]domain.Summary, 0, len(notes))
	for _, cn := range notes {
		out = append(out, toSummary(*cn))
	}
	return domain.ListResponse{PageInfo: *pageInfo, CreditNotes: out}, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Detail, error) {
	merchantID, err := merchantFromContext(ctx)
	if err != nil {
		return domain.Detail{}, err
	}
	noteID, err := parseID(id)
	if err != nil {
		return domain.Detail{}, err
	}

	note, err := s.repo.FindByID(ctx, s.db, merchantID, noteID)
	if err != nil {
		return domain.Detail{}, err
	}
	if note == nil {
		return domain.Detail{}, document.ErrNotFound
	}
	items, err := s.repo.ListItems(ctx, s.db, note.ID)
	if err != nil {
		return domain.Detail{}, err
	}

	var invoiceNo string
	source, err := s.invoiceRepo.FindByID(ctx, s.db, merchantID, note.InvoiceID)
	if err != nil {
		return domain.Detail{}, err
	}
	if source != nil {
		invoiceNo = source.InvoiceNo
	}
	return buildDetail(*note, items, invoiceNo), nil
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
		DocType:    document.DocTypeCreditNote,
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

// loadSource locks the source invoice for the rest of the transaction so it
// cannot be voided while it is being credited.
func (s *Service) loadSource(ctx context.Context, tx *gorm.DB, merchantID, invoiceID snowflake.ID) (*invoicedomain.Invoice, []invoicedomain.InvoiceItem, error) {
	source, err := s.invoiceRepo.FindForUpdate(ctx, tx, merchantID, invoiceID)
	if err != nil {
		return nil, nil, err
	}
	if source == nil || source.Status != document.StatusIssued {
		return nil, nil, domain.ErrSourceInvoiceNotFound
	}
	items, err := s.invoiceRepo.ListItems(ctx, tx, source.ID)
	if err != nil {
		return nil, nil, err
	}
	return source, items, nil
}

func sequenceKey(cn domain.CreditNote) sequencedomain.Key {
	return sequencedomain.Key{
		MerchantID: cn.MerchantID,
		Year:       cn.IssueDate.Year(),
		DocType:    document.DocTypeCreditNote,
	}
}

func (s *Service) validateChronology(ctx context.Context, tx *gorm.DB, cn domain.CreditNote, sourceIssueDate time.Time) error {
	last, err := s.repo.LastIssuedDate(ctx, tx, cn.MerchantID)
	if err != nil {
		return err
	}
	err = s.chronology.ValidateCreditNote(cn.IssueDate, sourceIssueDate, last)

	var violation *document.ChronologyViolation
	if errors.As(err, &violation) {
		s.metrics.RecordChronologyRejected(ctx, string(document.DocTypeCreditNote), string(violation.Rule))
		obslogger.ForDocument(obslogger.WithContext(ctx, s.log), string(document.DocTypeCreditNote), cn.ID.String()).Warn("credit note chronology violation",
			zap.String("invoice_id", cn.InvoiceID.String()),
			zap.String("rule", string(violation.Rule)),
			zap.String("issue_date", cn.IssueDate.Format(document.DateLayout)),
			zap.String("conflicting_date", violation.Date.Format(document.DateLayout)),
		)
	}
	return err
}

func (s *Service) assignNumber(ctx context.Context, tx *gorm.DB, key sequencedomain.Key, cn *domain.CreditNote) error {
	allocation, err := s.allocator.Allocate(ctx, tx, key, cn.IssueDate)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	number := allocation.Number
	cn.Series = allocation.Series
	cn.Year = allocation.Year
	cn.Number = &number
	cn.CreditNoteNo = allocation.Code
	if cn.CommunicationMode == invoicedomain.CommunicationStructured && cn.CommunicationReference == "" {
		ref, err := format.DocumentReference(format.ReferenceKindCreditNote, allocation.Year, number)
		if err != nil {
			return err
		}
		cn.CommunicationReference = ref
	}
	cn.Status = document.StatusIssued
	cn.IssuedAt = &now
	cn.UpdatedAt = now
	return nil
}

// checkOverCredit warns when the issued credit notes of an invoice reverse
// more than its gross amount. Over-crediting is allowed.
func (s *Service) checkOverCredit(ctx context.Context, tx *gorm.DB, source invoicedomain.Invoice) error {
	amounts, err := s.repo.IssuedGrossForInvoice(ctx, tx, source.MerchantID, source.ID)
	if err != nil {
		return err
	}
	credited := decimal.Zero
	for _, amount := range amounts {
		credited = credited.Add(amount)
	}
	if credited.Abs().GreaterThan(source.TotalGross.Abs()) {
		s.metrics.RecordCreditOverIssued(ctx, source.MerchantID.String())
		obslogger.ForDocument(obslogger.WithContext(ctx, s.log), string(document.DocTypeInvoice), source.ID.String()).Warn("credit notes exceed invoice total",
			zap.String("invoice_gross", totals.Display(source.TotalGross)),
			zap.String("credited_gross", totals.Display(credited)),
		)
	}
	return nil
}

func (s *Service) observeIssuance(ctx context.Context, merchantID snowflake.ID, start time.Time, err error) {
	docType := string(document.DocTypeCreditNote)
	var violation *document.ChronologyViolation
	switch {
	case err == nil:
		s.docMetrics.ObserveIssuance(docType, obsmetrics.OutcomeIssued, time.Since(start))
		s.metrics.RecordDocumentIssued(ctx, merchantID.String(), docType)
	case errors.As(err, &violation), errors.Is(err, document.ErrValidation), errors.Is(err, document.ErrInvalidTransition), errors.Is(err, document.ErrNotFound):
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

func buildDetail(cn domain.CreditNote, items []domain.CreditNoteItem, invoiceNo string) domain.Detail {
	if items == nil {
		items = []domain.CreditNoteItem{}
	}
	result := domain.Totals(items)
	return domain.Detail{
		CreditNote:    cn,
		Items:         items,
		DisplayNumber: document.DisplayNumber(cn.Status, cn.CreditNoteNo),
		InvoiceNo:     invoiceNo,
		Totals:        result.Summary(decimal.Zero),
		Result:        result,
	}
}

func toSummary(cn domain.CreditNote) domain.Summary {
	return domain.Summary{
		ID:            cn.ID.String(),
		InvoiceID:     cn.InvoiceID.String(),
		CreditNoteNo:  cn.CreditNoteNo,
		DisplayNumber: document.DisplayNumber(cn.Status, cn.CreditNoteNo),
		Status:        string(cn.Status),
		IssueDate:     cn.IssueDate.Format(document.DateLayout),
		ClientName:    cn.ClientName,
		TotalGross:    totals.Display(cn.TotalGross),
	}
}
