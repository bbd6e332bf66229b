package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/AdrianPopi/acont/internal/clock"
	"github.com/AdrianPopi/acont/internal/config"
	"github.com/AdrianPopi/acont/internal/document"
	"github.com/AdrianPopi/acont/internal/invoice/format"
	obsmetrics "github.com/AdrianPopi/acont/internal/observability/metrics"
	"github.com/AdrianPopi/acont/internal/sequence/domain"
	"github.com/AdrianPopi/acont/pkg/db"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Cfg       config.Config
	Clock     clock.Clock
	Repo      domain.Repository
	Numbering *config.NumberingHolder     `optional:"true"`
	Metrics   *obsmetrics.DocumentMetrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	repo        domain.Repository
	numbering   *config.NumberingHolder
	metrics     *obsmetrics.DocumentMetrics
	lockTimeout time.Duration
	tracer      trace.Tracer
}

func New(p Params) domain.Allocator {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("sequence.service"),
		clock:       p.Clock,
		repo:        p.Repo,
		numbering:   p.Numbering,
		metrics:     p.Metrics,
		lockTimeout: p.Cfg.DocumentLockTimeout,
		tracer:      otel.Tracer("acont/sequence"),
	}
}

func (s *Service) Lock(ctx context.Context, tx *gorm.DB, key domain.Key) (*domain.Counter, error) {
	if !key.Valid() {
		return nil, domain.ErrInvalidKey
	}
	if !db.InTransaction(tx) {
		return nil, domain.ErrTransactionRequired
	}

	ctx, span := s.tracer.Start(ctx, "sequence.lock", trace.WithAttributes(keyAttributes(key)...))
	defer span.End()

	start := time.Now()
	counter, err := s.lock(ctx, tx, key)
	s.metrics.ObserveSequenceLockWait(string(key.DocType), time.Since(start))
	if err != nil {
		s.metrics.IncAllocationError(string(key.DocType), err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "lock failed")
		return nil, document.ClassifyStorageError(err)
	}
	return counter, nil
}

func (s *Service) lock(ctx context.Context, tx *gorm.DB, key domain.Key) (*domain.Counter, error) {
	if err := s.repo.SetLockTimeout(ctx, tx, s.lockTimeout); err != nil {
		return nil, err
	}

	counter, err := s.repo.LockCounter(ctx, tx, key)
	if err != nil {
		return nil, err
	}
	if counter != nil {
		return counter, nil
	}

	if err := s.repo.EnsureCounter(ctx, tx, key, s.clock.Now()); err != nil {
		return nil, err
	}
	counter, err = s.repo.LockCounter(ctx, tx, key)
	if err != nil {
		return nil, err
	}
	if counter == nil {
		return nil, domain.ErrCounterMissing
	}
	return counter, nil
}

func (s *Service) Allocate(ctx context.Context, tx *gorm.DB, key domain.Key, issuedAt time.Time) (domain.Allocation, error) {
	counter, err := s.Lock(ctx, tx, key)
	if err != nil {
		return domain.Allocation{}, err
	}

	n := counter.NextNumber
	if n <= 0 {
		return domain.Allocation{}, fmt.Errorf("sequence %s/%d/%s holds invalid next number %d",
			key.MerchantID, key.Year, key.DocType, n)
	}

	allocation, err := s.render(key, issuedAt, n)
	if err != nil {
		return domain.Allocation{}, err
	}

	if err := s.repo.SetNext(ctx, tx, key, n+1, s.clock.Now()); err != nil {
		s.metrics.IncAllocationError(string(key.DocType), err)
		return domain.Allocation{}, document.ClassifyStorageError(err)
	}

	s.metrics.IncAllocation(string(key.DocType))
	trace.SpanFromContext(ctx).AddEvent("sequence.allocated", trace.WithAttributes(
		attribute.Int64("sequence.number", n),
	))
	s.log.Debug("sequence allocated",
		zap.String("merchant_id", key.MerchantID.String()),
		zap.Int("year", key.Year),
		zap.String("doc_type", string(key.DocType)),
		zap.Int64("number", n),
	)
	return allocation, nil
}

func (s *Service) Peek(ctx context.Context, key domain.Key, issuedAt time.Time) (domain.Allocation, error) {
	if !key.Valid() {
		return domain.Allocation{}, domain.ErrInvalidKey
	}
	counter, err := s.repo.PeekCounter(ctx, s.db, key)
	if err != nil {
		return domain.Allocation{}, err
	}
	next := int64(1)
	if counter != nil {
		next = counter.NextNumber
	}
	return s.render(key, issuedAt, next)
}

func (s *Service) render(key domain.Key, issuedAt time.Time, n int64) (domain.Allocation, error) {
	series := s.numbering.Get().For(string(key.DocType))
	code, err := format.FormatNumber(series.Template, issuedAt, series.Series, n)
	if err != nil {
		return domain.Allocation{}, err
	}
	return domain.Allocation{
		Numbering: document.Numbering{
			Series: series.Series,
			Year:   key.Year,
			Number: n,
			Code:   code,
		},
	}, nil
}

func keyAttributes(key domain.Key) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("merchant_id", key.MerchantID.String()),
		attribute.String("doc_type", string(key.DocType)),
		attribute.String("year", strconv.Itoa(key.Year)),
	}
}
