package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	AllocationReasonDeadlineExceeded     = "deadline_exceeded"
	AllocationReasonDBLockTimeout        = "db_lock_timeout"
	AllocationReasonSerializationFailure = "serialization_failure"
	AllocationReasonUniqueViolation      = "unique_violation"
	AllocationReasonUnknown              = "unknown"
)

const (
	OutcomeIssued   = "issued"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// DocumentMetrics captures issuance health signals: sequence lock contention,
// allocation failures and end-to-end issuance latency.
type DocumentMetrics struct {
	sequenceLockWait   *prometheus.HistogramVec
	allocationErrors   *prometheus.CounterVec
	allocations        *prometheus.CounterVec
	issuanceDuration   *prometheus.HistogramVec
	lockWaitObservers  map[string]prometheus.Observer
	allocationCounters map[string]prometheus.Counter
}

var (
	documentMetricsOnce sync.Once
	documentMetrics     *DocumentMetrics
)

// Documents returns the singleton document metrics registry.
func Documents() *DocumentMetrics {
	return DocumentsWithConfig(Config{})
}

// DocumentsWithConfig returns the singleton document metrics registry using config labels.
func DocumentsWithConfig(cfg Config) *DocumentMetrics {
	documentMetricsOnce.Do(func() {
		documentMetrics = newDocumentMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return documentMetrics
}

// ResetDocumentMetricsForTest resets the document metrics singleton for tests.
func ResetDocumentMetricsForTest() {
	documentMetricsOnce = sync.Once{}
	documentMetrics = nil
}

// NewDocumentMetrics builds document metrics on a caller-supplied registry.
func NewDocumentMetrics(registerer prometheus.Registerer, cfg Config) *DocumentMetrics {
	return newDocumentMetrics(registerer, cfg)
}

func newDocumentMetrics(registerer prometheus.Registerer, cfg Config) *DocumentMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "acont"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	sequenceLockWait := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "acont_sequence_lock_wait_seconds",
		Help:        "Time spent waiting for the document sequence row lock.",
		Buckets:     []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		ConstLabels: constLabels,
	}, []string{"doc_type"})
	allocationErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "acont_sequence_allocation_errors_total",
		Help:        "Sequence allocation failures by document type and reason.",
		ConstLabels: constLabels,
	}, []string{"doc_type", "reason"})
	allocations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "acont_sequence_allocations_total",
		Help:        "Sequence numbers handed out by document type.",
		ConstLabels: constLabels,
	}, []string{"doc_type"})
	issuanceDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "acont_document_issuance_duration_seconds",
		Help:        "Document create-and-issue latency by outcome.",
		Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		ConstLabels: constLabels,
	}, []string{"doc_type", "outcome"})

	registerer.MustRegister(
		sequenceLockWait,
		allocationErrors,
		allocations,
		issuanceDuration,
	)

	lockWaitObservers := map[string]prometheus.Observer{}
	allocationCounters := map[string]prometheus.Counter{}
	for _, docType := range []string{"invoice", "credit_note"} {
		lockWaitObservers[docType] = sequenceLockWait.WithLabelValues(docType)
		allocationCounters[docType] = allocations.WithLabelValues(docType)
	}

	return &DocumentMetrics{
		sequenceLockWait:   sequenceLockWait,
		allocationErrors:   allocationErrors,
		allocations:        allocations,
		issuanceDuration:   issuanceDuration,
		lockWaitObservers:  lockWaitObservers,
		allocationCounters: allocationCounters,
	}
}

// ObserveSequenceLockWait records how long a caller waited for the counter row.
func (m *DocumentMetrics) ObserveSequenceLockWait(docType string, duration time.Duration) {
	if m == nil {
		return
	}
	if observer, ok := m.lockWaitObservers[docType]; ok {
		observer.Observe(duration.Seconds())
		return
	}
	m.sequenceLockWait.WithLabelValues(docType).Observe(duration.Seconds())
}

func (m *DocumentMetrics) IncAllocation(docType string) {
	if m == nil {
		return
	}
	if counter, ok := m.allocationCounters[docType]; ok {
		counter.Inc()
		return
	}
	m.allocations.WithLabelValues(docType).Inc()
}

// IncAllocationError increments the allocation failure counter with classification.
func (m *DocumentMetrics) IncAllocationError(docType string, err error) {
	if m == nil || err == nil {
		return
	}
	m.allocationErrors.WithLabelValues(docType, ClassifyAllocationReason(err)).Inc()
}

func (m *DocumentMetrics) ObserveIssuance(docType, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.issuanceDuration.WithLabelValues(docType, outcome).Observe(duration.Seconds())
}

// ClassifyAllocationReason maps storage errors to a low-cardinality reason label.
func ClassifyAllocationReason(err error) string {
	switch {
	case err == nil:
		return AllocationReasonUnknown
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return AllocationReasonDeadlineExceeded
	case hasPGCode(err, "55P03"):
		return AllocationReasonDBLockTimeout
	case hasPGCode(err, "40001"), hasPGCode(err, "40P01"):
		return AllocationReasonSerializationFailure
	case errors.Is(err, gorm.ErrDuplicatedKey), hasPGCode(err, "23505"):
		return AllocationReasonUniqueViolation
	default:
		return AllocationReasonUnknown
	}
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}
