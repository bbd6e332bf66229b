package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/gorm"
)

func TestClassifyAllocationReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: AllocationReasonDeadlineExceeded},
		{name: "db_lock_timeout", err: &pgconn.PgError{Code: "55P03"}, want: AllocationReasonDBLockTimeout},
		{name: "serialization_failure", err: &pgconn.PgError{Code: "40001"}, want: AllocationReasonSerializationFailure},
		{name: "deadlock", err: &pgconn.PgError{Code: "40P01"}, want: AllocationReasonSerializationFailure},
		{name: "unique_violation", err: gorm.ErrDuplicatedKey, want: AllocationReasonUniqueViolation},
		{name: "unknown", err: errors.New("boom"), want: AllocationReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyAllocationReason(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestAllocationCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewDocumentMetrics(registry, Config{ServiceName: "acont", Environment: "test"})

	m.IncAllocation("invoice")
	m.IncAllocation("invoice")
	m.IncAllocation("credit_note")
	m.IncAllocationError("invoice", &pgconn.PgError{Code: "55P03"})
	m.ObserveSequenceLockWait("invoice", 5*time.Millisecond)

	if got := testutil.ToFloat64(m.allocations.WithLabelValues("invoice")); got != 2 {
		t.Fatalf("expected 2 invoice allocations, got %v", got)
	}
	if got := testutil.ToFloat64(m.allocations.WithLabelValues("credit_note")); got != 1 {
		t.Fatalf("expected 1 credit note allocation, got %v", got)
	}
	if got := testutil.ToFloat64(m.allocationErrors.WithLabelValues("invoice", AllocationReasonDBLockTimeout)); got != 1 {
		t.Fatalf("expected 1 lock timeout, got %v", got)
	}
	if got := testutil.CollectAndCount(m.sequenceLockWait); got != 2 {
		t.Fatalf("expected lock wait series per document type, got %d", got)
	}
}
