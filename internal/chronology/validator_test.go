package chronology

import (
	"errors"
	"testing"
	"time"

	"github.com/AdrianPopi/acont/internal/clock"
	"github.com/AdrianPopi/acont/internal/document"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

func violation(t *testing.T, err error) *document.ChronologyViolation {
	t.Helper()
	var v *document.ChronologyViolation
	if !errors.As(err, &v) {
		t.Fatalf("expected chronology violation, got %v", err)
	}
	return v
}

func TestValidateInvoice(t *testing.T) {
	v := New(clock.NewFakeClock(time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC)))

	tests := []struct {
		name    string
		dates   InvoiceDates
		last    *time.Time
		rule    document.ChronologyRule
		message string
	}{
		{name: "today without history", dates: InvoiceDates{IssueDate: day(2025, 3, 10)}},
		{name: "same day as last issued", dates: InvoiceDates{IssueDate: day(2025, 3, 5)}, last: ptr(day(2025, 3, 5))},
		{name: "due equals issue", dates: InvoiceDates{IssueDate: day(2025, 3, 5), DueDate: ptr(day(2025, 3, 5))}},
		{
			name:    "future issue date",
			dates:   InvoiceDates{IssueDate: day(2025, 3, 11)},
			rule:    document.RuleFutureDate,
			message: "Issue date cannot be in the future",
		},
		{
			name:    "before last issued",
			dates:   InvoiceDates{IssueDate: day(2025, 3, 1)},
			last:    ptr(day(2025, 3, 5)),
			rule:    document.RuleBeforeLastIssued,
			message: "Issue date cannot be before last issued invoice date (2025-03-05)",
		},
		{
			name:    "due before issue",
			dates:   InvoiceDates{IssueDate: day(2025, 3, 5), DueDate: ptr(day(2025, 3, 4))},
			rule:    document.RuleDueBeforeIssue,
			message: "Due date cannot be before issue date",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateInvoice(tt.dates, tt.last)
			if tt.rule == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			got := violation(t, err)
			if got.Rule != tt.rule {
				t.Fatalf("expected rule %s, got %s", tt.rule, got.Rule)
			}
			if got.Message != tt.message {
				t.Fatalf("expected message %q, got %q", tt.message, got.Message)
			}
		})
	}
}

func TestValidateCreditNote(t *testing.T) {
	v := New(clock.NewFakeClock(day(2025, 3, 10)))

	if err := v.ValidateCreditNote(day(2025, 3, 6), day(2025, 3, 6), nil); err != nil {
		t.Fatalf("same day as source: %v", err)
	}

	got := violation(t, v.ValidateCreditNote(day(2025, 3, 4), day(2025, 3, 5), nil))
	if got.Rule != document.RuleBeforeSourceIssue {
		t.Fatalf("expected source rule, got %s", got.Rule)
	}
	if !got.Date.Equal(day(2025, 3, 5)) {
		t.Fatalf("expected conflicting date 2025-03-05, got %s", got.Date)
	}

	got = violation(t, v.ValidateCreditNote(day(2025, 3, 6), day(2025, 3, 1), ptr(day(2025, 3, 8))))
	if got.Rule != document.RuleBeforeLastIssued {
		t.Fatalf("expected last issued rule, got %s", got.Rule)
	}
	if got.Message != "Issue date cannot be before last issued credit note date (2025-03-08)" {
		t.Fatalf("unexpected message %q", got.Message)
	}

	got = violation(t, v.ValidateCreditNote(day(2025, 3, 11), day(2025, 3, 1), nil))
	if got.Rule != document.RuleFutureDate {
		t.Fatalf("expected future rule, got %s", got.Rule)
	}
}
