package document

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusDraft, StatusIssued, true},
		{StatusIssued, StatusPaid, true},
		{StatusIssued, StatusVoid, true},
		{StatusDraft, StatusPaid, false},
		{StatusDraft, StatusVoid, false},
		{StatusPaid, StatusVoid, false},
		{StatusVoid, StatusIssued, false},
		{StatusIssued, StatusDraft, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Fatalf("CanTransition(%s, %s): expected %v, got %v", tc.from, tc.to, tc.want, got)
		}
	}
}

func TestTransitionErrorUnwraps(t *testing.T) {
	err := Transition(StatusPaid, StatusIssued)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestDisplayNumber(t *testing.T) {
	if got := DisplayNumber(StatusDraft, ""); got != "DRAFT" {
		t.Fatalf("expected DRAFT, got %s", got)
	}
	if got := DisplayNumber(StatusIssued, "000007"); got != "000007" {
		t.Fatalf("expected code, got %s", got)
	}
}

func TestClassifyStorageError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"lock timeout", &pgconn.PgError{Code: "55P03"}, true},
		{"deadlock", fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "40P01"}), true},
		{"serialization", &pgconn.PgError{Code: "40001"}, true},
		{"deadline", context.DeadlineExceeded, true},
		{"unique", &pgconn.PgError{Code: "23505"}, false},
		{"other", errors.New("boom"), false},
	}
	for _, tc := range cases {
		got := errors.Is(ClassifyStorageError(tc.err), ErrConcurrencyTimeout)
		if got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
	if ClassifyStorageError(nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("issue_date", "2025-02-03")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.Format(DateLayout) != "2025-02-03" {
		t.Fatalf("unexpected date %s", got)
	}

	_, err = ParseDate("issue_date", "03/02/2025")
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "issue_date" {
		t.Fatalf("expected issue_date validation error, got %v", err)
	}
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation in chain")
	}
}

func TestClip(t *testing.T) {
	if got := Clip("  hello  ", 10); got != "hello" {
		t.Fatalf("expected trimmed value, got %q", got)
	}
	if got := Clip("ééééé", 3); got != "ééé" {
		t.Fatalf("expected rune-safe cut, got %q", got)
	}
	if got := FirstNonEmpty("", "  ", " b ", "c"); got != "b" {
		t.Fatalf("expected b, got %q", got)
	}
}

func TestNormalizeLocale(t *testing.T) {
	if got := NormalizeLanguage(" NL "); got != LanguageNL {
		t.Fatalf("expected nl, got %s", got)
	}
	if got := NormalizeLanguage("de"); got != LanguageFR {
		t.Fatalf("expected fr fallback, got %s", got)
	}
	if c, err := NormalizeCurrency("eur"); err != nil || c != CurrencyEUR {
		t.Fatalf("expected EUR, got %q %v", c, err)
	}
	if _, err := NormalizeCurrency("USD"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
