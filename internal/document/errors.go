package document

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrValidation         = errors.New("validation_error")
	ErrNotFound           = errors.New("not_found")
	ErrConcurrencyTimeout = errors.New("concurrency_timeout")
	ErrInvalidTransition  = errors.New("invalid_transition")
	ErrNotDraft           = errors.New("document_not_draft")
	ErrInvalidMerchant    = errors.New("invalid_merchant")
	ErrInvalidID          = errors.New("invalid_id")
)

// ValidationError reports malformed input on a single field.
type ValidationError struct {
	Field   string
	Code    string
	Message string
}

func NewValidationError(field, code, message string) *ValidationError {
	return &ValidationError{Field: field, Code: code, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Code
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

type ChronologyRule string

const (
	RuleFutureDate        ChronologyRule = "future_date"
	RuleDueBeforeIssue    ChronologyRule = "due_before_issue"
	RuleBeforeLastIssued  ChronologyRule = "before_last_issued"
	RuleBeforeSourceIssue ChronologyRule = "before_source_invoice"
)

// ChronologyViolation is returned when document dates break ordering rules.
// Date is the conflicting reference date.
type ChronologyViolation struct {
	Rule    ChronologyRule
	Date    time.Time
	Message string
}

func (e *ChronologyViolation) Error() string {
	return e.Message
}

// TransitionError reports a rejected status change.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move document from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

const (
	pgLockNotAvailable     = "55P03"
	pgDeadlockDetected     = "40P01"
	pgSerializationFailure = "40001"
	pgQueryCanceled        = "57014"
)

// ClassifyStorageError maps lock and timeout failures from the storage layer to
// ErrConcurrencyTimeout. Other errors are returned unchanged.
func ClassifyStorageError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrConcurrencyTimeout) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		hasPGCode(err, pgLockNotAvailable) ||
		hasPGCode(err, pgDeadlockDetected) ||
		hasPGCode(err, pgSerializationFailure) ||
		hasPGCode(err, pgQueryCanceled) {
		return fmt.Errorf("%w: %v", ErrConcurrencyTimeout, err)
	}
	return err
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}
