package domain

import (
	"context"
	"errors"
	"time"

	"github.com/AdrianPopi/acont/internal/document"
	"gorm.io/gorm"
)

// Allocation is the number handed to an issued document.
type Allocation struct {
	document.Numbering
}

// Allocator hands out gap-free per-key sequence numbers. Every method that
// takes a transaction must be called inside it; the row lock and the
// increment commit or roll back together with the caller's document.
type Allocator interface {
	// Lock takes the counter row lock, creating the counter lazily.
	Lock(ctx context.Context, tx *gorm.DB, key Key) (*Counter, error)
	// Allocate locks the counter, returns its current value and advances it.
	Allocate(ctx context.Context, tx *gorm.DB, key Key, issuedAt time.Time) (Allocation, error)
	// Peek previews the number the next issuance for key would receive.
	Peek(ctx context.Context, key Key, issuedAt time.Time) (Allocation, error)
}

var (
	ErrInvalidKey          = errors.New("invalid_sequence_key")
	ErrTransactionRequired = errors.New("sequence_transaction_required")
	ErrCounterMissing      = errors.New("sequence_counter_missing")
)
