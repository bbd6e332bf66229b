package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	// LockCounter reads the counter under an exclusive row lock held until the
	// transaction ends. It returns nil when the row does not exist.
	LockCounter(ctx context.Context, tx *gorm.DB, key Key) (*Counter, error)
	// EnsureCounter inserts the row with next_number = 1 unless it exists.
	EnsureCounter(ctx context.Context, tx *gorm.DB, key Key, now time.Time) error
	PeekCounter(ctx context.Context, db *gorm.DB, key Key) (*Counter, error)
	SetNext(ctx context.Context, tx *gorm.DB, key Key, next int64, now time.Time) error
	// SetLockTimeout bounds lock waits for the rest of the transaction.
	SetLockTimeout(ctx context.Context, tx *gorm.DB, timeout time.Duration) error
}
