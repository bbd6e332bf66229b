package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/AdrianPopi/acont/internal/sequence/domain"
	"github.com/AdrianPopi/acont/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) LockCounter(ctx context.Context, tx *gorm.DB, key domain.Key) (*domain.Counter, error) {
	var counter domain.Counter
	stmt := tx.WithContext(ctx).Model(&domain.Counter{})
	if !db.IsSQLite(tx) {
		// SQLite serializes writers on the database file instead.
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := stmt.
		Where("merchant_id = ? AND year = ? AND doc_type = ?", key.MerchantID, key.Year, string(key.DocType)).
		Limit(1).
		Find(&counter).Error
	if err != nil {
		return nil, err
	}
	if counter.MerchantID == 0 {
		return nil, nil
	}
	return &counter, nil
}

func (r *repo) EnsureCounter(ctx context.Context, tx *gorm.DB, key domain.Key, now time.Time) error {
	counter := domain.Counter{
		MerchantID: key.MerchantID,
		Year:       key.Year,
		DocType:    string(key.DocType),
		NextNumber: 1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "merchant_id"}, {Name: "year"}, {Name: "doc_type"}},
			DoNothing: true,
		}).
		Create(&counter).Error
}

func (r *repo) PeekCounter(ctx context.Context, conn *gorm.DB, key domain.Key) (*domain.Counter, error) {
	var counter domain.Counter
	err := conn.WithContext(ctx).
		Where("merchant_id = ? AND year = ? AND doc_type = ?", key.MerchantID, key.Year, string(key.DocType)).
		Limit(1).
		Find(&counter).Error
	if err != nil {
		return nil, err
	}
	if counter.MerchantID == 0 {
		return nil, nil
	}
	return &counter, nil
}

func (r *repo) SetNext(ctx context.Context, tx *gorm.DB, key domain.Key, next int64, now time.Time) error {
	res := tx.WithContext(ctx).
		Model(&domain.Counter{}).
		Where("merchant_id = ? AND year = ? AND doc_type = ?", key.MerchantID, key.Year, string(key.DocType)).
		Updates(map[string]any{
			"next_number": next,
			"updated_at":  now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return domain.ErrCounterMissing
	}
	return nil
}

func (r *repo) SetLockTimeout(ctx context.Context, tx *gorm.DB, timeout time.Duration) error {
	if timeout <= 0 || !db.IsPostgres(tx) {
		return nil
	}
	return tx.WithContext(ctx).
		Exec(fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", timeout.Milliseconds())).Error
}
