package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/AdrianPopi/acont/pkg/db/option"
	"github.com/AdrianPopi/acont/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type store[T any] struct {
	db     *gorm.DB
	cursor func(*T) pagination.Cursor
}

// ProvideStore builds a store whose pages are ordered by (created_at, id)
// descending. cursor extracts those two values from a row.
func ProvideStore[T any](db *gorm.DB, cursor func(*T) pagination.Cursor) Repository[T] {
	return &store[T]{db: db, cursor: cursor}
}

func (r *store[T]) WithTrx(tx *gorm.DB) Repository[T] {
	return &store[T]{db: tx, cursor: r.cursor}
}

func (r *store[T]) Create(ctx context.Context, resource *T) error {
	return r.db.WithContext(ctx).Create(resource).Error
}

func (r *store[T]) Get(ctx context.Context, merchantID, id snowflake.ID) (*T, error) {
	var result T
	err := r.db.WithContext(ctx).
		Where("merchant_id = ? AND id = ?", merchantID, id).
		Take(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *store[T]) List(ctx context.Context, merchantID snowflake.ID, page pagination.Pagination, filters ...Filter) ([]T, pagination.PageInfo, error) {
	query := r.db.WithContext(ctx).Model(new(T)).Where("merchant_id = ?", merchantID)
	for _, f := range filters {
		query = applyFilter(query, f)
	}

	var rows []*T
	err := option.ApplyPagination(page).Apply(query).
		Order("created_at desc, id desc").
		Find(&rows).Error
	if err != nil {
		return nil, pagination.PageInfo{}, err
	}

	limit := page.Size()
	info := pagination.BuildCursorPageInfo(rows, limit, func(row *T) string {
		token, err := pagination.EncodeCursor(r.cursor(row))
		if err != nil {
			return ""
		}
		return token
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}

	items := make([]T, 0, len(rows))
	for _, row := range rows {
		items = append(items, *row)
	}
	return items, *info, nil
}

func applyFilter(query *gorm.DB, f Filter) *gorm.DB {
	value := strings.TrimSpace(f.Value)
	if value == "" || f.Column == "" {
		return query
	}
	if f.Prefix {
		return query.Where(fmt.Sprintf("LOWER(%s) LIKE ?", f.Column), strings.ToLower(value)+"%")
	}
	return query.Where(fmt.Sprintf("%s = ?", f.Column), value)
}
