// Package repository stores merchant-owned master data such as clients and
// products. Every query is scoped to one merchant.
package repository

import (
	"context"

	"github.com/AdrianPopi/acont/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Create(ctx context.Context, resource *T) error
	// Get returns nil without error when the row does not exist or belongs
	// to another merchant.
	Get(ctx context.Context, merchantID, id snowflake.ID) (*T, error)
	List(ctx context.Context, merchantID snowflake.ID, page pagination.Pagination, filters ...Filter) ([]T, pagination.PageInfo, error)
}

// Filter narrows a List call. Filters with an empty value are skipped.
type Filter struct {
	Column string
	Value  string
	Prefix bool
}

func Equals(column, value string) Filter {
	return Filter{Column: column, Value: value}
}

// HasPrefix matches case-insensitively on the start of the column.
func HasPrefix(column, value string) Filter {
	return Filter{Column: column, Value: value, Prefix: true}
}
