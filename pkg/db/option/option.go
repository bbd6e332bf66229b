package option

import (
	"fmt"
	"strconv"
	"time"

	"github.com/AdrianPopi/acont/pkg/db/pagination"
	"gorm.io/gorm"
)

type QueryOption interface {
	Apply(db *gorm.DB) *gorm.DB
}

type keysetOption struct {
	page   pagination.Pagination
	column string
}

// ApplyPagination pages by (created_at, id) descending.
func ApplyPagination(page pagination.Pagination) QueryOption {
	return ApplyKeyset(page, "created_at")
}

// ApplyKeyset pages by (column, id) descending and fetches one extra row so
// callers can tell whether another page exists.
func ApplyKeyset(page pagination.Pagination, column string) QueryOption {
	return keysetOption{page: page, column: column}
}

func (o keysetOption) Apply(db *gorm.DB) *gorm.DB {
	if o.page.PageToken != "" {
		if cursor, err := pagination.DecodeCursor(o.page.PageToken); err == nil {
			db = applyCursor(db, o.column, cursor)
		}
	}
	return db.Limit(o.page.Size() + 1)
}

func applyCursor(db *gorm.DB, column string, cursor *pagination.Cursor) *gorm.DB {
	id, err := strconv.ParseInt(cursor.ID, 10, 64)
	if err != nil {
		return db
	}
	key, ok := parseSortKey(cursor.SortKey)
	if !ok {
		return db.Where("id < ?", id)
	}
	return db.Where(fmt.Sprintf("((%s < ?) OR (%s = ? AND id < ?))", column, column), key, key, id)
}

func parseSortKey(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
