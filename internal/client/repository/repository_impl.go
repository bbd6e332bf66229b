package repository

import (
	"time"

	"github.com/AdrianPopi/acont/internal/client/domain"
	"github.com/AdrianPopi/acont/pkg/db/pagination"
	"github.com/AdrianPopi/acont/pkg/repository"
	"gorm.io/gorm"
)

func Provide(db *gorm.DB) domain.Repository {
	return repository.ProvideStore(db, func(c *domain.Client) pagination.Cursor {
		return pagination.Cursor{ID: c.ID.String(), SortKey: c.CreatedAt.Format(time.RFC3339Nano)}
	})
}
