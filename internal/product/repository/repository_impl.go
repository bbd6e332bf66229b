package repository

import (
	"time"

	"github.com/AdrianPopi/acont/internal/product/domain"
	"github.com/AdrianPopi/acont/pkg/db/pagination"
	"github.com/AdrianPopi/acont/pkg/repository"
	"gorm.io/gorm"
)

func Provide(db *gorm.DB) domain.Repository {
	return repository.ProvideStore(db, func(p *domain.Product) pagination.Cursor {
		return pagination.Cursor{ID: p.ID.String(), SortKey: p.CreatedAt.Format(time.RFC3339Nano)}
	})
}
