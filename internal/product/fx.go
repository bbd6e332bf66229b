package product

import (
	"github.com/AdrianPopi/acont/internal/product/repository"
	"github.com/AdrianPopi/acont/internal/product/service"
	"go.uber.org/fx"
)

var Module = fx.Module("product.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
