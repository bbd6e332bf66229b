package invoice

import (
	"github.com/AdrianPopi/acont/internal/invoice/repository"
	"github.com/AdrianPopi/acont/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
