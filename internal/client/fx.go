package client

import (
	"github.com/AdrianPopi/acont/internal/client/repository"
	"github.com/AdrianPopi/acont/internal/client/service"
	"go.uber.org/fx"
)

var Module = fx.Module("client.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
