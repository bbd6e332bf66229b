package sequence

import (
	"github.com/AdrianPopi/acont/internal/sequence/repository"
	"github.com/AdrianPopi/acont/internal/sequence/service"
	"go.uber.org/fx"
)

var Module = fx.Module("sequence.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
