package creditnote

import (
	"github.com/AdrianPopi/acont/internal/creditnote/repository"
	"github.com/AdrianPopi/acont/internal/creditnote/service"
	"go.uber.org/fx"
)

var Module = fx.Module("creditnote.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
