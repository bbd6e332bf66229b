package chronology

import "go.uber.org/fx"

var Module = fx.Module("chronology",
	fx.Provide(New),
)
