package providers

import (
	"github.com/AdrianPopi/acont/internal/providers/pdf"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	pdf.Module,
)
