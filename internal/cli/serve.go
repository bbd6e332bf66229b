package cli

import (
	"github.com/AdrianPopi/acont/internal/chronology"
	"github.com/AdrianPopi/acont/internal/client"
	"github.com/AdrianPopi/acont/internal/clock"
	"github.com/AdrianPopi/acont/internal/config"
	"github.com/AdrianPopi/acont/internal/creditnote"
	"github.com/AdrianPopi/acont/internal/invoice"
	"github.com/AdrianPopi/acont/internal/migration"
	"github.com/AdrianPopi/acont/internal/observability"
	"github.com/AdrianPopi/acont/internal/product"
	"github.com/AdrianPopi/acont/internal/providers"
	"github.com/AdrianPopi/acont/internal/ratelimit"
	"github.com/AdrianPopi/acont/internal/sequence"
	"github.com/AdrianPopi/acont/internal/server"
	"github.com/AdrianPopi/acont/pkg/db"
	"github.com/bwmarrin/snowflake"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fx.New(serveOptions())
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}
}

func serveOptions() fx.Option {
	return fx.Options(
		infraOptions(),
		clock.Module,
		fx.Provide(RegisterSnowflake),
		migration.Module,

		sequence.Module,
		chronology.Module,
		client.Module,
		product.Module,
		invoice.Module,
		creditnote.Module,
		providers.Module,
		ratelimit.Module,

		server.Module,
	)
}

// infraOptions is shared by every command that talks to the database.
func infraOptions() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		db.Module,
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
	)
}

func RegisterSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
