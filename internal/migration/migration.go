package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	clientdomain "github.com/AdrianPopi/acont/internal/client/domain"
	creditnotedomain "github.com/AdrianPopi/acont/internal/creditnote/domain"
	invoicedomain "github.com/AdrianPopi/acont/internal/invoice/domain"
	productdomain "github.com/AdrianPopi/acont/internal/product/domain"
	sequencedomain "github.com/AdrianPopi/acont/internal/sequence/domain"
	"github.com/AdrianPopi/acont/pkg/db"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationsDir = "sql"

//go:embed sql/*.sql
var embeddedMigrations embed.FS

// Models lists every persisted type, in dependency order.
func Models() []any {
	return []any{
		&clientdomain.Client{},
		&productdomain.Product{},
		&sequencedomain.Counter{},
		&invoicedomain.Invoice{},
		&invoicedomain.InvoiceItem{},
		&creditnotedomain.CreditNote{},
		&creditnotedomain.CreditNoteItem{},
	}
}

// Run brings the schema up to date. Postgres uses the embedded SQL
// migrations; other dialects are auto-migrated from the models.
func Run(conn *gorm.DB, log *zap.Logger) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	if !db.IsPostgres(conn) {
		log.Info("auto-migrating schema", zap.String("dialect", conn.Dialector.Name()))
		return conn.AutoMigrate(Models()...)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	log.Info("applying sql migrations")
	return RunMigrations(sqlDB)
}

func RunMigrations(sqlDB *sql.DB) error {
	if sqlDB == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Closing the migrator would close the shared *sql.DB.
	return nil
}
