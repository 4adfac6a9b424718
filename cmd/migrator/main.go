package main

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fastprodman/playerbank/internal/config"
	"github.com/fastprodman/playerbank/internal/infra/logging"
	"github.com/fastprodman/playerbank/internal/infra/pgutils"
	"github.com/fastprodman/playerbank/pkg/envconf"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var schemaFS embed.FS

//go:embed test_data/*.sql
var seedFS embed.FS

const envDev = "DEV"

type migratorConfig struct {
	LogLevel slog.Level `env:"APP_LOG_LEVEL" envDefault:"INFO"`
	AppEnv   string     `env:"APP_ENV" envDefault:"PROD"`
	Postgres config.PostgresConfig
}

// migrationSet is one directory of numbered migrations with its own
// version table. Seed rows are versioned apart from the schema.
type migrationSet struct {
	name    string
	fsys    fs.FS
	dir     string
	table   string
	devOnly bool
}

var migrationSets = []migrationSet{
	{name: "schema", fsys: schemaFS, dir: "migrations"},
	{name: "dev seed", fsys: seedFS, dir: "test_data", table: "seed_migrations", devOnly: true},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		slog.Error("migration run failed", "error", err)
		//nolint:gocritic
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg := new(migratorConfig)

	err := envconf.Load(cfg)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.SetupJSON(cfg.LogLevel)

	db, err := pgutils.OpenDB(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	//nolint:errcheck
	defer db.Close()

	for _, set := range migrationSets {
		if set.devOnly && cfg.AppEnv != envDev {
			slog.Debug("skipping migration set", "set", set.name, "env", cfg.AppEnv)
			continue
		}

		version, err := set.up(db)
		if err != nil {
			return fmt.Errorf("%s migrations: %w", set.name, err)
		}

		slog.Info("migrations applied", "set", set.name, "version", version)
	}

	return nil
}

// up applies every pending migration of s and returns the resulting version.
func (s migrationSet) up(db *sql.DB) (uint, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: s.table})
	if err != nil {
		return 0, fmt.Errorf("postgres driver: %w", err)
	}

	src, err := iofs.New(s.fsys, s.dir)
	if err != nil {
		return 0, fmt.Errorf("iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return 0, fmt.Errorf("migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("up: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("read version: %w", err)
	}

	if dirty {
		return version, fmt.Errorf("version %d left dirty", version)
	}

	return version, nil
}
