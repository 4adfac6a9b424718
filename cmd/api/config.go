package main

import (
	"log/slog"
	"time"

	"github.com/fastprodman/playerbank/internal/config"
	"github.com/fastprodman/playerbank/internal/services/bank"
)

const (
	storePostgres = "postgres"
	storeMemory   = "memory"
)

type apiConfig struct {
	LogLevel        slog.Level    `env:"APP_LOG_LEVEL" envDefault:"INFO"`
	ShutdownTimeout time.Duration `env:"APP_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	SigningSecret   string        `env:"API_SIGNING_SECRET" envDefault:""`

	// Store selects the snapshot backend: postgres or memory. memory keeps
	// nothing across restarts.
	Store           string        `env:"PERSIST_STORE" envDefault:"postgres"`
	PersistInterval time.Duration `env:"PERSIST_SAVE_INTERVAL" envDefault:"30s"`

	HTTP     config.HTTPConfig
	Postgres config.PostgresConfig
	Game     config.GameConfig
	Bank     bank.Config
}
