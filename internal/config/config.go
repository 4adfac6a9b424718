package config

import "time"

type PostgresConfig struct {
	DSN             string        `env:"PG_DSN" envDefault:""`
	MaxOpenConns    int           `env:"PG_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns    int           `env:"PG_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxIdleTime time.Duration `env:"PG_CONN_MAX_IDLE_TIME" envDefault:"5m"`
	ConnMaxLifetime time.Duration `env:"PG_CONN_MAX_LIFETIME" envDefault:"30m"`
}

// GameConfig maps wall-clock time onto in-game days.
type GameConfig struct {
	Epoch     time.Time     `env:"GAME_EPOCH" envDefault:"2024-01-01T00:00:00Z"`
	DayLength time.Duration `env:"GAME_DAY_LENGTH" envDefault:"20m"`
	PollEvery time.Duration `env:"GAME_POLL_INTERVAL" envDefault:"5s"`
}

// HTTPConfig is the listener and its per-connection deadlines.
type HTTPConfig struct {
	Port              uint16        `env:"APP_PORT" envDefault:"8080"`
	ReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" envDefault:"5s"`
}
