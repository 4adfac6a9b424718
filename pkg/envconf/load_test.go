package envconf

import (
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nested struct {
	Limit decimal.Decimal `env:"TEST_ENVCONF_LIMIT" envDefault:"10000"`
	Weeks int             `env:"TEST_ENVCONF_WEEKS" envDefault:"4"`
}

type sample struct {
	Port     uint16        `env:"TEST_ENVCONF_PORT"`
	Level    slog.Level    `env:"TEST_ENVCONF_LEVEL" envDefault:"INFO"`
	Timeout  time.Duration `env:"TEST_ENVCONF_TIMEOUT" envDefault:"5s"`
	Secret   string        `env:"TEST_ENVCONF_SECRET" envDefault:""`
	Player   uuid.UUID     `env:"TEST_ENVCONF_PLAYER" envDefault:"00000000-0000-0000-0000-000000000000"`
	Nested   nested
	Optional *nested
	skipped  string
}

func lookupMap(m map[string]string) LookupFunc {
	return func(name string) (string, bool) {
		v, ok := m[name]
		return v, ok
	}
}

func TestLoadFrom_DefaultsAndOverrides(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		"TEST_ENVCONF_PORT":  "8080",
		"TEST_ENVCONF_LEVEL": "DEBUG",
		"TEST_ENVCONF_LIMIT": "250.50",
	}

	var cfg sample
	require.NoError(t, LoadFrom(&cfg, lookupMap(env)))

	assert.Equal(t, uint16(8080), cfg.Port)
	assert.Equal(t, slog.LevelDebug, cfg.Level)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Empty(t, cfg.Secret)
	assert.Equal(t, uuid.Nil, cfg.Player)
	assert.True(t, cfg.Nested.Limit.Equal(decimal.RequireFromString("250.50")))
	assert.Equal(t, 4, cfg.Nested.Weeks)
	require.NotNil(t, cfg.Optional)
	assert.True(t, cfg.Optional.Limit.Equal(decimal.RequireFromString("250.50")))
	assert.Empty(t, cfg.skipped)
}

//nolint:paralleltest
func TestLoad_ReadsProcessEnvironment(t *testing.T) {
	t.Setenv("TEST_ENVCONF_PORT", "9090")

	var cfg sample
	require.NoError(t, Load(&cfg))
	assert.Equal(t, uint16(9090), cfg.Port)
}

type twoRequired struct {
	A string `env:"TEST_ENVCONF_A"`
	B struct {
		C int `env:"TEST_ENVCONF_C"`
	}
}

func TestLoadFrom_ReportsAllMissing(t *testing.T) {
	t.Parallel()

	var cfg twoRequired

	err := LoadFrom(&cfg, lookupMap(nil))
	require.ErrorIs(t, err, ErrMissingRequired)
	assert.Contains(t, err.Error(), "TEST_ENVCONF_A (field A)")
	assert.Contains(t, err.Error(), "TEST_ENVCONF_C (field B.C)")
}

func TestLoadFrom_BadValue(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		"TEST_ENVCONF_PORT":  "8080",
		"TEST_ENVCONF_WEEKS": "four",
	}

	var cfg sample

	err := LoadFrom(&cfg, lookupMap(env))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TEST_ENVCONF_WEEKS")
	assert.Contains(t, err.Error(), "Nested.Weeks")
}

func TestLoad_RejectsNonPointer(t *testing.T) {
	t.Parallel()

	require.Error(t, Load(nil))
	require.Error(t, Load(sample{}))

	n := 1
	require.Error(t, Load(&n))
}

type unsupported struct {
	Values []string `env:"TEST_ENVCONF_VALUES" envDefault:"a,b"`
}

func TestLoad_UnsupportedType(t *testing.T) {
	t.Parallel()

	var cfg unsupported
	require.ErrorIs(t, Load(&cfg), ErrUnsupportedType)
}
