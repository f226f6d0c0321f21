package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mdingest/internal/domain"
	"mdingest/internal/domain/model"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadWithEnv("", envMap(nil))
	require.NoError(t, err)

	require.Equal(t, "postgres", cfg.Storage.Driver)
	require.Equal(t, 1, cfg.Storage.MinConns)
	require.Equal(t, 4, cfg.Storage.MaxConns)
	require.Equal(t, 10*time.Second, cfg.Storage.WriteTimeout)
	require.Equal(t, 5, cfg.Backfill.LookbackYears)
	require.Equal(t, 60*time.Second, cfg.News.PollInterval)
	require.True(t, cfg.Stream.EagerOpen)
	require.Equal(t, []model.Symbol{"AAPL", "MSFT", "NVDA", "AMD"}, cfg.Universe().Symbols())
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeConfig(t, `
[storage]
driver = "sqlite"
dsn = "data/ingest.db"
write_timeout = "3s"

[symbols]
list = ["tsla", "aapl"]

[backfill]
provider = "finnhub"
fetch_timeout = "15s"

[stream]
eager_open = false
`)

	cfg, err := LoadWithEnv(path, envMap(map[string]string{
		EnvSymbolUniverse: "NVDA, AMD,NVDA",
		EnvFinnhubKey:     "fh",
		EnvDatabaseURL:    "postgres://ignored",
	}))
	require.NoError(t, err)

	require.Equal(t, "sqlite", cfg.Storage.Driver)
	require.Equal(t, "data/ingest.db", cfg.Storage.DSN)
	require.Equal(t, 3*time.Second, cfg.Storage.WriteTimeout)
	require.Equal(t, 15*time.Second, cfg.Backfill.FetchTimeout)
	require.False(t, cfg.Stream.EagerOpen)
	require.Equal(t, []model.Symbol{"NVDA", "AMD", "NVDA"}, cfg.Universe().Symbols())
	require.NoError(t, cfg.RequireBackfill())
}

func TestLoadInvalid(t *testing.T) {
	_, err := LoadWithEnv(filepath.Join(t.TempDir(), "missing.toml"), envMap(nil))
	require.ErrorIs(t, err, domain.ErrConfig)

	path := writeConfig(t, "[storage]\ndriver = \"mysql\"\n")
	_, err = LoadWithEnv(path, envMap(nil))
	require.ErrorIs(t, err, domain.ErrConfig)

	_, err = LoadWithEnv("", envMap(map[string]string{EnvSymbolUniverse: " , "}))
	require.ErrorIs(t, err, domain.ErrConfig)
}

func TestRequireSecrets(t *testing.T) {
	cfg, err := LoadWithEnv("", envMap(nil))
	require.NoError(t, err)
	require.ErrorIs(t, cfg.RequireBackfill(), domain.ErrConfig)
	require.ErrorIs(t, cfg.RequireStream(), domain.ErrConfig)
	require.ErrorIs(t, cfg.RequireNews(), domain.ErrConfig)

	cfg, err = LoadWithEnv("", envMap(map[string]string{
		EnvDatabaseURL:  "postgres://u:p@localhost/db",
		EnvAlpacaKey:    "k",
		EnvAlpacaSecret: "s",
		EnvNewsdataKey:  "n",
	}))
	require.NoError(t, err)
	require.NoError(t, cfg.RequireBackfill())
	require.NoError(t, cfg.RequireStream())
	require.NoError(t, cfg.RequireNews())

	key, secret := cfg.Credentials("alpaca")
	require.Equal(t, "k", key)
	require.Equal(t, "s", secret)
}
