package svc

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"mdingest/internal/domain"
	"mdingest/internal/infrastructure/config"
)

func loadConfig(t *testing.T, env map[string]string) *config.Config {
	t.Helper()
	cfg, err := config.LoadWithEnv("", func(k string) string { return env[k] })
	require.NoError(t, err)
	return cfg
}

func TestBuildServicesRequireSecrets(t *testing.T) {
	sc, err := New(context.Background(), loadConfig(t, nil))
	require.NoError(t, err)
	defer sc.Close()

	_, err = sc.BuildBackfillService()
	require.ErrorIs(t, err, domain.ErrConfig)
	_, err = sc.BuildStreamService(0)
	require.ErrorIs(t, err, domain.ErrConfig)
	_, err = sc.BuildNewsService()
	require.ErrorIs(t, err, domain.ErrConfig)
}

func TestBuildServicesWithSQLite(t *testing.T) {
	cfg := loadConfig(t, map[string]string{
		config.EnvDatabaseURL:  filepath.Join(t.TempDir(), "ingest.db"),
		config.EnvAlpacaKey:    "k",
		config.EnvAlpacaSecret: "s",
		config.EnvNewsdataKey:  "n",
	})
	cfg.Storage.Driver = "sqlite"

	sc, err := New(context.Background(), cfg)
	require.NoError(t, err)

	bf, err := sc.BuildBackfillService()
	require.NoError(t, err)
	require.NotNil(t, bf)

	st, err := sc.BuildStreamService(0)
	require.NoError(t, err)
	require.NotNil(t, st)

	nw, err := sc.BuildNewsService()
	require.NoError(t, err)
	require.NotNil(t, nw)

	require.NoError(t, sc.Close())
}
