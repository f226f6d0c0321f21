package storage

import (
	"context"
	"strings"

	"mdingest/internal/application/port"
	"mdingest/internal/domain"
	"mdingest/internal/infrastructure/storage/postgres"
	"mdingest/internal/infrastructure/storage/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Options selects and sizes the sink. Pool bounds only apply to postgres.
type Options struct {
	Driver   string
	DSN      string
	MinConns int
	MaxConns int
}

// Open builds the sink for opts.Driver. It fails if the store is unreachable.
func Open(ctx context.Context, opts Options) (port.Sink, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case DriverPostgres, "":
		if opts.DSN == "" {
			return nil, domain.ConfigErrorf("storage dsn is empty")
		}
		repo, err := postgres.New(ctx, opts.DSN, opts.MinConns, opts.MaxConns)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case DriverSQLite:
		if opts.DSN == "" {
			return nil, domain.ConfigErrorf("storage dsn is empty")
		}
		repo, err := sqlite.New(opts.DSN)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case DriverMemory:
		return NewMemorySink(), nil
	default:
		return nil, domain.ConfigErrorf("unknown storage driver %q", opts.Driver)
	}
}
