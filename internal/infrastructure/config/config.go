package config

import (
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"mdingest/internal/domain"
	"mdingest/internal/domain/model"
)

const DefaultUniverse = "AAPL,MSFT,NVDA,AMD"

// Environment variable names for secrets and overrides.
const (
	EnvDatabaseURL    = "DATABASE_URL"
	EnvAlpacaKey      = "ALPACA_PAPER_KEY"
	EnvAlpacaSecret   = "ALPACA_PAPER_SECRET"
	EnvFinnhubKey     = "FINNHUB_API_KEY"
	EnvNewsdataKey    = "NEWSDATA_API_KEY"
	EnvSymbolUniverse = "SYMBOL_UNIVERSE"
)

type Config struct {
	Storage struct {
		Driver       string        `toml:"driver"`
		DSN          string        `toml:"dsn"`
		MinConns     int           `toml:"min_conns"`
		MaxConns     int           `toml:"max_conns"`
		WriteTimeout time.Duration `toml:"write_timeout"`
	} `toml:"storage"`

	Symbols struct {
		List []string `toml:"list"`
	} `toml:"symbols"`

	Backfill struct {
		Provider      string        `toml:"provider"`
		Interval      string        `toml:"interval"`
		LookbackYears int           `toml:"lookback_years"`
		FetchTimeout  time.Duration `toml:"fetch_timeout"`
		BaseURL       string        `toml:"base_url"`
	} `toml:"backfill"`

	Stream struct {
		Provider  string `toml:"provider"`
		Feed      string `toml:"feed"`
		URL       string `toml:"url"`
		EagerOpen bool   `toml:"eager_open"`
	} `toml:"stream"`

	News struct {
		Enabled      bool          `toml:"enabled"`
		BaseURL      string        `toml:"base_url"`
		PollInterval time.Duration `toml:"poll_interval"`
		Language     string        `toml:"language"`
		FetchTimeout time.Duration `toml:"fetch_timeout"`
	} `toml:"news"`

	Redis struct {
		Enabled    bool   `toml:"enabled"`
		Addr       string `toml:"addr"`
		Password   string `toml:"password"`
		DB         int    `toml:"db"`
		Prefix     string `toml:"prefix"`
		TTLSeconds int    `toml:"ttl_seconds"`
		Stream     string `toml:"stream"`
		Channel    string `toml:"channel"`
	} `toml:"redis"`

	Log struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
	} `toml:"log"`

	// Secrets never come from the file.
	Secrets Secrets `toml:"-"`

	universe model.SymbolUniverse
}

type Secrets struct {
	AlpacaKey    string
	AlpacaSecret string
	FinnhubKey   string
	NewsdataKey  string
}

// Load reads .env (see LoadDotenvOnce), then the TOML file at path, then the environment.
// An empty path uses defaults plus environment only.
func Load(path string) (*Config, error) {
	LoadDotenvOnce()
	return LoadWithEnv(path, os.Getenv)
}

// LoadWithEnv is Load with an explicit environment lookup.
func LoadWithEnv(path string, getenv func(string) string) (*Config, error) {
	cfg := defaultConfig()
	if strings.TrimSpace(path) != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, domain.ConfigErrorf("decode %s: %v", path, err)
		}
	}
	applyEnv(cfg, getenv)
	applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Universe is the configured symbol list, in order, duplicates kept.
func (c *Config) Universe() model.SymbolUniverse { return c.universe }

func defaultConfig() *Config {
	var cfg Config
	cfg.Stream.EagerOpen = true
	return &cfg
}

func applyEnv(cfg *Config, getenv func(string) string) {
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = strings.TrimSpace(getenv(EnvDatabaseURL))
	}
	cfg.Secrets = Secrets{
		AlpacaKey:    strings.TrimSpace(getenv(EnvAlpacaKey)),
		AlpacaSecret: strings.TrimSpace(getenv(EnvAlpacaSecret)),
		FinnhubKey:   strings.TrimSpace(getenv(EnvFinnhubKey)),
		NewsdataKey:  strings.TrimSpace(getenv(EnvNewsdataKey)),
	}
	if u := strings.TrimSpace(getenv(EnvSymbolUniverse)); u != "" {
		cfg.Symbols.List = strings.Split(u, ",")
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "postgres"
	}
	if cfg.Storage.MinConns <= 0 {
		cfg.Storage.MinConns = 1
	}
	if cfg.Storage.MaxConns <= 0 {
		cfg.Storage.MaxConns = 4
	}
	if cfg.Storage.WriteTimeout <= 0 {
		cfg.Storage.WriteTimeout = 10 * time.Second
	}
	if len(cfg.Symbols.List) == 0 {
		cfg.Symbols.List = strings.Split(DefaultUniverse, ",")
	}
	if cfg.Backfill.Provider == "" {
		cfg.Backfill.Provider = "alpaca"
	}
	if cfg.Backfill.Interval == "" {
		cfg.Backfill.Interval = "1Day"
	}
	if cfg.Backfill.LookbackYears <= 0 {
		cfg.Backfill.LookbackYears = model.DefaultLookbackYears
	}
	if cfg.Backfill.FetchTimeout <= 0 {
		cfg.Backfill.FetchTimeout = 60 * time.Second
	}
	if cfg.Stream.Provider == "" {
		cfg.Stream.Provider = "alpaca"
	}
	if cfg.Stream.Feed == "" {
		cfg.Stream.Feed = "iex"
	}
	if cfg.News.BaseURL == "" {
		cfg.News.BaseURL = "https://newsdata.io/api/1"
	}
	if cfg.News.PollInterval <= 0 {
		cfg.News.PollInterval = 60 * time.Second
	}
	if cfg.News.Language == "" {
		cfg.News.Language = "en"
	}
	if cfg.News.FetchTimeout <= 0 {
		cfg.News.FetchTimeout = 30 * time.Second
	}
	if cfg.Redis.Prefix == "" {
		cfg.Redis.Prefix = "mdingest"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
}

func validate(cfg *Config) error {
	cfg.universe = model.NewSymbolUniverse(cfg.Symbols.List)
	if cfg.universe.Len() == 0 {
		return domain.ConfigErrorf("symbols.list is empty")
	}
	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	switch cfg.Storage.Driver {
	case "postgres", "sqlite", "memory":
	default:
		return domain.ConfigErrorf("storage.driver %q not supported", cfg.Storage.Driver)
	}
	if cfg.Storage.MinConns > cfg.Storage.MaxConns {
		return domain.ConfigErrorf("storage.min_conns %d > max_conns %d", cfg.Storage.MinConns, cfg.Storage.MaxConns)
	}
	if cfg.Backfill.Interval != "1Day" {
		return domain.ConfigErrorf("backfill.interval %q not supported", cfg.Backfill.Interval)
	}
	if cfg.Redis.Enabled && strings.TrimSpace(cfg.Redis.Addr) == "" {
		return domain.ConfigErrorf("redis.addr empty but enabled")
	}
	return nil
}

func (c *Config) requireStorage() error {
	if c.Storage.Driver != "memory" && c.Storage.DSN == "" {
		return domain.ConfigErrorf("storage dsn missing: set storage.dsn or %s", EnvDatabaseURL)
	}
	return nil
}

func (c *Config) requireProvider(name string) error {
	switch name {
	case "alpaca":
		if c.Secrets.AlpacaKey == "" || c.Secrets.AlpacaSecret == "" {
			return domain.ConfigErrorf("alpaca credentials missing: set %s and %s", EnvAlpacaKey, EnvAlpacaSecret)
		}
	case "finnhub":
		if c.Secrets.FinnhubKey == "" {
			return domain.ConfigErrorf("finnhub credentials missing: set %s", EnvFinnhubKey)
		}
	default:
		return domain.ConfigErrorf("provider %q not supported", name)
	}
	return nil
}

// RequireBackfill checks what the backfill job needs before any ingestion starts.
func (c *Config) RequireBackfill() error {
	if err := c.requireStorage(); err != nil {
		return err
	}
	return c.requireProvider(c.Backfill.Provider)
}

func (c *Config) RequireStream() error {
	if err := c.requireStorage(); err != nil {
		return err
	}
	return c.requireProvider(c.Stream.Provider)
}

func (c *Config) RequireNews() error {
	if err := c.requireStorage(); err != nil {
		return err
	}
	if c.Secrets.NewsdataKey == "" {
		return domain.ConfigErrorf("newsdata credentials missing: set %s", EnvNewsdataKey)
	}
	return nil
}

// Credentials returns the key pair for a provider name.
func (c *Config) Credentials(provider string) (key, secret string) {
	switch provider {
	case "alpaca":
		return c.Secrets.AlpacaKey, c.Secrets.AlpacaSecret
	case "finnhub":
		return c.Secrets.FinnhubKey, ""
	case "newsdata":
		return c.Secrets.NewsdataKey, ""
	}
	return "", ""
}
