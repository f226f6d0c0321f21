package svc

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"mdingest/internal/application/port"
	"mdingest/internal/application/usecase/backfill"
	"mdingest/internal/application/usecase/news"
	"mdingest/internal/application/usecase/stream"
	"mdingest/internal/infrastructure/config"
	"mdingest/internal/infrastructure/provider"
	_ "mdingest/internal/infrastructure/provider/alpaca"
	_ "mdingest/internal/infrastructure/provider/finnhub"
	"mdingest/internal/infrastructure/provider/newsdata"
	"mdingest/internal/infrastructure/storage"
	"mdingest/internal/infrastructure/storage/composite"
	redisrepo "mdingest/internal/infrastructure/storage/redis"
)

type ServiceContext struct {
	Ctx    context.Context
	Config *config.Config

	// 资源管理
	closerChain []func() error
}

// New 创建 ServiceContext；各命令通过 Build* 方法按需初始化依赖
func New(ctx context.Context, cfg *config.Config) (*ServiceContext, error) {
	if cfg.Universe().Len() == 0 {
		return nil, ErrEmptyUniverse
	}
	return &ServiceContext{
		Ctx:         ctx,
		Config:      cfg,
		closerChain: make([]func() error, 0),
	}, nil
}

func (sc *ServiceContext) storageOptions() storage.Options {
	return storage.Options{
		Driver:   sc.Config.Storage.Driver,
		DSN:      sc.Config.Storage.DSN,
		MinConns: sc.Config.Storage.MinConns,
		MaxConns: sc.Config.Storage.MaxConns,
	}
}

// OpenSink opens the configured store.
func (sc *ServiceContext) OpenSink(ctx context.Context) (port.Sink, error) {
	sink, err := storage.Open(ctx, sc.storageOptions())
	if err != nil {
		return nil, err
	}
	log.Info().Str("driver", sc.Config.Storage.Driver).
		Int("min_conns", sc.Config.Storage.MinConns).
		Int("max_conns", sc.Config.Storage.MaxConns).
		Msg("✓ Storage opened")
	return sink, nil
}

// OpenQuoteSink opens the store and, when enabled, chains the Redis quote publisher.
func (sc *ServiceContext) OpenQuoteSink(ctx context.Context) (port.Sink, error) {
	sink, err := sc.OpenSink(ctx)
	if err != nil {
		return nil, err
	}
	if !sc.Config.Redis.Enabled {
		return sink, nil
	}

	rcfg := sc.Config.Redis
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rdb, err := redisrepo.Dial(pctx, rcfg.Addr, rcfg.Password, rcfg.DB)
	if err != nil {
		_ = sink.Close()
		return nil, fmt.Errorf("redis initialization failed: %w", err)
	}
	pub := redisrepo.New(rdb, rcfg.Prefix, time.Duration(rcfg.TTLSeconds)*time.Second, rcfg.Stream, rcfg.Channel)
	log.Info().Str("addr", rcfg.Addr).Int("db", rcfg.DB).Msg("✓ Redis publisher initialized")
	return composite.New(sink, pub), nil
}

func (sc *ServiceContext) providerSettings(name string) provider.Settings {
	key, secret := sc.Config.Credentials(name)
	return provider.Settings{
		APIKey:    key,
		APISecret: secret,
		BaseURL:   sc.Config.Backfill.BaseURL,
		StreamURL: sc.Config.Stream.URL,
		Feed:      sc.Config.Stream.Feed,
		Timeout:   sc.Config.Backfill.FetchTimeout,
	}
}

// BuildBackfillService 构建回填服务；sink 由服务在运行结束时关闭
func (sc *ServiceContext) BuildBackfillService() (*backfill.Service, error) {
	if err := sc.Config.RequireBackfill(); err != nil {
		return nil, err
	}
	name := sc.Config.Backfill.Provider
	src, err := provider.NewBarSource(name, sc.providerSettings(name))
	if err != nil {
		return nil, err
	}
	sink, err := sc.OpenSink(sc.Ctx)
	if err != nil {
		return nil, err
	}
	return backfill.NewService(backfill.ServiceDeps{
		Source:        src,
		Sink:          sink,
		Universe:      sc.Config.Universe(),
		Interval:      sc.Config.Backfill.Interval,
		LookbackYears: sc.Config.Backfill.LookbackYears,
		FetchTimeout:  sc.Config.Backfill.FetchTimeout,
		WriteTimeout:  sc.Config.Storage.WriteTimeout,
	}), nil
}

// BuildStreamService 构建实时行情服务；共享 sink 在 Close 时释放
func (sc *ServiceContext) BuildStreamService(statsEvery time.Duration) (*stream.Service, error) {
	if err := sc.Config.RequireStream(); err != nil {
		return nil, err
	}
	name := sc.Config.Stream.Provider
	qs, err := provider.NewQuoteStream(name, sc.providerSettings(name))
	if err != nil {
		return nil, err
	}
	shared := stream.NewSharedSink(sc.OpenQuoteSink)
	sc.closerChain = append(sc.closerChain, func() error {
		log.Info().Msg("closing quote sink")
		return shared.Close()
	})
	return stream.NewService(stream.ServiceDeps{
		Stream:       qs,
		Sink:         shared,
		Universe:     sc.Config.Universe(),
		WriteTimeout: sc.Config.Storage.WriteTimeout,
		EagerOpen:    sc.Config.Stream.EagerOpen,
		StatsEvery:   statsEvery,
	}), nil
}

// BuildNewsService 构建新闻轮询服务
func (sc *ServiceContext) BuildNewsService() (*news.Service, error) {
	if err := sc.Config.RequireNews(); err != nil {
		return nil, err
	}
	ncfg := sc.Config.News
	src, err := provider.NewHeadlineSource(newsdata.Name, provider.Settings{
		APIKey:   sc.Config.Secrets.NewsdataKey,
		BaseURL:  ncfg.BaseURL,
		Language: ncfg.Language,
		Timeout:  ncfg.FetchTimeout,
	})
	if err != nil {
		return nil, err
	}
	sink, err := sc.OpenSink(sc.Ctx)
	if err != nil {
		return nil, err
	}
	sc.closerChain = append(sc.closerChain, func() error {
		log.Info().Msg("closing news sink")
		return sink.Close()
	})
	return news.NewService(news.ServiceDeps{
		Source:       src,
		Sink:         sink,
		PollInterval: ncfg.PollInterval,
		WriteTimeout: sc.Config.Storage.WriteTimeout,
	}), nil
}

// Close 按相反顺序关闭所有资源
func (sc *ServiceContext) Close() error {
	for i := len(sc.closerChain) - 1; i >= 0; i-- {
		if err := sc.closerChain[i](); err != nil {
			log.Error().Err(err).Msg("error closing resource")
		}
	}
	sc.closerChain = nil
	return nil
}
