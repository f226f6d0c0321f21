package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"mdingest/internal/infrastructure/config"
	"mdingest/internal/infrastructure/logger"
	"mdingest/internal/infrastructure/svc"
)

func main() {
	logger.Setup("info", "console")

	configPath := flag.String("config", "configs/config.toml", "path to config.toml (empty: env only)")
	statsEvery := flag.Duration("stats-every", time.Minute, "interval between stream stats log lines (0 disables)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
	}
	logger.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sc, err := svc.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("service context initialization failed")
	}

	st, err := sc.BuildStreamService(*statsEvery)
	if err != nil {
		sc.Close()
		log.Fatal().Err(err).Msg("stream initialization failed")
	}

	log.Info().
		Str("config", *configPath).
		Str("provider", cfg.Stream.Provider).
		Str("feed", cfg.Stream.Feed).
		Int("symbols", cfg.Universe().Len()).
		Msg("mdingest stream started")

	// a dropped provider connection exits non-zero; the supervisor restarts the process
	err = st.Start(ctx)
	sc.Close()
	if err != nil {
		log.Error().Err(err).Msg("stream exited")
		os.Exit(1)
	}
}
