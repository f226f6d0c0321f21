package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"mdingest/internal/infrastructure/config"
	"mdingest/internal/infrastructure/logger"
	"mdingest/internal/infrastructure/svc"
)

func main() {
	logger.Setup("info", "console")

	configPath := flag.String("config", "configs/config.toml", "path to config.toml (empty: env only)")
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
	defer sc.Close()

	bf, err := sc.BuildBackfillService()
	if err != nil {
		log.Fatal().Err(err).Msg("backfill initialization failed")
	}

	log.Info().
		Str("config", *configPath).
		Str("provider", cfg.Backfill.Provider).
		Int("symbols", cfg.Universe().Len()).
		Msg("mdingest backfill started")

	if _, err := bf.Run(ctx); err != nil {
		log.Error().Err(err).Msg("backfill run interrupted")
		sc.Close()
		os.Exit(1)
	}
}
