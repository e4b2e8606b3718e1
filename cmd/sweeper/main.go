package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"socialmatch/app"
	"socialmatch/config"
	"socialmatch/db"
	"socialmatch/logger"

	"go.uber.org/zap"
)

// sweeper периодически закрывает мэтчи, у которых истек финальный запрос анлайка.
// Без него такие мэтчи закрываются при следующем обращении к паре
func main() {
	var configPath string
	var once bool
	flag.StringVar(&configPath, "config", "config.yaml", "Path to the configuration file")
	flag.BoolVar(&once, "once", false, "Run a single sweep and exit")
	flag.Parse()

	conf, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}
	log, err := logger.New(conf.Logs.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orm, err := db.ConnectDB(conf)
	if err != nil {
		log.Fatal("failed to connect to the database", zap.Error(err))
	}
	a, err := app.New(ctx, conf, orm, log)
	if err != nil {
		log.Fatal("failed to build services", zap.Error(err))
	}
	defer a.Close()

	if once {
		n, err := a.Coordinator.SweepExpired(ctx, conf.Match.SweepBatch)
		if err != nil {
			log.Error("sweep failed", zap.Error(err))
			return
		}
		log.Info("sweep finished", zap.Int("dissolved", n))
		return
	}

	log.Info("sweeper started",
		zap.Duration("interval", conf.Match.SweepInterval),
		zap.Int("batch", conf.Match.SweepBatch))
	app.RunSweeper(ctx, a.Coordinator, conf.Match.SweepInterval, conf.Match.SweepBatch, log)
	log.Info("sweeper stopped")
}
