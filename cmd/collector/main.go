package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"dexcollector/config"
	"dexcollector/internal/collector"
	"dexcollector/logger"

	"go.uber.org/zap"
)

func main() {
	// viper config
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// zap logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// run collector
	c, err := collector.StartCollector(ctx, cfg, log)
	if err != nil {
		log.Fatal("collector failed", zap.Error(err))
	}

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := c.Close(shutdownCtx); err != nil {
		log.Warn("shutdown finished with errors", zap.Error(err))
	}
}
