// Package main provides the entry point for backtestd, the HTTP front end
// over the options-strategy backtesting engine.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/optopsy/backtest-engine/internal/config"
	"github.com/optopsy/backtest-engine/internal/core"
	"github.com/optopsy/backtest-engine/internal/storagecache"
	"github.com/optopsy/backtest-engine/internal/strategycatalog"
)

func main() {
	os.Exit(run())
}

func run() int {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		logrus.WithError(err).Error("failed to load config")
		return 1
	}

	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	if cfg.Environment.Mode == "prod" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if lvl, err := logrus.ParseLevel(cfg.Environment.LogLevel); err == nil {
		logger.SetLevel(lvl)
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.WithError(err).Warn("invalid log level; defaulting to info")
	}

	cache, err := storagecache.NewJSONStore(cfg.Cache.Path)
	if err != nil {
		logger.WithError(err).Error("failed to open run cache")
		return 1
	}
	defer func() { _ = cache.Close() }()

	eng := core.New(cfg, strategycatalog.Default(), cache, logger)
	srv := NewServer(cfg.Server.Port, cfg.Server.RequestTimeout, eng, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("shutdown signal received")
		cancel()
	}()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.WithError(err).Error("server error")
			return 1
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("error shutting down server")
		return 1
	}
	logger.Info("backtestd stopped")
	return 0
}
