package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bridgeledger/api"
	"bridgeledger/config"
	"bridgeledger/ledger"
	"bridgeledger/observability/logging"
	"bridgeledger/reaper"
	"bridgeledger/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	env := strings.TrimSpace(os.Getenv("BRIDGELEDGER_ENV"))
	logger := logging.Setup("bridgeledgerd", env, cfg.LogFile)

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	tokens := ledger.NewTokenRegistry(db)
	minters := ledger.NewMinterRegistry(db)
	store := ledger.NewStore(db, tokens, logger)

	interval, err := cfg.ReapIntervalDuration()
	if err != nil {
		logger.Error("Invalid reap interval", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweeper := reaper.New(store, nil, interval, logger)
	go sweeper.Run(ctx)

	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           api.New(store, minters, logger).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("query API listening",
			slog.String("address", cfg.ListenAddress),
			slog.String("network", cfg.NetworkName))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("query API failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.Any("error", err))
	}
}
