// Command ingester is the Consumer Loop's composition root: it wires the
// Event Normalizer, Transaction Coordinator, Stock Ledger/Pairing
// Store/Journal, and Cache Invalidator behind the Consumer Loop and runs it
// until a shutdown signal arrives.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Lisanis/warehouse-movement-service/internal/cache"
	"github.com/Lisanis/warehouse-movement-service/internal/config"
	"github.com/Lisanis/warehouse-movement-service/internal/consumer"
	"github.com/Lisanis/warehouse-movement-service/internal/coordinator"
	"github.com/Lisanis/warehouse-movement-service/internal/storage"
)

const (
	serviceName = "ingester"
	version     = "1.0.0-dev"
)

func main() {
	versionFlag := flag.Bool("version", false, "show version information")
	flag.Parse()

	if *versionFlag {
		log.Printf("%s v%s\n", serviceName, version)
		os.Exit(0)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: config.GetEnvLogLevel("LOG_LEVEL", slog.LevelInfo),
	}))

	logger.Info("starting warehouse movement consumer", "service", serviceName, "version", version)

	conn, err := storage.NewConnection(storage.LoadConfig())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = conn.Close() }()

	store, err := storage.NewStore(conn, logger)
	if err != nil {
		logger.Error("failed to build store", "error", err)
		os.Exit(1)
	}

	cacheCfg := config.LoadCacheConfig()

	invalidator, err := cache.New(cacheCfg.URL())
	if err != nil {
		logger.Error("failed to build cache invalidator", "error", err)
		os.Exit(1)
	}
	defer func() { _ = invalidator.Close() }()

	if err := invalidator.Ping(context.Background()); err != nil {
		logger.Error("failed to reach cache", "error", err)
		os.Exit(1)
	}

	kafkaCfg := config.LoadKafkaConfig()

	overlay, err := config.LoadOverlayFromEnv()
	if err != nil {
		logger.Warn("failed to load config overlay, continuing with environment defaults", "error", err)
	} else {
		kafkaCfg.ApplyOverlay(overlay)
	}

	coord := coordinator.New(store, invalidator, logger)
	loop := consumer.New(kafkaCfg, coord, logger)
	defer func() { _ = loop.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	runErrors := make(chan error, 1)

	go func() {
		runErrors <- loop.Run(ctx)
	}()

	select {
	case err := <-runErrors:
		if err != nil {
			logger.Error("consumer loop exited with error", "error", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logger.Info("received shutdown signal", "signal", sig.String())
		cancel()
		<-runErrors
	}

	logger.Info("warehouse movement consumer stopped")
}
