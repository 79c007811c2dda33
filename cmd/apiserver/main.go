// Command apiserver is the read API's composition root: it wires the
// read-side query store, cache-aside lookup cache, and rate limiter behind
// the HTTP server and runs it until a shutdown signal arrives.
package main

import (
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/Lisanis/warehouse-movement-service/internal/api"
	"github.com/Lisanis/warehouse-movement-service/internal/api/middleware"
	"github.com/Lisanis/warehouse-movement-service/internal/cache"
	"github.com/Lisanis/warehouse-movement-service/internal/config"
	"github.com/Lisanis/warehouse-movement-service/internal/query"
	"github.com/Lisanis/warehouse-movement-service/internal/storage"
)

const (
	serviceName = "apiserver"
	version     = "1.0.0-dev"
)

func main() {
	versionFlag := flag.Bool("version", false, "show version information")
	flag.Parse()

	if *versionFlag {
		log.Printf("%s v%s\n", serviceName, version)
		os.Exit(0)
	}

	serverConfig := api.LoadServerConfig()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: serverConfig.LogLevel,
	}))

	logger.Info("starting warehouse movement read API",
		"service", serviceName, "version", version,
		"host", serverConfig.Host, "port", serverConfig.Port)

	conn, err := storage.NewConnection(storage.LoadConfig())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = conn.Close() }()

	store := query.NewPostgresStore(conn.DB)

	cacheCfg := config.LoadCacheConfig()

	readCache, err := cache.NewReadCache(cacheCfg.URL(), cacheCfg.TTL)
	if err != nil {
		logger.Error("failed to build read cache", "error", err)
		os.Exit(1)
	}
	defer func() { _ = readCache.Close() }()

	rateLimitCfg := middleware.LoadConfig()

	if overlay, err := config.LoadOverlayFromEnv(); err != nil {
		logger.Warn("failed to load config overlay, continuing with environment defaults", "error", err)
	} else {
		rateLimitCfg.ApplyOverlay(&overlay.RateLimit)
	}

	rateLimiter := middleware.NewInMemoryRateLimiter(rateLimitCfg)

	server := api.NewServer(&serverConfig, rateLimiter, store, readCache)

	if err := server.Start(); err != nil {
		logger.Error("server failed to start", "error", err)
		os.Exit(1)
	}

	logger.Info("warehouse movement read API stopped")
}
