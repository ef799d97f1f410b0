package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/tibialabs/tibia-houses/internal/api"
	"github.com/tibialabs/tibia-houses/internal/cache"
	"github.com/tibialabs/tibia-houses/internal/config"
	"github.com/tibialabs/tibia-houses/internal/houses"
	"github.com/tibialabs/tibia-houses/internal/httpx"
	"github.com/tibialabs/tibia-houses/internal/observability"
	"github.com/tibialabs/tibia-houses/internal/store"
	"github.com/tibialabs/tibia-houses/internal/tibia"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	var driftStore *store.Store
	if cfg.DatabaseURL != "" {
		driftStore, err = store.NewStore(cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to store", "error", err)
			os.Exit(1)
		}
		defer driftStore.Close()
	} else {
		slog.Info("DATABASE_URL not set, drift events will not be persisted")
	}

	fetcher := httpx.NewFetcher(cfg.UserAgent, cfg.FetchTimeout)
	client := tibia.NewClient(fetcher, cfg.BaseURL)

	results := cache.New[*houses.ExtractionResult](cfg.CacheSize, cfg.CacheTTL)
	townCache := cache.New[[]string](8, cfg.CacheTTL)
	metrics := observability.NewMetrics()

	srv := api.NewServer(client, results, townCache, driftStore, metrics)

	slog.Info("starting server", "port", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, srv.Router()); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
