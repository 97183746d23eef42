package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/ArtieFishal/lastwish/internal/api/handlers"
	"github.com/ArtieFishal/lastwish/internal/api/middleware"
	"github.com/ArtieFishal/lastwish/internal/chain"
	"github.com/ArtieFishal/lastwish/internal/config"
)

// Version is set at build time via ldflags.
var Version = "dev"

// NewRouter creates and configures the Chi router with all middleware and routes.
func NewRouter(cfg *config.Config, registry *chain.Registry, svc handlers.Aggregator, snapshots handlers.SnapshotStore) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestLogging)

	slog.Info("router initialized",
		"middleware", []string{"requestLogging"},
	)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.HealthHandler(cfg, Version))
		r.Get("/chains", handlers.ListChains(registry))
		r.Get("/wallet/{chain}/{address}/assets", handlers.GetWalletAssets(svc, snapshots))
		r.Get("/wallet/{chain}/{address}/snapshots", handlers.GetWalletSnapshots(snapshots))
	})

	return r
}
