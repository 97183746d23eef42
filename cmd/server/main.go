package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/ArtieFishal/lastwish/internal/aggregate"
	"github.com/ArtieFishal/lastwish/internal/api"
	"github.com/ArtieFishal/lastwish/internal/cache"
	"github.com/ArtieFishal/lastwish/internal/chain"
	"github.com/ArtieFishal/lastwish/internal/config"
	"github.com/ArtieFishal/lastwish/internal/logging"
	"github.com/ArtieFishal/lastwish/internal/price"
	"github.com/ArtieFishal/lastwish/internal/provider"
	"github.com/ArtieFishal/lastwish/internal/snapshot"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := runServe(); err != nil {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("lastwish %s\n", version)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: lastwish <command>

Commands:
  serve     Start the HTTP server
  version   Print version information
`)
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logCloser, err := logging.Setup(cfg.LogLevel, cfg.LogDir)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer logCloser.Close()

	slog.Info("starting lastwish",
		"version", version,
		"network", cfg.Network,
		"port", cfg.Port,
		"dbPath", cfg.DBPath,
		"logLevel", cfg.LogLevel,
	)

	store, err := snapshot.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open snapshot store: %w", err)
	}
	defer store.Close()

	httpClient := provider.NewHTTPClient()

	// The RPC fallback is best effort: a dial failure leaves the EVM adapter
	// on the REST provider alone.
	var ethRPC chain.EthRPC
	if client, err := ethclient.Dial(cfg.EthRPC()); err != nil {
		slog.Warn("eth RPC dial failed, REST provider only",
			"rpcURL", cfg.EthRPC(),
			"error", err,
		)
	} else {
		ethRPC = client
	}

	registry := chain.NewRegistry(
		chain.NewEthAdapter(chain.EthAdapterOptions{
			Client:      httpClient,
			RPC:         ethRPC,
			BaseURL:     cfg.EtherscanURL(),
			APIKey:      cfg.EtherscanAPIKey,
			Timeout:     cfg.ProviderTimeout,
			MaxInFlight: cfg.MaxInFlight,
		}),
		chain.NewBtcAdapter(httpClient, cfg.BlockstreamURL(), cfg.ProviderTimeout),
		chain.NewSolAdapter(httpClient, cfg.SolanaRPC(), cfg.ProviderTimeout),
	)

	sharedCache := cache.New()
	oracle := price.NewOracle(httpClient, sharedCache, config.CoinGeckoBaseURL, cfg.PriceCacheTTL, cfg.ProviderTimeout)

	svc := aggregate.NewService(aggregate.Options{
		Registry:    registry,
		Prices:      oracle,
		Cache:       sharedCache,
		Network:     cfg.Network,
		MaxInFlight: cfg.MaxInFlight,
		ChainTTL:    cfg.ChainCacheTTL,
	})

	api.Version = version
	router := api.NewRouter(cfg, registry, svc, store)

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("initiating graceful shutdown", "timeout", config.ShutdownTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
