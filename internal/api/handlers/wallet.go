package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ArtieFishal/lastwish/internal/config"
	"github.com/ArtieFishal/lastwish/internal/models"
)

// Aggregator produces the valued asset view for one wallet.
type Aggregator interface {
	WalletAssets(ctx context.Context, address string, chain models.Chain, currency string) (models.AggregationResult, error)
}

// SnapshotStore persists and recalls aggregation results.
type SnapshotStore interface {
	Save(ctx context.Context, result models.AggregationResult) error
	Latest(ctx context.Context, address string, chain models.Chain) (models.AggregationResult, error)
	History(ctx context.Context, address string, chain models.Chain, limit int) ([]models.AggregationResult, error)
}

const (
	defaultCurrency     = "usd"
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// GetWalletAssets handles GET /api/wallet/{chain}/{address}/assets
func GetWalletAssets(svc Aggregator, snapshots SnapshotStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		chainParam := chi.URLParam(r, "chain")
		address := chi.URLParam(r, "address")

		slog.Info("wallet assets requested",
			"chain", chainParam,
			"address", address,
			"remoteAddr", r.RemoteAddr,
		)

		chain, ok := models.ParseChain(chainParam)
		if !ok {
			slog.Warn("invalid chain parameter", "chain", chainParam)
			writeError(w, http.StatusBadRequest, config.ErrorInvalidChain,
				"invalid chain: "+chainParam+", must be ETH, BTC, or SOL")
			return
		}

		currency := strings.ToLower(r.URL.Query().Get("currency"))
		if currency == "" {
			currency = defaultCurrency
		}

		result, err := svc.WalletAssets(r.Context(), address, chain, currency)
		if err != nil {
			writeAggregationError(w, chainParam, address, err)
			return
		}

		if snapshots != nil {
			// Best effort; the response does not depend on persistence.
			if err := snapshots.Save(r.Context(), result); err != nil {
				slog.Error("snapshot save failed",
					"chain", chain,
					"address", address,
					"error", err,
				)
			}
		}

		elapsed := time.Since(start).Milliseconds()

		slog.Info("wallet assets fetched",
			"chain", chain,
			"address", address,
			"assets", len(result.Assets),
			"totalValue", result.TotalValueFiat,
			"elapsed_ms", elapsed,
		)

		writeJSON(w, http.StatusOK, models.APIResponse{
			Data: result,
			Meta: &models.APIMeta{ExecutionTime: elapsed},
		})
	}
}

// GetWalletSnapshots handles GET /api/wallet/{chain}/{address}/snapshots
func GetWalletSnapshots(snapshots SnapshotStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chainParam := chi.URLParam(r, "chain")
		address := chi.URLParam(r, "address")

		chain, ok := models.ParseChain(chainParam)
		if !ok {
			slog.Warn("invalid chain parameter", "chain", chainParam)
			writeError(w, http.StatusBadRequest, config.ErrorInvalidChain,
				"invalid chain: "+chainParam+", must be ETH, BTC, or SOL")
			return
		}

		limit := parseIntParam(r, "limit", defaultHistoryLimit)
		if limit < 1 {
			limit = defaultHistoryLimit
		}
		if limit > maxHistoryLimit {
			limit = maxHistoryLimit
		}

		results, err := snapshots.History(r.Context(), address, chain, limit)
		if err != nil {
			slog.Error("snapshot history query failed",
				"chain", chain,
				"address", address,
				"error", err,
			)
			writeError(w, http.StatusInternalServerError, config.ErrorDatabase, "failed to fetch snapshots")
			return
		}
		if len(results) == 0 {
			writeError(w, http.StatusNotFound, config.ErrorSnapshotNotFound,
				"no snapshots recorded for "+address+" on "+string(chain))
			return
		}

		writeJSON(w, http.StatusOK, models.APIResponse{Data: results})
	}
}

// writeAggregationError maps service errors to API responses.
func writeAggregationError(w http.ResponseWriter, chainParam, address string, err error) {
	switch {
	case errors.Is(err, config.ErrUnsupportedChain):
		slog.Warn("unsupported chain", "chain", chainParam)
		writeError(w, http.StatusBadRequest, config.ErrorInvalidChain, "unsupported chain: "+chainParam)
	case errors.Is(err, config.ErrInvalidAddress):
		slog.Warn("invalid address", "chain", chainParam, "address", address)
		writeError(w, http.StatusBadRequest, config.ErrorInvalidAddress,
			"invalid "+chainParam+" address: "+address)
	case errors.Is(err, config.ErrProviderRateLimit):
		slog.Warn("aggregation rate limited", "chain", chainParam, "address", address)
		writeError(w, http.StatusServiceUnavailable, config.ErrorProviderRateLimit,
			"upstream provider rate limit, retry later")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		slog.Debug("aggregation canceled", "chain", chainParam, "address", address)
		// 499-style: the client went away; nothing useful to write.
		writeError(w, http.StatusServiceUnavailable, config.ErrorAggregationFailed, "request canceled")
	default:
		slog.Error("aggregation failed",
			"chain", chainParam,
			"address", address,
			"error", err,
		)
		writeError(w, http.StatusBadGateway, config.ErrorAggregationFailed, "failed to aggregate wallet assets")
	}
}
