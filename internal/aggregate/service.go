package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/ArtieFishal/lastwish/internal/cache"
	"github.com/ArtieFishal/lastwish/internal/chain"
	"github.com/ArtieFishal/lastwish/internal/models"
	"github.com/ArtieFishal/lastwish/internal/price"
	"github.com/ArtieFishal/lastwish/internal/validate"
)

// PriceSource resolves fiat prices for native assets and token contracts.
// Price resolution never fails hard: an unresolvable price comes back with
// Available=false.
type PriceSource interface {
	Price(ctx context.Context, assetID, currency string) models.PriceQuote
	TokenPrice(ctx context.Context, contract, currency string) models.PriceQuote
}

// Service aggregates a wallet's on-chain holdings into one valued result.
// Provider failures degrade per-slice: a dead balance provider yields a zero
// native balance, a dead token provider yields no tokens, a dead price
// provider yields unpriced assets — the request itself still succeeds.
type Service struct {
	registry    *chain.Registry
	prices      PriceSource
	cache       *cache.Store
	network     string
	maxInFlight int
	chainTTL    time.Duration
}

// Options configures a new Service.
type Options struct {
	Registry    *chain.Registry
	Prices      PriceSource
	Cache       *cache.Store
	Network     string
	MaxInFlight int
	ChainTTL    time.Duration
}

// NewService creates the aggregation service.
func NewService(opts Options) *Service {
	maxInFlight := opts.MaxInFlight
	if maxInFlight < 1 {
		maxInFlight = 1
	}

	slog.Info("aggregation service created",
		"network", opts.Network,
		"maxInFlight", maxInFlight,
		"chainTTL", opts.ChainTTL,
	)

	return &Service{
		registry:    opts.Registry,
		prices:      opts.Prices,
		cache:       opts.Cache,
		network:     opts.Network,
		maxInFlight: maxInFlight,
		chainTTL:    opts.ChainTTL,
	}
}

// WalletAssets fetches, normalizes, and values every holding of one address.
// The native asset is always present (zero balance included) and always
// first; tokens follow in enumeration order with strictly positive balances.
// Returns ErrUnsupportedChain or ErrInvalidAddress before any provider call.
func (s *Service) WalletAssets(ctx context.Context, address string, chainID models.Chain, currency string) (models.AggregationResult, error) {
	start := time.Now()

	adapter, err := s.registry.Resolve(chainID)
	if err != nil {
		return models.AggregationResult{}, err
	}
	if err := validate.Address(chainID, address, s.network); err != nil {
		return models.AggregationResult{}, err
	}

	native, tokens, err := s.fetchBalances(ctx, adapter, address, chainID)
	if err != nil {
		return models.AggregationResult{}, err
	}

	assets := make([]models.Asset, 0, 1+len(tokens))
	nativeAsset := models.NativeAsset(chainID)
	nativeAsset.Balance = native
	assets = append(assets, nativeAsset)
	assets = append(assets, tokens...)

	if err := s.valueAssets(ctx, assets, chainID, currency); err != nil {
		return models.AggregationResult{}, err
	}

	total := decimal.Zero
	for _, a := range assets {
		if a.PriceAvailable {
			total = total.Add(a.ValueFiat)
		}
	}

	result := models.AggregationResult{
		Address:        address,
		Chain:          chainID,
		Currency:       currency,
		Assets:         assets,
		TotalValueFiat: total,
		FetchedAt:      time.Now().UTC(),
	}

	slog.Info("wallet aggregation complete",
		"address", address,
		"chain", chainID,
		"assets", len(assets),
		"totalValue", total,
		"duration", time.Since(start),
	)

	return result, nil
}

// fetchBalances retrieves the native balance and token set concurrently,
// consulting the chain cache first and writing back only successful fetches.
// A provider failure on either slice degrades that slice and logs; the
// other slice is unaffected. Context cancellation aborts the request.
func (s *Service) fetchBalances(ctx context.Context, adapter chain.Adapter, address string, chainID models.Chain) (decimal.Decimal, []models.Asset, error) {
	var (
		native decimal.Decimal
		tokens []models.Asset
	)

	balanceKey := cache.Key("balance", string(chainID), address)
	tokensKey := cache.Key("tokens", string(chainID), address)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if v, ok := cache.Get[decimal.Decimal](s.cache, balanceKey); ok {
			native = v
			return nil
		}
		v, err := adapter.NativeBalance(gctx, address)
		if err != nil {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			slog.Warn("native balance fetch failed, degrading to zero",
				"chain", chainID,
				"address", address,
				"error", err,
			)
			native = decimal.Zero
			return nil
		}
		native = v
		s.cache.Set(balanceKey, v, s.chainTTL)
		return nil
	})

	g.Go(func() error {
		if v, ok := cache.Get[[]models.Asset](s.cache, tokensKey); ok {
			tokens = v
			return nil
		}
		v, err := adapter.TokenBalances(gctx, address)
		if err != nil {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			slog.Warn("token enumeration failed, degrading to empty set",
				"chain", chainID,
				"address", address,
				"error", err,
			)
			tokens = nil
			return nil
		}
		tokens = v
		s.cache.Set(tokensKey, v, s.chainTTL)
		return nil
	})

	if err := g.Wait(); err != nil {
		return decimal.Zero, nil, fmt.Errorf("aggregation aborted: %w", err)
	}

	return native, tokens, nil
}

// valueAssets prices each asset concurrently (bounded) and fills in
// ValueFiat and PriceAvailable in place.
func (s *Service) valueAssets(ctx context.Context, assets []models.Asset, chainID models.Chain, currency string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxInFlight)

	for i := range assets {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			a := &assets[i]

			var quote models.PriceQuote
			if a.TokenType == models.TokenTypeNative {
				quote = s.prices.Price(gctx, price.NativeID(chainID), currency)
			} else {
				quote = s.prices.TokenPrice(gctx, a.ContractAddress, currency)
			}

			a.PriceAvailable = quote.Available
			if quote.Available {
				a.ValueFiat = a.Balance.Mul(quote.Price)
			} else {
				a.ValueFiat = decimal.Zero
			}
			return nil
		})
	}

	return g.Wait()
}
