package price

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ArtieFishal/lastwish/internal/cache"
	"github.com/ArtieFishal/lastwish/internal/config"
	"github.com/ArtieFishal/lastwish/internal/models"
	"github.com/ArtieFishal/lastwish/internal/provider"
)

// NativeID maps a chain to its CoinGecko asset identifier.
func NativeID(chain models.Chain) string {
	switch chain {
	case models.ChainETH:
		return "ethereum"
	case models.ChainBTC:
		return "bitcoin"
	case models.ChainSOL:
		return "solana"
	default:
		return ""
	}
}

// Oracle resolves fiat prices from CoinGecko with a write-through TTL cache.
// A provider failure degrades to the last cached quote (stale), and when no
// quote was ever cached the result is marked unavailable rather than zero —
// callers must not mistake "price unknown" for "worthless".
type Oracle struct {
	client  *http.Client
	guard   *provider.Guard
	cache   *cache.Store
	baseURL string
	ttl     time.Duration
}

// NewOracle creates a price oracle against the given CoinGecko base URL.
func NewOracle(client *http.Client, store *cache.Store, baseURL string, ttl, timeout time.Duration) *Oracle {
	slog.Info("price oracle created", "baseURL", baseURL, "ttl", ttl)
	return &Oracle{
		client:  client,
		guard:   provider.NewGuard("coingecko", config.RateLimitCoinGecko, timeout),
		cache:   store,
		baseURL: baseURL,
		ttl:     ttl,
	}
}

// Price resolves the fiat price for a native asset by its provider ID
// (e.g. "ethereum", "bitcoin", "solana").
func (o *Oracle) Price(ctx context.Context, assetID, currency string) models.PriceQuote {
	url := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=%s", o.baseURL, assetID, currency)
	return o.resolve(ctx, assetID, currency, url, assetID)
}

// TokenPrice resolves the fiat price for an ERC-20 token by contract address.
func (o *Oracle) TokenPrice(ctx context.Context, contract, currency string) models.PriceQuote {
	contract = strings.ToLower(contract)
	url := fmt.Sprintf("%s/simple/token_price/ethereum?contract_addresses=%s&vs_currencies=%s",
		o.baseURL, contract, currency)
	return o.resolve(ctx, contract, currency, url, contract)
}

// resolve answers from the live cache, then the provider, then the stale
// cache, in that order.
func (o *Oracle) resolve(ctx context.Context, assetID, currency, url, responseKey string) models.PriceQuote {
	key := cache.Key("price", assetID, currency)

	if q, ok := cache.Get[models.PriceQuote](o.cache, key); ok {
		return q
	}

	var price decimal.Decimal
	var found bool
	err := o.guard.Do(ctx, func(ctx context.Context) error {
		p, ok, err := o.fetch(ctx, url, responseKey, currency)
		if err != nil {
			return err
		}
		price, found = p, ok
		return nil
	})

	if err == nil {
		quote := models.PriceQuote{
			AssetID:   assetID,
			Currency:  currency,
			Price:     price,
			Available: found,
			FetchedAt: time.Now().UTC(),
		}
		// Negative caching included: an asset the provider does not list
		// stays unavailable for one TTL instead of being re-asked per request.
		o.cache.Set(key, quote, o.ttl)
		return quote
	}

	if q, ok := cache.GetStale[models.PriceQuote](o.cache, key); ok {
		slog.Warn("price fetch failed, serving stale quote",
			"assetID", assetID,
			"currency", currency,
			"fetchedAt", q.FetchedAt,
			"error", err,
		)
		return q
	}

	slog.Warn("price unavailable",
		"assetID", assetID,
		"currency", currency,
		"error", err,
	)

	return models.PriceQuote{
		AssetID:   assetID,
		Currency:  currency,
		Price:     decimal.Zero,
		Available: false,
		FetchedAt: time.Now().UTC(),
	}
}

// fetch performs the HTTP request and extracts the single requested price.
// A 200 response missing the asset key means the provider does not track it.
func (o *Oracle) fetch(ctx context.Context, url, responseKey, currency string) (decimal.Decimal, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("create request: %w", err)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("%w: %v", config.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		slog.Warn("coingecko rate limited")
		return decimal.Zero, false, config.NewTransientErrorWithRetry(
			config.ErrProviderRateLimit, provider.ParseRetryAfter(resp.Header))
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, false, fmt.Errorf("%w: HTTP %d", config.ErrProviderUnavailable, resp.StatusCode)
	}

	// Decode prices as json.Number so the exact decimal text survives.
	var payload map[string]map[string]json.Number
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return decimal.Zero, false, fmt.Errorf("%w: parse price response: %v", config.ErrProviderUnavailable, err)
	}

	prices, ok := payload[responseKey]
	if !ok {
		return decimal.Zero, false, nil
	}
	num, ok := prices[strings.ToLower(currency)]
	if !ok {
		return decimal.Zero, false, nil
	}

	price, err := decimal.NewFromString(num.String())
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("%w: invalid price %q: %v", config.ErrProviderUnavailable, num, err)
	}
	return price, true, nil
}
