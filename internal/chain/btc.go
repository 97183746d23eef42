package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ArtieFishal/lastwish/internal/config"
	"github.com/ArtieFishal/lastwish/internal/models"
	"github.com/ArtieFishal/lastwish/internal/provider"
)

// esploraAddress is the Blockstream Esplora /address/{addr} response.
// Only the confirmed chain stats matter here; mempool activity is excluded.
type esploraAddress struct {
	ChainStats struct {
		FundedTxoSum uint64 `json:"funded_txo_sum"`
		SpentTxoSum  uint64 `json:"spent_txo_sum"`
		TxCount      int    `json:"tx_count"`
	} `json:"chain_stats"`
}

// BtcAdapter fetches Bitcoin balances from a Blockstream Esplora instance.
type BtcAdapter struct {
	client  *http.Client
	guard   *provider.Guard
	baseURL string
}

// NewBtcAdapter creates the Bitcoin adapter against the given Esplora base URL.
func NewBtcAdapter(client *http.Client, baseURL string, timeout time.Duration) *BtcAdapter {
	slog.Info("btc adapter created", "baseURL", baseURL)
	return &BtcAdapter{
		client:  client,
		guard:   provider.NewGuard("blockstream", config.RateLimitBlockstream, timeout),
		baseURL: baseURL,
	}
}

func (a *BtcAdapter) Chain() models.Chain { return models.ChainBTC }

// NativeBalance computes the confirmed BTC balance as funded minus spent
// output sums, in satoshi, converted exactly.
func (a *BtcAdapter) NativeBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	var stats esploraAddress
	err := a.guard.Do(ctx, func(ctx context.Context) error {
		s, err := a.fetchAddress(ctx, address)
		if err != nil {
			return err
		}
		stats = s
		return nil
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("btc native balance: %w", err)
	}

	// Unsigned subtraction through big.Int; spent can never exceed funded on
	// a consistent chain view but a provider glitch must not wrap around.
	funded := new(big.Int).SetUint64(stats.ChainStats.FundedTxoSum)
	spent := new(big.Int).SetUint64(stats.ChainStats.SpentTxoSum)
	sats := new(big.Int).Sub(funded, spent)
	if sats.Sign() < 0 {
		slog.Warn("esplora reported spent exceeding funded, clamping to zero",
			"address", address,
			"funded", stats.ChainStats.FundedTxoSum,
			"spent", stats.ChainStats.SpentTxoSum,
		)
		return decimal.Zero, nil
	}

	return models.RawToDecimal(sats.String(), models.BTCDecimals)
}

// TokenBalances returns an empty set: Bitcoin has no supported token standard.
func (a *BtcAdapter) TokenBalances(ctx context.Context, address string) ([]models.Asset, error) {
	return nil, nil
}

func (a *BtcAdapter) fetchAddress(ctx context.Context, address string) (esploraAddress, error) {
	url := fmt.Sprintf("%s/address/%s", a.baseURL, address)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return esploraAddress{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return esploraAddress{}, fmt.Errorf("%w: %v", config.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return esploraAddress{}, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		slog.Warn("blockstream rate limited")
		return esploraAddress{}, config.NewTransientErrorWithRetry(
			config.ErrProviderRateLimit, provider.ParseRetryAfter(resp.Header))
	}
	if resp.StatusCode != http.StatusOK {
		return esploraAddress{}, fmt.Errorf("%w: HTTP %d", config.ErrProviderUnavailable, resp.StatusCode)
	}

	var addr esploraAddress
	if err := json.Unmarshal(body, &addr); err != nil {
		return esploraAddress{}, fmt.Errorf("%w: parse address stats: %v", config.ErrProviderUnavailable, err)
	}

	slog.Debug("btc address stats fetched",
		"address", address,
		"txCount", addr.ChainStats.TxCount,
	)

	return addr, nil
}
