package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ArtieFishal/lastwish/internal/config"
	"github.com/ArtieFishal/lastwish/internal/models"
	"github.com/ArtieFishal/lastwish/internal/provider"
)

// solRPCRequest is a Solana JSON-RPC 2.0 request.
type solRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// solBalanceResponse is the getBalance response shape.
type solBalanceResponse struct {
	Result *struct {
		Context struct {
			Slot uint64 `json:"slot"`
		} `json:"context"`
		Value uint64 `json:"value"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// SolAdapter fetches Solana balances over JSON-RPC.
type SolAdapter struct {
	client *http.Client
	guard  *provider.Guard
	rpcURL string
}

// NewSolAdapter creates the Solana adapter against the given RPC endpoint.
func NewSolAdapter(client *http.Client, rpcURL string, timeout time.Duration) *SolAdapter {
	slog.Info("sol adapter created", "rpcURL", rpcURL)
	return &SolAdapter{
		client: client,
		guard:  provider.NewGuard("solana-rpc", config.RateLimitSolanaRPC, timeout),
		rpcURL: rpcURL,
	}
}

func (a *SolAdapter) Chain() models.Chain { return models.ChainSOL }

// NativeBalance returns the SOL balance via getBalance (lamports).
func (a *SolAdapter) NativeBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	var lamports uint64
	err := a.guard.Do(ctx, func(ctx context.Context) error {
		v, err := a.getBalance(ctx, address)
		if err != nil {
			return err
		}
		lamports = v
		return nil
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("sol native balance: %w", err)
	}
	return models.RawToDecimal(strconv.FormatUint(lamports, 10), models.SOLDecimals)
}

// TokenBalances is not supported for Solana; SPL token enumeration needs an
// indexing provider this service does not integrate.
func (a *SolAdapter) TokenBalances(ctx context.Context, address string) ([]models.Asset, error) {
	slog.Debug("sol token enumeration not supported, returning empty set", "address", address)
	return nil, nil
}

func (a *SolAdapter) getBalance(ctx context.Context, address string) (uint64, error) {
	payload, err := json.Marshal(solRPCRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "getBalance",
		Params:  []any{address},
	})
	if err != nil {
		return 0, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.rpcURL, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", config.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		slog.Warn("solana RPC rate limited")
		return 0, config.NewTransientErrorWithRetry(config.ErrProviderRateLimit, provider.ParseRetryAfter(resp.Header))
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: HTTP %d", config.ErrProviderUnavailable, resp.StatusCode)
	}

	var rpcResp solBalanceResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return 0, fmt.Errorf("%w: parse getBalance: %v", config.ErrProviderUnavailable, err)
	}
	if rpcResp.Error != nil {
		return 0, fmt.Errorf("%w: RPC error %d: %s",
			config.ErrProviderUnavailable, rpcResp.Error.Code, rpcResp.Error.Message)
	}
	if rpcResp.Result == nil {
		return 0, fmt.Errorf("%w: getBalance returned no result", config.ErrProviderUnavailable)
	}

	slog.Debug("sol balance fetched",
		"address", address,
		"lamports", rpcResp.Result.Value,
		"slot", rpcResp.Result.Context.Slot,
	)

	return rpcResp.Result.Value, nil
}
