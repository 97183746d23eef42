package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"

	"github.com/ArtieFishal/lastwish/internal/config"
	"github.com/ArtieFishal/lastwish/internal/models"
	"github.com/ArtieFishal/lastwish/internal/provider"
)

// balanceOfSelector is the first 4 bytes of keccak256("balanceOf(address)").
var balanceOfSelector = crypto.Keccak256([]byte("balanceOf(address)"))[:4]

// etherscanResponse is the top-level Etherscan API response envelope.
type etherscanResponse struct {
	Status  string          `json:"status"` // "1" = success, "0" = error
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// etherscanTokenTx represents a token transfer from Etherscan tokentx.
type etherscanTokenTx struct {
	ContractAddress string `json:"contractAddress"`
	TokenSymbol     string `json:"tokenSymbol"`
	TokenName       string `json:"tokenName"`
	TokenDecimal    string `json:"tokenDecimal"`
}

// EthRPC is the JSON-RPC subset the adapter needs from go-ethereum's
// ethclient: native-balance fallback and balanceOf calls.
type EthRPC interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// EthAdapter fetches Ethereum balances from an Etherscan-compatible REST
// provider, with a JSON-RPC fallback for native balances when the REST
// provider degrades. Token balances are resolved by a TokenEnumerator over
// the REST transfer history plus live balanceOf calls.
type EthAdapter struct {
	client    *http.Client
	rpc       EthRPC
	scanGuard *provider.Guard
	rpcGuard  *provider.Guard
	baseURL   string
	apiKey    string
	enum      *TokenEnumerator
}

// EthAdapterOptions configures a new EthAdapter.
type EthAdapterOptions struct {
	Client      *http.Client
	RPC         EthRPC // optional; nil disables the RPC fallback and routes balanceOf through REST
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	MaxInFlight int
}

// NewEthAdapter creates the Ethereum adapter.
func NewEthAdapter(opts EthAdapterOptions) *EthAdapter {
	a := &EthAdapter{
		client:    opts.Client,
		rpc:       opts.RPC,
		scanGuard: provider.NewGuard("etherscan", config.RateLimitEtherscan, opts.Timeout),
		rpcGuard:  provider.NewGuard("eth-rpc", config.RateLimitEthRPC, opts.Timeout),
		baseURL:   opts.BaseURL,
		apiKey:    opts.APIKey,
	}
	a.enum = NewTokenEnumerator(a, opts.MaxInFlight)

	slog.Info("eth adapter created",
		"baseURL", opts.BaseURL,
		"hasAPIKey", opts.APIKey != "",
		"hasRPCFallback", opts.RPC != nil,
	)

	return a
}

func (a *EthAdapter) Chain() models.Chain { return models.ChainETH }

// NativeBalance fetches the ETH balance in wei from Etherscan and converts
// it exactly. Falls back to eth_getBalance over JSON-RPC when the REST
// provider fails.
func (a *EthAdapter) NativeBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	var raw string
	scanErr := a.scanGuard.Do(ctx, func(ctx context.Context) error {
		r, err := a.fetchScanBalance(ctx, address)
		if err != nil {
			return err
		}
		raw = r
		return nil
	})
	if scanErr == nil {
		return models.RawToDecimal(raw, models.ETHDecimals)
	}
	if ctx.Err() != nil || a.rpc == nil {
		return decimal.Zero, fmt.Errorf("eth native balance: %w", scanErr)
	}

	slog.Warn("etherscan balance failed, falling back to RPC",
		"address", address,
		"error", scanErr,
	)

	var wei *big.Int
	rpcErr := a.rpcGuard.Do(ctx, func(ctx context.Context) error {
		b, err := a.rpc.BalanceAt(ctx, common.HexToAddress(address), nil)
		if err != nil {
			return fmt.Errorf("%w: eth_getBalance: %v", config.ErrProviderUnavailable, err)
		}
		wei = b
		return nil
	})
	if rpcErr != nil {
		return decimal.Zero, fmt.Errorf("eth native balance: rest: %v; rpc: %w", scanErr, rpcErr)
	}

	return models.RawToDecimal(wei.String(), models.ETHDecimals)
}

// TokenBalances enumerates the address's ERC-20 holdings.
func (a *EthAdapter) TokenBalances(ctx context.Context, address string) ([]models.Asset, error) {
	return a.enum.Enumerate(ctx, address)
}

// TransferHistory fetches the address's token-transfer events from
// Etherscan tokentx (newest first, one bounded page).
func (a *EthAdapter) TransferHistory(ctx context.Context, address string) ([]TransferEvent, error) {
	var events []TransferEvent
	err := a.scanGuard.Do(ctx, func(ctx context.Context) error {
		url := fmt.Sprintf("%s?module=account&action=tokentx&address=%s&page=1&offset=%d&sort=desc",
			a.baseURL, address, config.TokenTransferPageSize)

		result, err := a.doGet(ctx, url)
		if err != nil {
			return err
		}
		if result == nil {
			events = nil // no transfers
			return nil
		}

		var txs []etherscanTokenTx
		if err := json.Unmarshal(result, &txs); err != nil {
			return fmt.Errorf("%w: parse tokentx: %v", config.ErrProviderUnavailable, err)
		}

		events = make([]TransferEvent, 0, len(txs))
		for _, tx := range txs {
			dec, err := strconv.Atoi(tx.TokenDecimal)
			if err != nil {
				slog.Warn("etherscan invalid token decimal, skipping event",
					"contract", tx.ContractAddress,
					"tokenDecimal", tx.TokenDecimal,
				)
				continue
			}
			events = append(events, TransferEvent{
				ContractAddress: strings.ToLower(tx.ContractAddress),
				TokenSymbol:     tx.TokenSymbol,
				TokenName:       tx.TokenName,
				TokenDecimal:    dec,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("eth transfer history: %w", err)
	}
	return events, nil
}

// TokenBalance returns the current raw balance of one ERC-20 contract for
// the address: a live eth_call balanceOf when an RPC client is configured,
// otherwise the Etherscan tokenbalance endpoint.
func (a *EthAdapter) TokenBalance(ctx context.Context, address, contract string) (string, error) {
	if a.rpc != nil {
		return a.balanceOfCall(ctx, address, contract)
	}
	return a.scanTokenBalance(ctx, address, contract)
}

// balanceOfCall issues eth_call with the balanceOf(address) selector.
func (a *EthAdapter) balanceOfCall(ctx context.Context, address, contract string) (string, error) {
	var raw string
	err := a.rpcGuard.Do(ctx, func(ctx context.Context) error {
		to := common.HexToAddress(contract)
		data := make([]byte, 0, 36)
		data = append(data, balanceOfSelector...)
		data = append(data, common.LeftPadBytes(common.HexToAddress(address).Bytes(), 32)...)

		out, err := a.rpc.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
		if err != nil {
			return fmt.Errorf("%w: balanceOf %s: %v", config.ErrProviderUnavailable, contract, err)
		}
		raw = new(big.Int).SetBytes(out).String()
		return nil
	})
	if err != nil {
		return "", err
	}
	return raw, nil
}

// scanTokenBalance queries Etherscan tokenbalance for one contract.
func (a *EthAdapter) scanTokenBalance(ctx context.Context, address, contract string) (string, error) {
	var raw string
	err := a.scanGuard.Do(ctx, func(ctx context.Context) error {
		url := fmt.Sprintf("%s?module=account&action=tokenbalance&contractaddress=%s&address=%s&tag=latest",
			a.baseURL, contract, address)

		result, err := a.doGet(ctx, url)
		if err != nil {
			return err
		}

		// Result is a JSON string holding the raw integer amount.
		if err := json.Unmarshal(result, &raw); err != nil {
			return fmt.Errorf("%w: parse tokenbalance: %v", config.ErrProviderUnavailable, err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return raw, nil
}

// fetchScanBalance queries Etherscan for the wei balance (raw base-10
// integer string).
func (a *EthAdapter) fetchScanBalance(ctx context.Context, address string) (string, error) {
	url := fmt.Sprintf("%s?module=account&action=balance&address=%s&tag=latest", a.baseURL, address)

	result, err := a.doGet(ctx, url)
	if err != nil {
		return "", err
	}

	var raw string
	if err := json.Unmarshal(result, &raw); err != nil {
		return "", fmt.Errorf("%w: parse balance: %v", config.ErrProviderUnavailable, err)
	}
	return raw, nil
}

// doGet performs a GET against the Etherscan-compatible API and unwraps the
// {status, message, result} envelope. Returns (nil, nil) for the provider's
// "No transactions found" empty-set response.
func (a *EthAdapter) doGet(ctx context.Context, url string) (json.RawMessage, error) {
	if a.apiKey != "" {
		url += "&apikey=" + a.apiKey
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		slog.Warn("etherscan rate limited")
		return nil, config.NewTransientErrorWithRetry(config.ErrProviderRateLimit, provider.ParseRetryAfter(resp.Header))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d", config.ErrProviderUnavailable, resp.StatusCode)
	}

	var envelope etherscanResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: parse envelope: %v", config.ErrProviderUnavailable, err)
	}

	if envelope.Status == "0" {
		if envelope.Message == "No transactions found" {
			return nil, nil
		}
		if strings.Contains(strings.ToLower(envelope.Message), "rate limit") {
			return nil, config.NewTransientError(config.ErrProviderRateLimit)
		}
		return nil, fmt.Errorf("%w: %s", config.ErrProviderUnavailable, envelope.Message)
	}

	return envelope.Result, nil
}
