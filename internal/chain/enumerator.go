package chain

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/ArtieFishal/lastwish/internal/config"
	"github.com/ArtieFishal/lastwish/internal/models"
)

// TransferEvent is one token-transfer record from the chain's indexing
// provider.
type TransferEvent struct {
	ContractAddress string
	TokenSymbol     string
	TokenName       string
	TokenDecimal    int
}

// TokenSource supplies the two provider calls token enumeration needs.
type TokenSource interface {
	// TransferHistory returns the address's token-transfer events
	// (bounded page size).
	TransferHistory(ctx context.Context, address string) ([]TransferEvent, error)

	// TokenBalance returns the address's current raw balance for one token
	// contract, as a base-10 integer string.
	TokenBalance(ctx context.Context, address, contract string) (string, error)
}

// TokenEnumerator reconstructs the set of fungible-token contracts an
// address currently holds. No provider endpoint lists "all tokens held"
// reliably, so transfer history supplies candidate contracts and a live
// balance query per contract supplies the current truth — a historical
// transfer does not imply current holding.
type TokenEnumerator struct {
	src         TokenSource
	maxInFlight int
}

// NewTokenEnumerator creates an enumerator querying balances through src
// with at most maxInFlight concurrent balance calls.
func NewTokenEnumerator(src TokenSource, maxInFlight int) *TokenEnumerator {
	if maxInFlight < 1 {
		maxInFlight = 1
	}
	return &TokenEnumerator{src: src, maxInFlight: maxInFlight}
}

// Enumerate returns the address's current token holdings. Each contract
// appears at most once regardless of how many transfer events reference it,
// and only strictly positive balances are included. A failed balance query
// for one contract skips that contract only.
func (e *TokenEnumerator) Enumerate(ctx context.Context, address string) ([]models.Asset, error) {
	events, err := e.src.TransferHistory(ctx, address)
	if err != nil {
		return nil, err
	}

	// Dedupe candidate contracts, preserving first-seen order so output
	// ordering is deterministic.
	seen := make(map[string]struct{}, len(events))
	candidates := make([]TransferEvent, 0, len(events))
	for _, ev := range events {
		if ev.ContractAddress == "" {
			continue
		}
		if _, ok := seen[ev.ContractAddress]; ok {
			continue
		}
		seen[ev.ContractAddress] = struct{}{}
		candidates = append(candidates, ev)
	}

	if len(candidates) > config.MaxTokenContracts {
		slog.Warn("token candidate set truncated",
			"address", address,
			"candidates", len(candidates),
			"max", config.MaxTokenContracts,
		)
		candidates = candidates[:config.MaxTokenContracts]
	}

	slog.Debug("token candidates collected",
		"address", address,
		"events", len(events),
		"candidates", len(candidates),
	)

	results := make([]models.Asset, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxInFlight)

	for i, cand := range candidates {
		g.Go(func() error {
			raw, err := e.src.TokenBalance(gctx, address, cand.ContractAddress)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				slog.Warn("token balance query failed, skipping contract",
					"address", address,
					"contract", cand.ContractAddress,
					"symbol", cand.TokenSymbol,
					"error", err,
				)
				return nil
			}

			balance, err := models.RawToDecimal(raw, cand.TokenDecimal)
			if err != nil {
				slog.Warn("token balance unparseable, skipping contract",
					"contract", cand.ContractAddress,
					"raw", raw,
					"error", err,
				)
				return nil
			}

			// Historical holder, now divested.
			if !balance.IsPositive() {
				return nil
			}

			results[i] = models.Asset{
				Symbol:          cand.TokenSymbol,
				Name:            cand.TokenName,
				Balance:         balance,
				ContractAddress: cand.ContractAddress,
				TokenType:       models.TokenTypeFungible,
				Decimals:        cand.TokenDecimal,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	assets := make([]models.Asset, 0, len(results))
	for _, a := range results {
		if a.Symbol != "" {
			assets = append(assets, a)
		}
	}

	slog.Debug("token enumeration complete",
		"address", address,
		"held", len(assets),
	)

	return assets, nil
}
