package chain

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/ArtieFishal/lastwish/internal/config"
	"github.com/ArtieFishal/lastwish/internal/models"
)

// Adapter fetches balance data for one chain family from its public data
// provider. Provider-level failures are reported as errors so the caller can
// decide between degrading and aborting; adapters never panic on bad
// provider data.
type Adapter interface {
	// Chain returns the blockchain this adapter serves.
	Chain() models.Chain

	// NativeBalance returns the address's native-coin balance in canonical
	// decimal units (raw amount divided by 10^decimals, exactly).
	NativeBalance(ctx context.Context, address string) (decimal.Decimal, error)

	// TokenBalances returns the address's fungible-token holdings. Chains
	// without a supported token standard return an empty slice, not an
	// error.
	TokenBalances(ctx context.Context, address string) ([]models.Asset, error)
}

// Registry resolves the Adapter for a chain. Adding a chain means
// registering one adapter — call sites never branch on chain names.
type Registry struct {
	adapters map[models.Chain]Adapter
}

// NewRegistry builds a registry from the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	m := make(map[models.Chain]Adapter, len(adapters))
	chains := make([]models.Chain, 0, len(adapters))
	for _, a := range adapters {
		m[a.Chain()] = a
		chains = append(chains, a.Chain())
	}

	slog.Info("chain adapter registry created",
		"chains", chains,
	)

	return &Registry{adapters: m}
}

// Resolve returns the adapter for chain, or ErrUnsupportedChain.
func (r *Registry) Resolve(chain models.Chain) (Adapter, error) {
	a, ok := r.adapters[chain]
	if !ok {
		return nil, fmt.Errorf("%w: %q", config.ErrUnsupportedChain, chain)
	}
	return a, nil
}

// Chains returns the registered chains in the canonical model order.
func (r *Registry) Chains() []models.Chain {
	out := make([]models.Chain, 0, len(r.adapters))
	for _, c := range models.AllChains {
		if _, ok := r.adapters[c]; ok {
			out = append(out, c)
		}
	}
	return out
}
