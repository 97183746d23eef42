package handlers

import (
	"net/http"

	"github.com/ArtieFishal/lastwish/internal/chain"
	"github.com/ArtieFishal/lastwish/internal/models"
)

type chainInfo struct {
	ID       models.Chain `json:"id"`
	Name     string       `json:"name"`
	Symbol   string       `json:"symbol"`
	Decimals int          `json:"decimals"`
	// Tokens reports whether fungible-token enumeration is supported.
	Tokens bool `json:"tokens"`
}

// ListChains handles GET /api/chains — the chains this deployment can
// aggregate, in canonical order.
func ListChains(registry *chain.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chains := registry.Chains()
		out := make([]chainInfo, 0, len(chains))
		for _, c := range chains {
			native := models.NativeAsset(c)
			out = append(out, chainInfo{
				ID:       c,
				Name:     native.Name,
				Symbol:   native.Symbol,
				Decimals: native.Decimals,
				Tokens:   c == models.ChainETH,
			})
		}
		writeJSON(w, http.StatusOK, models.APIResponse{Data: out})
	}
}
