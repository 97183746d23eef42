package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Chain represents a supported blockchain.
type Chain string

const (
	ChainETH Chain = "ETH"
	ChainBTC Chain = "BTC"
	ChainSOL Chain = "SOL"
)

// AllChains is the ordered list of supported chains.
var AllChains = []Chain{ChainETH, ChainBTC, ChainSOL}

// ParseChain resolves a user-supplied chain identifier (symbol or full name,
// any case) to a Chain. Returns false for anything unrecognized.
func ParseChain(s string) (Chain, bool) {
	switch strings.ToLower(s) {
	case "eth", "ethereum":
		return ChainETH, true
	case "btc", "bitcoin":
		return ChainBTC, true
	case "sol", "solana":
		return ChainSOL, true
	default:
		return "", false
	}
}

// Native unit exponents: raw provider amounts (wei, satoshis, lamports) are
// scaled down by 10^decimals to the canonical display unit.
const (
	ETHDecimals = 18
	BTCDecimals = 8
	SOLDecimals = 9
)

// TokenType classifies an asset within a wallet.
type TokenType string

const (
	TokenTypeNative   TokenType = "native"
	TokenTypeFungible TokenType = "token"
	TokenTypeNFT      TokenType = "nft"
)

// WalletAddress pairs an address with the chain it lives on.
// Immutable once validated.
type WalletAddress struct {
	Chain   Chain  `json:"chain"`
	Address string `json:"address"`
}

// Asset is a single normalized holding: the chain's native coin or one
// fungible-token contract. Balance is the exact decimal amount (raw units
// divided by 10^Decimals), never a float.
type Asset struct {
	Symbol          string          `json:"symbol"`
	Name            string          `json:"name"`
	Balance         decimal.Decimal `json:"balance"`
	ContractAddress string          `json:"contractAddress,omitempty"`
	TokenType       TokenType       `json:"tokenType"`
	Decimals        int             `json:"decimals"`
	ValueFiat       decimal.Decimal `json:"valueFiat"`
	// PriceAvailable distinguishes "priced at zero" from "price lookup
	// failed"; ValueFiat is meaningless when this is false.
	PriceAvailable bool `json:"priceAvailable"`
}

// NativeAsset returns the zero-balance native asset descriptor for a chain.
func NativeAsset(chain Chain) Asset {
	switch chain {
	case ChainETH:
		return Asset{Symbol: "ETH", Name: "Ethereum", TokenType: TokenTypeNative, Decimals: ETHDecimals}
	case ChainBTC:
		return Asset{Symbol: "BTC", Name: "Bitcoin", TokenType: TokenTypeNative, Decimals: BTCDecimals}
	case ChainSOL:
		return Asset{Symbol: "SOL", Name: "Solana", TokenType: TokenTypeNative, Decimals: SOLDecimals}
	default:
		return Asset{TokenType: TokenTypeNative}
	}
}

// PriceQuote is one resolved fiat price for an asset. Quotes are never
// mutated; a fresh quote supersedes the old one in the cache.
type PriceQuote struct {
	AssetID   string          `json:"assetId"`
	Currency  string          `json:"currency"`
	Price     decimal.Decimal `json:"price"`
	Available bool            `json:"available"`
	FetchedAt time.Time       `json:"fetchedAt"`
}

// AggregationResult is the normalized output of one wallet aggregation.
// Assets are ordered native-first, then tokens in enumeration order.
// TotalValueFiat sums only assets whose price was available.
type AggregationResult struct {
	Address        string          `json:"address"`
	Chain          Chain           `json:"chain"`
	Currency       string          `json:"currency"`
	Assets         []Asset         `json:"assets"`
	TotalValueFiat decimal.Decimal `json:"totalValueFiat"`
	FetchedAt      time.Time       `json:"fetchedAt"`
}

// APIResponse is the standard API response wrapper.
type APIResponse struct {
	Data interface{} `json:"data,omitempty"`
	Meta *APIMeta    `json:"meta,omitempty"`
}

// APIMeta contains execution metadata.
type APIMeta struct {
	ExecutionTime int64 `json:"executionTime,omitempty"`
}

// APIError is the standard error response.
type APIError struct {
	Error APIErrorDetail `json:"error"`
}

// APIErrorDetail contains error code and message.
type APIErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
