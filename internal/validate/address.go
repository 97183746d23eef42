package validate

import (
	"fmt"
	"log/slog"
	"regexp"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/mr-tron/base58"

	"github.com/ArtieFishal/lastwish/internal/config"
	"github.com/ArtieFishal/lastwish/internal/models"
)

// ethAddressRegex matches a valid EVM hex address (0x + 40 hex chars).
var ethAddressRegex = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// Address validates that addr is a well-formed address for the given chain.
// Network must be "mainnet" or "testnet". Pure — no network access, so it is
// always safe to call before any provider work.
func Address(chain models.Chain, addr, network string) error {
	slog.Debug("validating address",
		"chain", chain,
		"address", addr,
		"network", network,
	)

	switch chain {
	case models.ChainETH:
		return validateETH(addr)
	case models.ChainBTC:
		return validateBTC(addr, network)
	case models.ChainSOL:
		return validateSOL(addr)
	default:
		return fmt.Errorf("%w: %q", config.ErrUnsupportedChain, chain)
	}
}

// validateETH checks the 0x + 40 hex chars format, case-insensitive.
// Same format for mainnet and testnet.
func validateETH(addr string) error {
	if !ethAddressRegex.MatchString(addr) {
		return fmt.Errorf("%w: %q must match 0x + 40 hex characters", config.ErrInvalidAddress, addr)
	}
	return nil
}

// validateBTC uses btcutil.DecodeAddress to fully validate a BTC address,
// including checksum verification for both Base58Check (1/3 prefixes) and
// bech32 (bc1) forms, and verifies the address belongs to the network.
func validateBTC(addr, network string) error {
	var params *chaincfg.Params
	switch network {
	case "mainnet":
		params = &chaincfg.MainNetParams
	case "testnet":
		params = &chaincfg.TestNet3Params
	default:
		return fmt.Errorf("%w: unsupported BTC network %q", config.ErrInvalidAddress, network)
	}

	decoded, err := btcutil.DecodeAddress(addr, params)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", config.ErrInvalidAddress, addr, err)
	}

	if !decoded.IsForNet(params) {
		return fmt.Errorf("%w: %q is not a %s address", config.ErrInvalidAddress, addr, network)
	}

	return nil
}

// validateSOL decodes a base58 address and verifies it is exactly 32 bytes
// (ed25519 public key). The textual form is 32-44 characters.
func validateSOL(addr string) error {
	if len(addr) < 32 || len(addr) > 44 {
		return fmt.Errorf("%w: %q length %d, expected 32-44", config.ErrInvalidAddress, addr, len(addr))
	}
	decoded, err := base58.Decode(addr)
	if err != nil {
		return fmt.Errorf("%w: %q: base58 decode failed: %v", config.ErrInvalidAddress, addr, err)
	}
	if len(decoded) != 32 {
		return fmt.Errorf("%w: %q decoded to %d bytes, expected 32", config.ErrInvalidAddress, addr, len(decoded))
	}
	return nil
}
