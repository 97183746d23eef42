package config

import "time"

// Provider endpoints — mainnet.
const (
	EtherscanAPIURL       = "https://api.etherscan.io/api"
	EthRPCMainnetURL      = "https://ethereum-rpc.publicnode.com"
	BlockstreamMainnetURL = "https://blockstream.info/api"
	SolanaRPCMainnetURL   = "https://api.mainnet-beta.solana.com"
	CoinGeckoBaseURL      = "https://api.coingecko.com/api/v3"
)

// Provider endpoints — testnet.
const (
	EtherscanTestnetURL   = "https://api-sepolia.etherscan.io/api"
	EthRPCTestnetURL      = "https://ethereum-sepolia-rpc.publicnode.com"
	BlockstreamTestnetURL = "https://blockstream.info/testnet/api"
	SolanaRPCTestnetURL   = "https://api.devnet.solana.com"
)

// Rate limits (requests per second per provider).
const (
	RateLimitEtherscan   = 5
	RateLimitEthRPC      = 10
	RateLimitBlockstream = 10
	RateLimitSolanaRPC   = 10
	RateLimitCoinGecko   = 5
)

// Circuit breaker.
const (
	CircuitBreakerThreshold   = 5
	CircuitBreakerCooldown    = 60 * time.Second
	CircuitBreakerHalfOpenMax = 1

	CircuitClosed   = "closed"
	CircuitOpen     = "open"
	CircuitHalfOpen = "half-open"
)

// Provider call handling. Transient failures are retried once after
// RetryBackoff (or the provider's Retry-After, whichever is longer).
const (
	ProviderRequestTimeout = 10 * time.Second
	RetryBackoff           = 500 * time.Millisecond
)

// Cache TTLs. The original deployment ran prices at 5 minutes and generic
// chain data at 15; both are overridable via Config rather than merged,
// since neither value is documented as authoritative.
const (
	DefaultPriceCacheTTL = 5 * time.Minute
	DefaultChainCacheTTL = 15 * time.Minute
)

// Token enumeration.
const (
	TokenTransferPageSize = 100 // tokentx events fetched per address
	MaxTokenContracts     = 200 // distinct contracts balance-checked per wallet
)

// HTTP connection pool.
const (
	HTTPMaxConnsPerHost     = 10
	HTTPMaxIdleConnsPerHost = 5
	HTTPMaxIdleConns        = 20
)

// Server.
const (
	ServerReadTimeout  = 15 * time.Second
	ServerWriteTimeout = 60 * time.Second
	ServerIdleTimeout  = 120 * time.Second
	ShutdownTimeout    = 10 * time.Second
)

// Logging.
const (
	LogFilePattern = "lastwish-%s.log" // %s = YYYY-MM-DD
	LogMaxAgeDays  = 30
)
