package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// TokenEvent is one token record decoded from a discover batch.
// It is immutable once decoded; consumers receive a pointer and must not mutate it.
type TokenEvent struct {
	Name         string // token name
	Symbol       string // ticker symbol
	TokenAddress string // mint (contract) address
	PoolAddress  string // liquidity pool address
	AddressValid bool   // TokenAddress is a base58 32-byte public key

	MarketCap       decimal.Decimal // fully-diluted valuation (USD)
	PriceUSD        decimal.Decimal // spot price (USD)
	PooledLiquidity decimal.Decimal // pooled base asset (SOL)
	Volume          decimal.Decimal // trailing-window volume (USD)

	TopHoldersPercent *float64 // top holders concentration 0-100, nil when the audit is missing
	DevHoldingPercent float64  // share held by the deployer
	HoldersCount      int64    // total holders
	SnipersCount      int64    // wallets flagged as snipers

	Buys  uint64 // buy transactions in window
	Sells uint64 // sell transactions in window

	LPBurnedPercent float64 // liquidity burned, 0 when unaudited
	MintAuthority   *bool   // mint authority still enabled (nullable)
	FreezeAuthority *bool   // freeze authority still enabled (nullable)

	Socials Socials

	CreatedTimestamp int64 // Unix epoch seconds
}

// Socials holds optional social handles announced for a token.
type Socials struct {
	Twitter  string
	Telegram string
	Website  string
}

// HasSocialHandle reports whether a microblogging handle is present.
func (s Socials) HasSocialHandle() bool {
	return strings.TrimSpace(s.Twitter) != ""
}

// TopHolders returns the top-holder concentration, treating missing audit data as 100%.
func (e *TokenEvent) TopHolders() float64 {
	if e.TopHoldersPercent == nil {
		return 100
	}
	return *e.TopHoldersPercent
}
