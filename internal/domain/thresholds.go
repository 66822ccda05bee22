package domain

import "github.com/shopspring/decimal"

// FilterThresholds is the static admission configuration for the momentum filter.
// It is built once at startup and injected; it is never mutated at runtime.
type FilterThresholds struct {
	MinMarketCap         decimal.Decimal // inclusive lower bound on fdv (USD)
	MaxMarketCap         decimal.Decimal // inclusive upper bound on fdv (USD)
	MaxTopHoldersPercent float64         // inclusive upper bound, 0-100
	MinBuySellRatio      decimal.Decimal // inclusive lower bound on buys/max(sells,1)
	MinVolume            decimal.Decimal // inclusive lower bound (USD)
	MinPooledLiquidity   decimal.Decimal // inclusive lower bound (SOL)
	MinVolumeMcapRatio   decimal.Decimal // exclusive lower bound on volume/fdv
}

// DefaultFilterThresholds returns the thresholds the scanner ships with.
func DefaultFilterThresholds() FilterThresholds {
	return FilterThresholds{
		MinMarketCap:         decimal.NewFromInt(40_000),
		MaxMarketCap:         decimal.NewFromInt(500_000),
		MaxTopHoldersPercent: 25,
		MinBuySellRatio:      decimal.RequireFromString("1.2"),
		MinVolume:            decimal.NewFromInt(5_000),
		MinPooledLiquidity:   decimal.NewFromInt(20),
		MinVolumeMcapRatio:   decimal.RequireFromString("0.1"),
	}
}
