// Package momentum implements the admission filter and derived scores for token events.
// All functions are pure: thresholds are passed in and events are never mutated.
package momentum

import (
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	"discover-scanner/internal/domain"
)

// Reason names the first admission condition an event failed.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonNoSocialHandle  Reason = "no_social_handle"
	ReasonZeroMarketCap   Reason = "zero_market_cap"
	ReasonMarketCapRange  Reason = "market_cap_out_of_range"
	ReasonTopHolders      Reason = "top_holders_too_high"
	ReasonBuySellRatio    Reason = "buy_sell_ratio_too_low"
	ReasonVolume          Reason = "volume_too_low"
	ReasonPooledLiquidity Reason = "pooled_liquidity_too_low"
	ReasonVolumeMcapRatio Reason = "volume_mcap_ratio_too_low"
)

// Verdict is the outcome of Evaluate.
type Verdict struct {
	Admitted bool
	Reason   Reason // empty when admitted
	Detail   string // actual vs threshold for the failing condition
}

// Evaluate checks all admission conditions in order and stops at the first failure.
func Evaluate(e *domain.TokenEvent, t domain.FilterThresholds) Verdict {
	if !e.Socials.HasSocialHandle() {
		return reject(ReasonNoSocialHandle, "twitter handle missing")
	}

	// Fails closed before any ratio is taken.
	if e.MarketCap.IsZero() {
		return reject(ReasonZeroMarketCap, "market cap is 0")
	}

	if e.MarketCap.LessThan(t.MinMarketCap) || e.MarketCap.GreaterThan(t.MaxMarketCap) {
		return reject(ReasonMarketCapRange,
			fmt.Sprintf("mcap %s not in [%s, %s]", e.MarketCap, t.MinMarketCap, t.MaxMarketCap))
	}

	if top := e.TopHolders(); top > t.MaxTopHoldersPercent {
		return reject(ReasonTopHolders,
			fmt.Sprintf("top holders %.2f%% > %.2f%%", top, t.MaxTopHoldersPercent))
	}

	if ratio := BuySellRatio(e); ratio.LessThan(t.MinBuySellRatio) {
		return reject(ReasonBuySellRatio,
			fmt.Sprintf("buy/sell %s < %s", ratio.StringFixed(2), t.MinBuySellRatio))
	}

	if e.Volume.LessThan(t.MinVolume) {
		return reject(ReasonVolume, fmt.Sprintf("volume %s < %s", e.Volume, t.MinVolume))
	}

	if e.PooledLiquidity.LessThan(t.MinPooledLiquidity) {
		return reject(ReasonPooledLiquidity,
			fmt.Sprintf("pooled %s < %s", e.PooledLiquidity, t.MinPooledLiquidity))
	}

	// Compared as volume > min*mcap so the division's rounding cannot admit or reject.
	if !e.Volume.GreaterThan(t.MinVolumeMcapRatio.Mul(e.MarketCap)) {
		ratio, _ := VolumeMcapRatio(e)
		return reject(ReasonVolumeMcapRatio,
			fmt.Sprintf("volume/mcap %s <= %s", ratio, t.MinVolumeMcapRatio))
	}

	return Verdict{Admitted: true}
}

// Admits reports whether e passes every admission condition.
func Admits(e *domain.TokenEvent, t domain.FilterThresholds) bool {
	return Evaluate(e, t).Admitted
}

func reject(reason Reason, detail string) Verdict {
	return Verdict{Reason: reason, Detail: detail}
}

var one = decimal.NewFromInt(1)

// BuySellRatio returns buys / max(sells, 1).
func BuySellRatio(e *domain.TokenEvent) decimal.Decimal {
	buys := decimal.NewFromBigInt(new(big.Int).SetUint64(e.Buys), 0)
	sells := decimal.NewFromBigInt(new(big.Int).SetUint64(e.Sells), 0)
	if sells.LessThan(one) {
		sells = one
	}
	return buys.Div(sells)
}

// VolumeMcapRatio returns volume / market cap. ok is false when market cap is 0.
func VolumeMcapRatio(e *domain.TokenEvent) (ratio decimal.Decimal, ok bool) {
	if e.MarketCap.IsZero() {
		return decimal.Zero, false
	}
	return e.Volume.Div(e.MarketCap), true
}

// Score derives the reported metrics using the same ratios as admission.
// AgeHours is measured against now and is never used for admission.
func Score(e *domain.TokenEvent, now time.Time) domain.Score {
	vm, _ := VolumeMcapRatio(e)

	var age float64
	if e.CreatedTimestamp > 0 {
		age = now.Sub(time.Unix(e.CreatedTimestamp, 0)).Hours()
	}

	return domain.Score{
		BuySellRatio:    BuySellRatio(e).InexactFloat64(),
		VolumeMcapRatio: vm.InexactFloat64(),
		AgeHours:        age,
	}
}

// DefaultMinSafeLiquidity is the pooled SOL floor for LiquiditySafe.
var DefaultMinSafeLiquidity = decimal.NewFromInt(2)

// LiquiditySafe reports whether the pool holds at least minPooled and all LP tokens are burned.
// Informational only.
func LiquiditySafe(e *domain.TokenEvent, minPooled decimal.Decimal) bool {
	return e.PooledLiquidity.GreaterThanOrEqual(minPooled) && e.LPBurnedPercent >= 100
}
