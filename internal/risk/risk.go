// Package risk estimates holder-concentration risk for reported matches.
// The estimate is informational and is never part of admission.
package risk

import (
	"fmt"
	"math"

	"discover-scanner/internal/domain"
	"discover-scanner/internal/momentum"
)

// Thresholds are the inclusive upper bounds of each risk level on adjusted concentration.
type Thresholds struct {
	Low      float64
	Moderate float64
	High     float64
	VeryHigh float64
}

// DefaultThresholds returns the standard level boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Low:      0.25,
		Moderate: 0.50,
		High:     0.75,
		VeryHigh: 1.0,
	}
}

// maxSampledTrades caps synthesized trades per side.
const maxSampledTrades = 20

// Calculator derives a RiskAssessment from a token event.
type Calculator struct {
	thresholds Thresholds
}

// NewCalculator creates a calculator. A nil thresholds uses DefaultThresholds.
func NewCalculator(thresholds *Thresholds) *Calculator {
	t := DefaultThresholds()
	if thresholds != nil {
		t = *thresholds
	}
	return &Calculator{thresholds: t}
}

// Assess computes concentration, bot likelihood and the resulting level.
// Events without a top-holders audit or holder count are rated Unknown.
func (c *Calculator) Assess(e *domain.TokenEvent) domain.RiskAssessment {
	ra := domain.RiskAssessment{
		Level:         domain.RiskUnknown,
		LiquiditySafe: momentum.LiquiditySafe(e, momentum.DefaultMinSafeLiquidity),
	}
	ra.BotLikelihood = BotLikelihood(e, SampleTrades(e))

	if e.TopHoldersPercent == nil || e.HoldersCount <= 0 {
		return ra
	}

	ra.Concentration = Concentration(SynthesizeHoldings(*e.TopHoldersPercent, e.HoldersCount), e.HoldersCount)
	ra.Adjusted = ra.Concentration * (1 + math.Pow(ra.BotLikelihood, 1.5))
	ra.Level = c.Level(ra.Adjusted)
	return ra
}

// Level buckets an adjusted concentration.
func (c *Calculator) Level(adjusted float64) domain.RiskLevel {
	switch {
	case math.IsNaN(adjusted):
		return domain.RiskUnknown
	case adjusted <= c.thresholds.Low:
		return domain.RiskLow
	case adjusted <= c.thresholds.Moderate:
		return domain.RiskModerate
	case adjusted <= c.thresholds.High:
		return domain.RiskHigh
	case adjusted <= c.thresholds.VeryHigh:
		return domain.RiskVeryHigh
	default:
		return domain.RiskUnknown
	}
}

// SynthesizeHoldings approximates a holder distribution from the audit summary.
// The top 10% of holders get a linearly decaying share of topPercent, stopping
// once the share reaches zero; the rest split the remainder evenly and are
// represented by one bucket.
func SynthesizeHoldings(topPercent float64, holders int64) []float64 {
	if holders <= 0 {
		return nil
	}

	topN := int64(math.Ceil(float64(holders) * 0.1))
	holdings := make([]float64, 0, topN+1)
	var allocated float64
	for i := int64(0); i < topN; i++ {
		share := topPercent * (1 - 0.1*float64(i))
		if share <= 0 {
			break
		}
		holdings = append(holdings, share)
		allocated += share
	}

	if rest := holders - topN; rest > 0 {
		holdings = append(holdings, (100-allocated)/float64(rest))
	}
	return holdings
}

// Concentration returns the Herfindahl-Hirschman index of holdings,
// normalized by holder count when there is more than one holder.
func Concentration(holdings []float64, holders int64) float64 {
	var total float64
	for _, h := range holdings {
		total += h
	}
	if total <= 0 || len(holdings) == 0 {
		return 0
	}

	var hhi float64
	for _, h := range holdings {
		share := h / total
		hhi += share * share
	}

	if holders > 1 {
		n := float64(holders)
		return (hhi - 1/n) / (1 - 1/n)
	}
	return hhi
}

// TradeSide is the direction of a sampled trade.
type TradeSide int

const (
	SideBuy TradeSide = iota
	SideSell
)

// Trade is one trade used for bot-pattern detection.
type Trade struct {
	Second int64 // clustering key
	Price  float64
	Amount float64
	Wallet string
	Side   TradeSide
}

// SampleTrades synthesizes up to maxSampledTrades per side from the event's
// aggregate counters. All sampled trades share the creation second.
func SampleTrades(e *domain.TokenEvent) []Trade {
	price := e.PriceUSD.InexactFloat64()
	volume := e.Volume.InexactFloat64()

	var trades []Trade
	appendSide := func(count uint64, side TradeSide, prefix string) {
		if count == 0 {
			return
		}
		amount := volume / float64(count)
		n := count
		if n > maxSampledTrades {
			n = maxSampledTrades
		}
		for i := uint64(0); i < n; i++ {
			trades = append(trades, Trade{
				Second: e.CreatedTimestamp,
				Price:  price,
				Amount: amount,
				Wallet: fmt.Sprintf("%s_%d", prefix, i),
				Side:   side,
			})
		}
	}
	appendSide(e.Buys, SideBuy, "buyer")
	appendSide(e.Sells, SideSell, "seller")
	return trades
}

// BotLikelihood scores 0-1 how bot-like the trading looks.
func BotLikelihood(e *domain.TokenEvent, trades []Trade) float64 {
	var likelihood float64
	if e.SnipersCount > 0 {
		likelihood += 0.2
	}

	clusters := make(map[int64][]Trade)
	var order []int64
	for _, t := range trades {
		if _, ok := clusters[t.Second]; !ok {
			order = append(order, t.Second)
		}
		clusters[t.Second] = append(clusters[t.Second], t)
	}

	for _, sec := range order {
		cluster := clusters[sec]
		if len(cluster) < 3 {
			continue
		}

		prices := make([]float64, len(cluster))
		amounts := make([]float64, len(cluster))
		wallets := make(map[string]struct{})
		sameSide := true
		for i, t := range cluster {
			prices[i] = t.Price
			amounts[i] = t.Amount
			wallets[t.Wallet] = struct{}{}
			if t.Side != cluster[0].Side {
				sameSide = false
			}
		}

		if variance(prices) < 0.00001 && variance(amounts) < 0.001 {
			likelihood += 0.3
		}
		if sameSide {
			likelihood += 0.2
		}
		if len(wallets) <= 3 && len(cluster) > 5 {
			likelihood += 0.3
		}
	}

	return math.Min(likelihood, 1)
}

func variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum, sumSq float64
	for _, v := range values {
		sum += v
		sumSq += v * v
	}
	n := float64(len(values))
	mean := sum / n
	return sumSq/n - mean*mean
}
