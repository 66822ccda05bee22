package domain

import "github.com/shopspring/decimal"

// MatchRecord is the flat, persisted form of a MatchResult.
// Journals store it append-only keyed by MatchID.
type MatchRecord struct {
	MatchID          string // deterministic hash of the event snapshot
	SessionID        string // feed session that delivered the event
	TokenAddress     string
	PoolAddress      string
	Name             string
	Symbol           string
	Twitter          string
	CreatedTimestamp int64 // Unix epoch seconds

	MarketCap         decimal.Decimal
	PriceUSD          decimal.Decimal
	PooledLiquidity   decimal.Decimal
	Volume            decimal.Decimal
	TopHoldersPercent float64 // 100 when the audit was missing
	Buys              uint64
	Sells             uint64

	BuySellRatio    float64
	VolumeMcapRatio float64
	AgeHours        float64

	RiskLevel     string
	Concentration float64 // adjusted concentration
	LiquiditySafe bool

	MatchedAtMs int64 // Unix epoch milliseconds
}

// NewMatchRecord flattens m for persistence.
func NewMatchRecord(m *MatchResult) *MatchRecord {
	e := m.Event
	return &MatchRecord{
		MatchID:           m.MatchID,
		SessionID:         m.SessionID,
		TokenAddress:      e.TokenAddress,
		PoolAddress:       e.PoolAddress,
		Name:              e.Name,
		Symbol:            e.Symbol,
		Twitter:           e.Socials.Twitter,
		CreatedTimestamp:  e.CreatedTimestamp,
		MarketCap:         e.MarketCap,
		PriceUSD:          e.PriceUSD,
		PooledLiquidity:   e.PooledLiquidity,
		Volume:            e.Volume,
		TopHoldersPercent: e.TopHolders(),
		Buys:              e.Buys,
		Sells:             e.Sells,
		BuySellRatio:      m.Score.BuySellRatio,
		VolumeMcapRatio:   m.Score.VolumeMcapRatio,
		AgeHours:          m.Score.AgeHours,
		RiskLevel:         m.Risk.Level.String(),
		Concentration:     m.Risk.Adjusted,
		LiquiditySafe:     m.Risk.LiquiditySafe,
		MatchedAtMs:       m.MatchedAt.UnixMilli(),
	}
}
