package domain

import "time"

// Score holds metrics derived from a TokenEvent.
type Score struct {
	BuySellRatio    float64 // buys / max(sells, 1)
	VolumeMcapRatio float64 // volume / fdv, 0 when fdv is 0
	AgeHours        float64 // hours since creation, reporting only
}

// RiskLevel classifies holder concentration risk.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskModerate RiskLevel = "MODERATE"
	RiskHigh     RiskLevel = "HIGH"
	RiskVeryHigh RiskLevel = "VERY_HIGH"
	RiskUnknown  RiskLevel = "UNKNOWN"
)

// String returns the string representation of RiskLevel.
func (r RiskLevel) String() string {
	return string(r)
}

// RiskAssessment is the reporting-only concentration analysis attached to a match.
type RiskAssessment struct {
	Concentration float64   // normalized HHI of synthesized holdings
	BotLikelihood float64   // 0-1
	Adjusted      float64   // concentration scaled by bot likelihood
	Level         RiskLevel // bucket of Adjusted
	LiquiditySafe bool      // pooled >= 2 SOL and LP fully burned
}

// MatchResult is produced once per admitted TokenEvent and handed to sinks.
// The pipeline does not retain it.
type MatchResult struct {
	MatchID   string      // deterministic hash of the event snapshot
	SessionID string      // feed connection session that delivered the frame
	Event     *TokenEvent // admitted event, shared and read-only
	Score     Score
	Risk      RiskAssessment
	MatchedAt time.Time
}
