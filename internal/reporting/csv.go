package reporting

import (
	"fmt"
	"strings"

	"discover-scanner/internal/domain"
)

// CSVHeader is the column header written before the first CSV row.
const CSVHeader = "match_id,session_id,matched_at_ms,token_address,name,symbol,twitter," +
	"market_cap,volume,pooled_sol,top_holders_perc,buys,sells," +
	"buy_sell_ratio,volume_mcap_ratio,age_hours,risk_level,liquidity_safe\n"

// RenderCSVRow renders a match as one CSV line.
func RenderCSVRow(m *domain.MatchResult) string {
	e := m.Event
	return fmt.Sprintf("%s,%s,%d,%s,%s,%s,%s,%s,%s,%s,%.4f,%d,%d,%.6f,%.6f,%.4f,%s,%t\n",
		m.MatchID,
		m.SessionID,
		m.MatchedAt.UnixMilli(),
		e.TokenAddress,
		csvField(e.Name),
		csvField(e.Symbol),
		csvField(e.Socials.Twitter),
		e.MarketCap.String(),
		e.Volume.String(),
		e.PooledLiquidity.String(),
		e.TopHolders(),
		e.Buys,
		e.Sells,
		m.Score.BuySellRatio,
		m.Score.VolumeMcapRatio,
		m.Score.AgeHours,
		m.Risk.Level,
		m.Risk.LiquiditySafe,
	)
}

// csvField quotes free-text values that would break the row.
func csvField(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
