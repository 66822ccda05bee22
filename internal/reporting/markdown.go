package reporting

import (
	"fmt"
	"strings"
	"time"

	"discover-scanner/internal/domain"
)

// RenderMarkdown renders a match as two Markdown tables: token and momentum.
func RenderMarkdown(m *domain.MatchResult) string {
	e := m.Event
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("## %s (%s)\n\n", e.Name, e.Symbol))
	sb.WriteString(fmt.Sprintf("Matched: %s | Match: %s\n\n", m.MatchedAt.UTC().Format(time.RFC3339), shortID(m.MatchID)))

	// Token
	sb.WriteString("| Name | Symbol | Twitter | Price USD | Market Cap | Holders | Top Holders | Volume | Vol/Mcap | Token | Dev Holding | LP Burned |\n")
	sb.WriteString("|------|--------|---------|-----------|------------|---------|-------------|--------|----------|-------|-------------|-----------|\n")
	sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %d | %.2f%% | %s | %.3f | %s | %.2f%% | %.0f%% |\n",
		e.Name, e.Symbol, e.Socials.Twitter,
		e.PriceUSD.String(), e.MarketCap.StringFixed(0), e.HoldersCount, e.TopHolders(),
		e.Volume.StringFixed(0), m.Score.VolumeMcapRatio, tokenCell(e),
		e.DevHoldingPercent, e.LPBurnedPercent))
	sb.WriteString("\n")

	// Momentum
	sb.WriteString("| Buys | Sells | Buy/Sell | Pooled SOL | Volume | Created | Age (h) | Risk | LP Safe |\n")
	sb.WriteString("|------|-------|----------|------------|--------|---------|---------|------|---------|\n")
	sb.WriteString(fmt.Sprintf("| %d | %d | %.2f | %s | %s | %s | %.2f | %s | %t |\n",
		e.Buys, e.Sells, m.Score.BuySellRatio,
		e.PooledLiquidity.String(), e.Volume.StringFixed(0),
		createdCell(e.CreatedTimestamp), m.Score.AgeHours,
		m.Risk.Level, m.Risk.LiquiditySafe))
	sb.WriteString("\n")

	return sb.String()
}

func tokenCell(e *domain.TokenEvent) string {
	if !e.AddressValid {
		return e.TokenAddress + " (unverified)"
	}
	return e.TokenAddress
}

func createdCell(ts int64) string {
	if ts <= 0 {
		return "-"
	}
	return time.Unix(ts, 0).UTC().Format("2006-01-02 15:04:05")
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
