package discover

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// envelope is the outer ActionCable frame. Message is kept raw because
// welcome and ping frames carry scalars there.
type envelope struct {
	Type       string          `json:"type,omitempty"`
	Identifier string          `json:"identifier,omitempty"`
	Message    json.RawMessage `json:"message,omitempty"`
}

type discoverMessage struct {
	Discover json.RawMessage `json:"discover"`
}

type discoverBatch struct {
	Data json.RawMessage `json:"data"`
}

type tokenRecord struct {
	ID         string           `json:"id"`
	Type       string           `json:"type"`
	Attributes *tokenAttributes `json:"attributes"`
}

type tokenAttributes struct {
	Address          string          `json:"address"`
	TokenAddress     string          `json:"tokenAddress"`
	Name             string          `json:"name"`
	Symbol           string          `json:"symbol"`
	FDV              decimal.Decimal `json:"fdv"`
	PriceUSD         decimal.Decimal `json:"price_usd"`
	PooledSOL        decimal.Decimal `json:"pooled_sol"`
	Volume           decimal.Decimal `json:"volume"`
	BuysCount        uint64          `json:"buys_count"`
	SellsCount       uint64          `json:"sells_count"`
	HoldersCount     int64           `json:"holders_count"`
	SnipersCount     int64           `json:"snipers_count"`
	DevHoldingPerc   float64         `json:"dev_holding_perc"`
	CreatedTimestamp int64           `json:"created_timestamp"`
	Audit            *tokenAudit     `json:"audit"`
	Socials          *tokenSocials   `json:"socials"`
}

type tokenAudit struct {
	TopHoldersPerc  *float64 `json:"top_holders_perc"`
	LPBurnedPerc    *float64 `json:"lp_burned_perc"`
	MintAuthority   *bool    `json:"mint_authority"`
	FreezeAuthority *bool    `json:"freeze_authority"`
}

type tokenSocials struct {
	Twitter  string `json:"twitter"`
	Telegram string `json:"telegram"`
	Website  string `json:"website"`
}

// subscribeCommand is the ActionCable subscribe request.
type subscribeCommand struct {
	Command    string `json:"command"`
	Identifier string `json:"identifier"`
}

type pingMessage struct {
	Type string `json:"type"`
}
