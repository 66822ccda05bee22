package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"discover-scanner/internal/domain"
)

// ComputeMatchID computes a deterministic match_id using SHA256.
// Formula: SHA256(token_address|created_timestamp|buys|sells|volume|market_cap)
// Returns hex-encoded hash (64 characters).
// The same snapshot redelivered after a reconnect yields the same id.
func ComputeMatchID(e *domain.TokenEvent) string {
	data := fmt.Sprintf("%s|%d|%d|%d|%s|%s",
		e.TokenAddress,
		e.CreatedTimestamp,
		e.Buys,
		e.Sells,
		e.Volume.String(),
		e.MarketCap.String(),
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
