// Package discover decodes DiscoverLpChannel frames into token events.
package discover

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"

	"discover-scanner/internal/domain"
)

// Channel is the feed channel carrying newly discovered pools.
const Channel = "DiscoverLpChannel"

// Skip reasons reported through Decoder.OnSkip.
const (
	SkipMissingAttributes = "missing_attributes"
	SkipNegativeMoney     = "negative_money"
	SkipMalformedRecord   = "malformed_record"
)

// Decode failure reasons carried by DecodeError.
const (
	ReasonInvalidJSON = "invalid_json"
	ReasonBadBatch    = "bad_batch"
)

// DecodeError reports a frame that could not be decoded at all.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return "discover: " + e.Reason
	}
	return fmt.Sprintf("discover: %s: %v", e.Reason, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

var errNotObjectArray = errors.New("data is not an array of objects")

// Decoder converts raw frames into token events.
type Decoder struct {
	// OnSkip is called for every record dropped from an otherwise valid batch.
	OnSkip func(index int, reason string, err error)
}

// Decode is a convenience for a Decoder without hooks.
func Decode(raw []byte) ([]*domain.TokenEvent, error) {
	var d Decoder
	return d.Decode(raw)
}

// Decode parses one frame. Frames without a discover batch return nil, nil.
// Records are returned in batch order; malformed records are skipped.
func (d *Decoder) Decode(raw []byte) ([]*domain.TokenEvent, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &DecodeError{Reason: ReasonInvalidJSON, Err: err}
	}

	data, ok := batchData(env.Message)
	if !ok {
		return nil, nil
	}

	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, &DecodeError{Reason: ReasonBadBatch, Err: errNotObjectArray}
	}
	for _, rec := range records {
		if !isObject(rec) {
			return nil, &DecodeError{Reason: ReasonBadBatch, Err: errNotObjectArray}
		}
	}

	events := make([]*domain.TokenEvent, 0, len(records))
	for i, rec := range records {
		var tr tokenRecord
		if err := json.Unmarshal(rec, &tr); err != nil {
			d.skip(i, SkipMalformedRecord, err)
			continue
		}
		if tr.Attributes == nil {
			d.skip(i, SkipMissingAttributes, nil)
			continue
		}
		if err := checkMoney(tr.Attributes); err != nil {
			d.skip(i, SkipNegativeMoney, err)
			continue
		}
		events = append(events, toEvent(tr.Attributes))
	}
	return events, nil
}

func (d *Decoder) skip(index int, reason string, err error) {
	if d.OnSkip != nil {
		d.OnSkip(index, reason, err)
	}
}

// batchData extracts message.discover.data if the frame carries one.
func batchData(message json.RawMessage) (json.RawMessage, bool) {
	if !isObject(message) {
		return nil, false
	}
	var msg discoverMessage
	if err := json.Unmarshal(message, &msg); err != nil || !isObject(msg.Discover) {
		return nil, false
	}
	var batch discoverBatch
	if err := json.Unmarshal(msg.Discover, &batch); err != nil {
		return nil, false
	}
	if len(batch.Data) == 0 || bytes.Equal(bytes.TrimSpace(batch.Data), []byte("null")) {
		return nil, false
	}
	return batch.Data, true
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func checkMoney(a *tokenAttributes) error {
	switch {
	case a.FDV.IsNegative():
		return fmt.Errorf("negative fdv %s", a.FDV)
	case a.Volume.IsNegative():
		return fmt.Errorf("negative volume %s", a.Volume)
	case a.PriceUSD.IsNegative():
		return fmt.Errorf("negative price %s", a.PriceUSD)
	case a.PooledSOL.IsNegative():
		return fmt.Errorf("negative pooled liquidity %s", a.PooledSOL)
	}
	return nil
}

func toEvent(a *tokenAttributes) *domain.TokenEvent {
	e := &domain.TokenEvent{
		Name:              a.Name,
		Symbol:            a.Symbol,
		TokenAddress:      a.TokenAddress,
		PoolAddress:       a.Address,
		AddressValid:      ValidAddress(a.TokenAddress),
		MarketCap:         a.FDV,
		PriceUSD:          a.PriceUSD,
		PooledLiquidity:   a.PooledSOL,
		Volume:            a.Volume,
		DevHoldingPercent: a.DevHoldingPerc,
		HoldersCount:      a.HoldersCount,
		SnipersCount:      a.SnipersCount,
		Buys:              a.BuysCount,
		Sells:             a.SellsCount,
		CreatedTimestamp:  a.CreatedTimestamp,
	}
	if a.Audit != nil {
		if a.Audit.TopHoldersPerc != nil {
			v := *a.Audit.TopHoldersPerc
			e.TopHoldersPercent = &v
		}
		if a.Audit.LPBurnedPerc != nil {
			e.LPBurnedPercent = *a.Audit.LPBurnedPerc
		}
		e.MintAuthority = a.Audit.MintAuthority
		e.FreezeAuthority = a.Audit.FreezeAuthority
	}
	if a.Socials != nil {
		e.Socials = domain.Socials{
			Twitter:  a.Socials.Twitter,
			Telegram: a.Socials.Telegram,
			Website:  a.Socials.Website,
		}
	}
	return e
}

// ValidAddress reports whether s is a base58-encoded 32-byte Solana address.
func ValidAddress(s string) bool {
	if s == "" {
		return false
	}
	b, err := base58.Decode(s)
	return err == nil && len(b) == 32
}
