package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"discover-scanner/internal/domain"
	"discover-scanner/internal/storage"
)

// MatchJournal implements storage.MatchJournal using PostgreSQL.
type MatchJournal struct {
	pool *Pool
}

// NewMatchJournal creates a new MatchJournal.
func NewMatchJournal(pool *Pool) *MatchJournal {
	return &MatchJournal{pool: pool}
}

// Compile-time interface check.
var _ storage.MatchJournal = (*MatchJournal)(nil)

const matchJournalColumns = `
	match_id, session_id, token_address, pool_address, name, symbol, twitter,
	created_timestamp, market_cap::text, price_usd::text, pooled_liquidity::text, volume::text,
	top_holders_percent, buys, sells, buy_sell_ratio, volume_mcap_ratio, age_hours,
	risk_level, concentration, liquidity_safe, matched_at
`

// Insert adds a new record. Returns ErrDuplicateKey if match_id exists.
func (s *MatchJournal) Insert(ctx context.Context, r *domain.MatchRecord) error {
	if r == nil || r.MatchID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO match_journal (
			match_id, session_id, token_address, pool_address, name, symbol, twitter,
			created_timestamp, market_cap, price_usd, pooled_liquidity, volume,
			top_holders_percent, buys, sells, buy_sell_ratio, volume_mcap_ratio, age_hours,
			risk_level, concentration, liquidity_safe, matched_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9::numeric, $10::numeric, $11::numeric, $12::numeric,
			$13, $14, $15, $16, $17, $18,
			$19, $20, $21, $22
		)
	`

	_, err := s.pool.Exec(ctx, query,
		r.MatchID, r.SessionID, r.TokenAddress, r.PoolAddress, r.Name, r.Symbol, r.Twitter,
		r.CreatedTimestamp, r.MarketCap.String(), r.PriceUSD.String(), r.PooledLiquidity.String(), r.Volume.String(),
		r.TopHoldersPercent, int64(r.Buys), int64(r.Sells), r.BuySellRatio, r.VolumeMcapRatio, r.AgeHours,
		r.RiskLevel, r.Concentration, r.LiquiditySafe, r.MatchedAtMs,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert match record: %w", err)
	}
	return nil
}

// GetByID retrieves a record by match ID. Returns ErrNotFound if not exists.
func (s *MatchJournal) GetByID(ctx context.Context, matchID string) (*domain.MatchRecord, error) {
	query := `SELECT ` + matchJournalColumns + ` FROM match_journal WHERE match_id = $1`

	r, err := scanMatchRecord(s.pool.QueryRow(ctx, query, matchID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get match record by id: %w", err)
	}
	return r, nil
}

// GetByToken retrieves all records for a token address, ordered by matched_at ASC.
func (s *MatchJournal) GetByToken(ctx context.Context, tokenAddress string) ([]*domain.MatchRecord, error) {
	query := `SELECT ` + matchJournalColumns + `
		FROM match_journal
		WHERE token_address = $1
		ORDER BY matched_at ASC, match_id ASC
	`

	rows, err := s.pool.Query(ctx, query, tokenAddress)
	if err != nil {
		return nil, fmt.Errorf("query match records by token: %w", err)
	}
	defer rows.Close()

	return scanMatchRecords(rows)
}

// GetByTimeRange retrieves records matched within [start, end] ms (inclusive).
func (s *MatchJournal) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.MatchRecord, error) {
	query := `SELECT ` + matchJournalColumns + `
		FROM match_journal
		WHERE matched_at >= $1 AND matched_at <= $2
		ORDER BY matched_at ASC, match_id ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("query match records by time range: %w", err)
	}
	defer rows.Close()

	return scanMatchRecords(rows)
}

// scanMatchRecord scans a single row into MatchRecord.
func scanMatchRecord(row pgx.Row) (*domain.MatchRecord, error) {
	var (
		r                                domain.MatchRecord
		marketCap, price, pooled, volume string
		buys, sells                      int64
	)

	err := row.Scan(
		&r.MatchID, &r.SessionID, &r.TokenAddress, &r.PoolAddress, &r.Name, &r.Symbol, &r.Twitter,
		&r.CreatedTimestamp, &marketCap, &price, &pooled, &volume,
		&r.TopHoldersPercent, &buys, &sells, &r.BuySellRatio, &r.VolumeMcapRatio, &r.AgeHours,
		&r.RiskLevel, &r.Concentration, &r.LiquiditySafe, &r.MatchedAtMs,
	)
	if err != nil {
		return nil, err
	}

	r.Buys = uint64(buys)
	r.Sells = uint64(sells)

	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&r.MarketCap, marketCap},
		{&r.PriceUSD, price},
		{&r.PooledLiquidity, pooled},
		{&r.Volume, volume},
	} {
		d, err := decimal.NewFromString(f.src)
		if err != nil {
			return nil, fmt.Errorf("parse numeric %q: %w", f.src, err)
		}
		*f.dst = d
	}

	return &r, nil
}

// scanMatchRecords scans multiple rows into a slice.
func scanMatchRecords(rows pgx.Rows) ([]*domain.MatchRecord, error) {
	var records []*domain.MatchRecord
	for rows.Next() {
		r, err := scanMatchRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan match record row: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate match record rows: %w", err)
	}
	return records, nil
}
