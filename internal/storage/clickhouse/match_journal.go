package clickhouse

import (
	"context"
	"fmt"

	"discover-scanner/internal/domain"
	"discover-scanner/internal/storage"
)

// MatchJournal implements storage.MatchJournal using ClickHouse.
type MatchJournal struct {
	conn *Conn
}

// NewMatchJournal creates a new MatchJournal.
func NewMatchJournal(conn *Conn) *MatchJournal {
	return &MatchJournal{conn: conn}
}

// Compile-time interface check.
var _ storage.MatchJournal = (*MatchJournal)(nil)

const matchJournalColumns = `
	match_id, session_id, token_address, pool_address, name, symbol, twitter,
	created_timestamp, market_cap, price_usd, pooled_liquidity, volume,
	top_holders_percent, buys, sells, buy_sell_ratio, volume_mcap_ratio, age_hours,
	risk_level, concentration, liquidity_safe, matched_at
`

// Insert adds a new record. Returns ErrDuplicateKey if match_id exists.
func (s *MatchJournal) Insert(ctx context.Context, r *domain.MatchRecord) error {
	if r == nil || r.MatchID == "" {
		return storage.ErrInvalidInput
	}

	// MergeTree does not enforce uniqueness; check before insert for append-only semantics.
	exists, err := s.exists(ctx, r.MatchID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	query := `
		INSERT INTO match_journal (` + matchJournalColumns + `) VALUES (
			?, ?, ?, ?, ?, ?, ?,
			?, ?, ?, ?, ?,
			?, ?, ?, ?, ?, ?,
			?, ?, ?, ?
		)
	`

	err = s.conn.Exec(ctx, query,
		r.MatchID, r.SessionID, r.TokenAddress, r.PoolAddress, r.Name, r.Symbol, r.Twitter,
		r.CreatedTimestamp, r.MarketCap, r.PriceUSD, r.PooledLiquidity, r.Volume,
		r.TopHoldersPercent, r.Buys, r.Sells, r.BuySellRatio, r.VolumeMcapRatio, r.AgeHours,
		r.RiskLevel, r.Concentration, r.LiquiditySafe, r.MatchedAtMs,
	)
	if err != nil {
		return fmt.Errorf("insert match record: %w", err)
	}
	return nil
}

// GetByID retrieves a record by match ID. Returns ErrNotFound if not exists.
func (s *MatchJournal) GetByID(ctx context.Context, matchID string) (*domain.MatchRecord, error) {
	query := `SELECT ` + matchJournalColumns + `
		FROM match_journal FINAL
		WHERE match_id = ?
		LIMIT 1
	`

	rows, err := s.conn.Query(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("query match record by id: %w", err)
	}
	defer rows.Close()

	records, err := scanMatchRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, storage.ErrNotFound
	}
	return records[0], nil
}

// GetByToken retrieves all records for a token address, ordered by matched_at ASC.
func (s *MatchJournal) GetByToken(ctx context.Context, tokenAddress string) ([]*domain.MatchRecord, error) {
	query := `SELECT ` + matchJournalColumns + `
		FROM match_journal FINAL
		WHERE token_address = ?
		ORDER BY matched_at ASC, match_id ASC
	`

	rows, err := s.conn.Query(ctx, query, tokenAddress)
	if err != nil {
		return nil, fmt.Errorf("query match records by token: %w", err)
	}
	defer rows.Close()

	return scanMatchRecords(rows)
}

// GetByTimeRange retrieves records matched within [start, end] ms (inclusive).
func (s *MatchJournal) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.MatchRecord, error) {
	query := `SELECT ` + matchJournalColumns + `
		FROM match_journal FINAL
		WHERE matched_at >= ? AND matched_at <= ?
		ORDER BY matched_at ASC, match_id ASC
	`

	rows, err := s.conn.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("query match records by time range: %w", err)
	}
	defer rows.Close()

	return scanMatchRecords(rows)
}

// exists checks if a record with the given match ID exists.
func (s *MatchJournal) exists(ctx context.Context, matchID string) (bool, error) {
	query := `SELECT count(*) FROM match_journal FINAL WHERE match_id = ?`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, matchID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// chRows is the subset of driver.Rows used for scanning.
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanMatchRecords scans multiple rows into a slice.
func scanMatchRecords(rows chRows) ([]*domain.MatchRecord, error) {
	var records []*domain.MatchRecord

	for rows.Next() {
		var r domain.MatchRecord
		err := rows.Scan(
			&r.MatchID, &r.SessionID, &r.TokenAddress, &r.PoolAddress, &r.Name, &r.Symbol, &r.Twitter,
			&r.CreatedTimestamp, &r.MarketCap, &r.PriceUSD, &r.PooledLiquidity, &r.Volume,
			&r.TopHoldersPercent, &r.Buys, &r.Sells, &r.BuySellRatio, &r.VolumeMcapRatio, &r.AgeHours,
			&r.RiskLevel, &r.Concentration, &r.LiquiditySafe, &r.MatchedAtMs,
		)
		if err != nil {
			return nil, fmt.Errorf("scan match record row: %w", err)
		}
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate match record rows: %w", err)
	}

	return records, nil
}
