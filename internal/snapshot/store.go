package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/ArtieFishal/lastwish/internal/config"
	"github.com/ArtieFishal/lastwish/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS wallet_snapshots (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	address     TEXT NOT NULL,
	chain       TEXT NOT NULL,
	currency    TEXT NOT NULL,
	total_value TEXT NOT NULL,
	assets      TEXT NOT NULL,
	fetched_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_wallet
	ON wallet_snapshots (address, chain, fetched_at DESC);
`

// Store persists wallet aggregation snapshots to SQLite so an estate view
// survives provider outages and restarts. Monetary values are stored as
// decimal strings, never floats.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the snapshot database at path.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open snapshot db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create snapshot schema: %w", err)
	}

	slog.Info("snapshot store opened", "path", path)
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save records one aggregation result.
func (s *Store) Save(ctx context.Context, result models.AggregationResult) error {
	assets, err := json.Marshal(result.Assets)
	if err != nil {
		return fmt.Errorf("marshal snapshot assets: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO wallet_snapshots (address, chain, currency, total_value, assets, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		result.Address,
		string(result.Chain),
		result.Currency,
		result.TotalValueFiat.String(),
		string(assets),
		result.FetchedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	slog.Debug("snapshot saved",
		"address", result.Address,
		"chain", result.Chain,
		"totalValue", result.TotalValueFiat,
	)
	return nil
}

// Latest returns the most recent snapshot for the wallet, or
// ErrSnapshotNotFound when none was ever recorded.
func (s *Store) Latest(ctx context.Context, address string, chain models.Chain) (models.AggregationResult, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT address, chain, currency, total_value, assets, fetched_at
		FROM wallet_snapshots
		WHERE address = ? AND chain = ?
		ORDER BY fetched_at DESC, id DESC
		LIMIT 1`,
		address, string(chain),
	)

	result, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.AggregationResult{}, fmt.Errorf("%w: %s on %s", config.ErrSnapshotNotFound, address, chain)
	}
	if err != nil {
		return models.AggregationResult{}, fmt.Errorf("query latest snapshot: %w", err)
	}
	return result, nil
}

// History returns up to limit snapshots for the wallet, newest first.
func (s *Store) History(ctx context.Context, address string, chain models.Chain, limit int) ([]models.AggregationResult, error) {
	if limit < 1 {
		limit = 1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT address, chain, currency, total_value, assets, fetched_at
		FROM wallet_snapshots
		WHERE address = ? AND chain = ?
		ORDER BY fetched_at DESC, id DESC
		LIMIT ?`,
		address, string(chain), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query snapshot history: %w", err)
	}
	defer rows.Close()

	var results []models.AggregationResult
	for rows.Next() {
		r, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}
	return results, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (models.AggregationResult, error) {
	var (
		result    models.AggregationResult
		chainStr  string
		totalStr  string
		assetsStr string
		fetchedAt string
	)

	if err := row.Scan(&result.Address, &chainStr, &result.Currency, &totalStr, &assetsStr, &fetchedAt); err != nil {
		return models.AggregationResult{}, err
	}

	result.Chain = models.Chain(chainStr)

	total, err := decimal.NewFromString(totalStr)
	if err != nil {
		return models.AggregationResult{}, fmt.Errorf("invalid stored total %q: %w", totalStr, err)
	}
	result.TotalValueFiat = total

	if err := json.Unmarshal([]byte(assetsStr), &result.Assets); err != nil {
		return models.AggregationResult{}, fmt.Errorf("decode stored assets: %w", err)
	}

	t, err := time.Parse(time.RFC3339Nano, fetchedAt)
	if err != nil {
		return models.AggregationResult{}, fmt.Errorf("invalid stored timestamp %q: %w", fetchedAt, err)
	}
	result.FetchedAt = t

	return result, nil
}
