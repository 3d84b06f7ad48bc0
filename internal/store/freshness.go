package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openquant/screener/internal/contracts"
)

// Artifact kinds tracked for freshness. TTL belongs to the kind, not
// the entry.
const (
	KindPrices       = "prices"
	KindFundamentals = "fundamentals"
)

// TTLPolicy maps artifact kinds to their freshness windows. Staleness
// only marks an entry as a refetch candidate; payload data is never
// deleted.
type TTLPolicy struct {
	Prices       time.Duration
	Fundamentals time.Duration
}

// DefaultTTLPolicy: prices go stale daily, fundamentals weekly.
func DefaultTTLPolicy() TTLPolicy {
	return TTLPolicy{
		Prices:       24 * time.Hour,
		Fundamentals: 7 * 24 * time.Hour,
	}
}

// TTL returns the window for a kind; unknown kinds are always stale.
func (p TTLPolicy) TTL(kind string) time.Duration {
	switch kind {
	case KindPrices:
		return p.Prices
	case KindFundamentals:
		return p.Fundamentals
	default:
		return 0
	}
}

// IsFresh reports whether an artifact fetched at fetchedAt is still
// inside its kind's window at the given instant.
func (p TTLPolicy) IsFresh(kind string, fetchedAt, now time.Time) bool {
	if fetchedAt.IsZero() {
		return false
	}
	return now.Sub(fetchedAt) < p.TTL(kind)
}

// FreshnessRepository implements contracts.Freshness over a small
// (symbol, kind) timestamp table.
type FreshnessRepository struct {
	pool *pgxpool.Pool
}

func NewFreshnessRepository(pool *pgxpool.Pool) *FreshnessRepository {
	return &FreshnessRepository{pool: pool}
}

func (r *FreshnessRepository) Touch(ctx context.Context, symbol, kind string, fetchedAt time.Time) error {
	query := `
		INSERT INTO artifact_meta (symbol, kind, fetched_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (symbol, kind) DO UPDATE SET
			fetched_at = EXCLUDED.fetched_at
	`
	_, err := r.pool.Exec(ctx, query, symbol, kind, fetchedAt)
	return err
}

func (r *FreshnessRepository) FetchedAt(ctx context.Context, symbol, kind string) (time.Time, bool, error) {
	query := `SELECT fetched_at FROM artifact_meta WHERE symbol = $1 AND kind = $2`

	var t time.Time
	err := r.pool.QueryRow(ctx, query, symbol, kind).Scan(&t)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

var _ contracts.Freshness = (*FreshnessRepository)(nil)
