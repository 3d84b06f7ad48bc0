package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openquant/screener/internal/contracts"
)

// FundamentalsRepository holds the single current snapshot per symbol,
// superseded in place. Facts go into a JSONB column so new fact names
// need no migration.
type FundamentalsRepository struct {
	pool *pgxpool.Pool
}

func NewFundamentalsRepository(pool *pgxpool.Pool) *FundamentalsRepository {
	return &FundamentalsRepository{pool: pool}
}

func (r *FundamentalsRepository) SaveSnapshot(ctx context.Context, snap *contracts.FundamentalsSnapshot) error {
	facts, err := json.Marshal(snap.Facts)
	if err != nil {
		return fmt.Errorf("marshal facts: %w", err)
	}
	history, err := json.Marshal(snap.NetIncomeHistory)
	if err != nil {
		return fmt.Errorf("marshal net income history: %w", err)
	}

	query := `
		INSERT INTO fundamentals (symbol, entity_name, fiscal_period, facts, net_income_history, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (symbol) DO UPDATE SET
			entity_name = EXCLUDED.entity_name,
			fiscal_period = EXCLUDED.fiscal_period,
			facts = EXCLUDED.facts,
			net_income_history = EXCLUDED.net_income_history,
			fetched_at = EXCLUDED.fetched_at
	`

	_, err = r.pool.Exec(ctx, query,
		snap.Symbol, snap.EntityName, snap.FiscalPeriod, facts, history, snap.FetchedAt,
	)
	return err
}

func (r *FundamentalsRepository) GetSnapshot(ctx context.Context, symbol string) (*contracts.FundamentalsSnapshot, error) {
	query := `
		SELECT symbol, entity_name, fiscal_period, facts, net_income_history, fetched_at
		FROM fundamentals
		WHERE symbol = $1
	`

	var snap contracts.FundamentalsSnapshot
	var facts, history []byte
	err := r.pool.QueryRow(ctx, query, symbol).Scan(
		&snap.Symbol, &snap.EntityName, &snap.FiscalPeriod, &facts, &history, &snap.FetchedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(facts, &snap.Facts); err != nil {
		return nil, fmt.Errorf("unmarshal facts for %s: %w", symbol, err)
	}
	if err := json.Unmarshal(history, &snap.NetIncomeHistory); err != nil {
		return nil, fmt.Errorf("unmarshal net income history for %s: %w", symbol, err)
	}
	return &snap, nil
}
