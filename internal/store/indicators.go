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

// IndicatorRepository stores the latest computed indicator row and the
// quality evaluation per symbol. Both are derived artifacts, rebuilt
// on every refresh; values live in JSONB so the indicator set can grow
// without migrations.
type IndicatorRepository struct {
	pool *pgxpool.Pool
}

func NewIndicatorRepository(pool *pgxpool.Pool) *IndicatorRepository {
	return &IndicatorRepository{pool: pool}
}

func (r *IndicatorRepository) SaveRow(ctx context.Context, row *contracts.IndicatorRow) error {
	values, err := json.Marshal(row.Values)
	if err != nil {
		return fmt.Errorf("marshal indicator values: %w", err)
	}

	query := `
		INSERT INTO indicator_rows (symbol, trade_date, indicator_values)
		VALUES ($1, $2, $3)
		ON CONFLICT (symbol) DO UPDATE SET
			trade_date = EXCLUDED.trade_date,
			indicator_values = EXCLUDED.indicator_values
	`
	_, err = r.pool.Exec(ctx, query, row.Symbol, row.Date, values)
	return err
}

func (r *IndicatorRepository) GetRow(ctx context.Context, symbol string) (*contracts.IndicatorRow, error) {
	query := `SELECT symbol, trade_date, indicator_values FROM indicator_rows WHERE symbol = $1`

	row, err := scanIndicatorRow(r.pool.QueryRow(ctx, query, symbol))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return row, err
}

func (r *IndicatorRepository) GetAllRows(ctx context.Context) ([]*contracts.IndicatorRow, error) {
	query := `SELECT symbol, trade_date, indicator_values FROM indicator_rows ORDER BY symbol ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*contracts.IndicatorRow
	for rows.Next() {
		ir, err := scanIndicatorRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ir)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIndicatorRow(s rowScanner) (*contracts.IndicatorRow, error) {
	var ir contracts.IndicatorRow
	var values []byte
	if err := s.Scan(&ir.Symbol, &ir.Date, &values); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(values, &ir.Values); err != nil {
		return nil, fmt.Errorf("unmarshal indicator values for %s: %w", ir.Symbol, err)
	}
	return &ir, nil
}

// SaveQuality writes the score and its formula breakdown atomically.
func (r *IndicatorRepository) SaveQuality(ctx context.Context, score *contracts.QualityScore, results []contracts.FormulaResult) error {
	breakdown, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("marshal formula results: %w", err)
	}

	query := `
		INSERT INTO quality_scores (symbol, passed, total, breakdown, evaluated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (symbol) DO UPDATE SET
			passed = EXCLUDED.passed,
			total = EXCLUDED.total,
			breakdown = EXCLUDED.breakdown,
			evaluated_at = EXCLUDED.evaluated_at
	`
	_, err = r.pool.Exec(ctx, query, score.Symbol, score.Passed, score.Total, breakdown, score.EvaluatedAt)
	return err
}

func (r *IndicatorRepository) GetQuality(ctx context.Context, symbol string) (*contracts.QualityScore, []contracts.FormulaResult, error) {
	query := `SELECT symbol, passed, total, breakdown, evaluated_at FROM quality_scores WHERE symbol = $1`

	var score contracts.QualityScore
	var breakdown []byte
	err := r.pool.QueryRow(ctx, query, symbol).Scan(
		&score.Symbol, &score.Passed, &score.Total, &breakdown, &score.EvaluatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	var results []contracts.FormulaResult
	if err := json.Unmarshal(breakdown, &results); err != nil {
		return nil, nil, fmt.Errorf("unmarshal formula results for %s: %w", symbol, err)
	}
	return &score, results, nil
}

func (r *IndicatorRepository) GetAllQuality(ctx context.Context) (map[string]*contracts.QualityScore, error) {
	query := `SELECT symbol, passed, total, evaluated_at FROM quality_scores`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]*contracts.QualityScore)
	for rows.Next() {
		var s contracts.QualityScore
		if err := rows.Scan(&s.Symbol, &s.Passed, &s.Total, &s.EvaluatedAt); err != nil {
			return nil, err
		}
		out[s.Symbol] = &s
	}
	return out, rows.Err()
}
