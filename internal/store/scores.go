package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openquant/screener/internal/contracts"
)

// ScoreRepository holds the combined ranking. The ranking is replaced
// wholesale inside one transaction so readers never see a half-built
// list.
type ScoreRepository struct {
	pool *pgxpool.Pool
}

func NewScoreRepository(pool *pgxpool.Pool) *ScoreRepository {
	return &ScoreRepository{pool: pool}
}

func (r *ScoreRepository) ReplaceAll(ctx context.Context, scores []contracts.CombinedScore) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM combined_scores`); err != nil {
		return err
	}

	query := `
		INSERT INTO combined_scores (
			symbol, entity_name, rank, technical, fundamental, combined,
			quality_score, close_price, williams_r_21, rsi_14, bb_position,
			pct_from_52w_low, relative_volume, scored_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	for _, s := range scores {
		_, err := tx.Exec(ctx, query,
			s.Symbol, s.EntityName, s.Rank, s.Technical, s.Fundamental, s.Combined,
			s.QualityScore, s.ClosePrice, s.WilliamsR21, s.RSI14, s.BBPosition,
			s.PctFrom52WLow, s.RelVolume, s.ScoredAt,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *ScoreRepository) GetRanking(ctx context.Context) ([]contracts.CombinedScore, error) {
	query := `
		SELECT symbol, entity_name, rank, technical, fundamental, combined,
			quality_score, close_price, williams_r_21, rsi_14, bb_position,
			pct_from_52w_low, relative_volume, scored_at
		FROM combined_scores
		ORDER BY rank ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []contracts.CombinedScore
	for rows.Next() {
		var s contracts.CombinedScore
		if err := rows.Scan(
			&s.Symbol, &s.EntityName, &s.Rank, &s.Technical, &s.Fundamental, &s.Combined,
			&s.QualityScore, &s.ClosePrice, &s.WilliamsR21, &s.RSI14, &s.BBPosition,
			&s.PctFrom52WLow, &s.RelVolume, &s.ScoredAt,
		); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
