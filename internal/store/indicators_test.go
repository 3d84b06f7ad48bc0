package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openquant/screener/internal/contracts"
)

// Round-trips an indicator row through a real database, applying the
// schema first so the DDL itself is exercised.
func TestIndicatorRepositoryRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	connString := os.Getenv("DATABASE_URL")
	if connString == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, connString)
	require.NoError(t, err, "database connection failed")
	defer pool.Close()

	schema, err := os.ReadFile(filepath.Join("..", "..", "migrations", "0001_init.sql"))
	require.NoError(t, err)
	_, err = pool.Exec(ctx, string(schema))
	require.NoError(t, err, "schema apply failed")

	repo := NewIndicatorRepository(pool)
	row := &contracts.IndicatorRow{
		Symbol: "ZZTEST",
		Date:   time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC),
		Values: map[string]float64{
			contracts.IndWilliamsR21: -91.5,
			contracts.IndRSI14:       28.2,
			contracts.IndDataAgeDays: 1,
		},
	}
	require.NoError(t, repo.SaveRow(ctx, row))

	// Upsert replaces in place.
	row.Values[contracts.IndRSI14] = 31.0
	require.NoError(t, repo.SaveRow(ctx, row))

	got, err := repo.GetRow(ctx, "ZZTEST")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "ZZTEST", got.Symbol)
	assert.Equal(t, 31.0, got.Values[contracts.IndRSI14])
	assert.Equal(t, -91.5, got.Values[contracts.IndWilliamsR21])

	all, err := repo.GetAllRows(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, all)

	_, err = pool.Exec(ctx, `DELETE FROM indicator_rows WHERE symbol = 'ZZTEST'`)
	require.NoError(t, err)
}
