package contracts

import (
	"context"
	"time"
)

// PriceSource fetches raw OHLCV history from an external provider.
// Transport and retry only; no business logic.
type PriceSource interface {
	// FetchPrices returns bars for [from, to], oldest first.
	FetchPrices(ctx context.Context, symbol string, from, to time.Time) ([]PriceBar, error)
}

// FundamentalsSource fetches the current fundamentals snapshot for a
// symbol from an external provider.
type FundamentalsSource interface {
	FetchFundamentals(ctx context.Context, symbol string) (*FundamentalsSnapshot, error)
}

// UniverseSource resolves the set of symbols to screen.
type UniverseSource interface {
	Listings(ctx context.Context) ([]Listing, error)
}

// PriceRepository persists and reads price history.
type PriceRepository interface {
	SaveBars(ctx context.Context, bars []PriceBar) (int, error)
	GetSeries(ctx context.Context, symbol string) ([]PriceBar, error)
	// LatestDate returns the newest stored trade date for the symbol,
	// or a zero time when no bars exist.
	LatestDate(ctx context.Context, symbol string) (time.Time, error)
}

// FundamentalsRepository persists the current snapshot per symbol.
type FundamentalsRepository interface {
	SaveSnapshot(ctx context.Context, snap *FundamentalsSnapshot) error
	GetSnapshot(ctx context.Context, symbol string) (*FundamentalsSnapshot, error)
}

// IndicatorRepository persists the latest computed indicator row and
// quality results per symbol.
type IndicatorRepository interface {
	SaveRow(ctx context.Context, row *IndicatorRow) error
	GetRow(ctx context.Context, symbol string) (*IndicatorRow, error)
	GetAllRows(ctx context.Context) ([]*IndicatorRow, error)
	SaveQuality(ctx context.Context, score *QualityScore, results []FormulaResult) error
	GetQuality(ctx context.Context, symbol string) (*QualityScore, []FormulaResult, error)
	GetAllQuality(ctx context.Context) (map[string]*QualityScore, error)
}

// ScoreRepository persists the combined ranking. ReplaceAll swaps the
// previous ranking wholesale.
type ScoreRepository interface {
	ReplaceAll(ctx context.Context, scores []CombinedScore) error
	GetRanking(ctx context.Context) ([]CombinedScore, error)
}

// Freshness tracks per-(symbol, kind) fetch timestamps for TTL-based
// staleness decisions. It never deletes payload data.
type Freshness interface {
	Touch(ctx context.Context, symbol, kind string, fetchedAt time.Time) error
	FetchedAt(ctx context.Context, symbol, kind string) (time.Time, bool, error)
}
