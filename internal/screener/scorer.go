package screener

import (
	"sort"
	"time"

	"github.com/openquant/screener/internal/contracts"
	"github.com/openquant/screener/pkg/logger"
)

// Params controls the combined screen. Zero values are replaced by
// the defaults below.
type Params struct {
	OversoldThreshold float64 // Williams %R 21 entry gate
	MinQualityScore   int
	TechnicalWeight   float64
	FundamentalWeight float64
	TopN              int
}

// Default screen parameters.
const (
	DefaultOversoldThreshold = -80.0
	DefaultMinQualityScore   = 5
	DefaultTechnicalWeight   = 0.3
	DefaultFundamentalWeight = 0.7
	DefaultTopN              = 10
)

func (p Params) withDefaults() Params {
	if p.OversoldThreshold == 0 {
		p.OversoldThreshold = DefaultOversoldThreshold
	}
	if p.MinQualityScore == 0 {
		p.MinQualityScore = DefaultMinQualityScore
	}
	if p.TechnicalWeight == 0 && p.FundamentalWeight == 0 {
		p.TechnicalWeight = DefaultTechnicalWeight
		p.FundamentalWeight = DefaultFundamentalWeight
	}
	if p.TopN == 0 {
		p.TopN = DefaultTopN
	}
	return p
}

// Candidate pairs a symbol's latest indicator row with its quality
// score for ranking.
type Candidate struct {
	Row        *contracts.IndicatorRow
	Quality    *contracts.QualityScore
	EntityName string
}

// Scorer merges the technical oversold screen with the fundamental
// quality score into one ranked list.
type Scorer struct {
	log *logger.Logger
}

func NewScorer(log *logger.Logger) *Scorer {
	return &Scorer{log: log}
}

// Rank filters, scores and orders candidates. The output fully
// replaces any previous ranking. Ordering is a total order: combined
// descending, quality descending, then symbol ascending.
func (s *Scorer) Rank(candidates []Candidate, p Params, now time.Time) []contracts.CombinedScore {
	p = p.withDefaults()

	scored := make([]contracts.CombinedScore, 0, len(candidates))
	for _, c := range candidates {
		if c.Row == nil || c.Quality == nil {
			continue
		}

		wr, ok := c.Row.Value(contracts.IndWilliamsR21)
		if !ok || wr >= p.OversoldThreshold {
			continue
		}
		if c.Quality.Passed < p.MinQualityScore {
			continue
		}

		tech := s.technicalScore(c.Row, wr, p.OversoldThreshold)
		fund := float64(c.Quality.Passed) / float64(contractsTotal(c.Quality)) * 100
		combined := p.TechnicalWeight*tech + p.FundamentalWeight*fund

		cs := contracts.CombinedScore{
			Symbol:       c.Row.Symbol,
			EntityName:   c.EntityName,
			Technical:    tech,
			Fundamental:  fund,
			Combined:     combined,
			QualityScore: c.Quality.Passed,
			WilliamsR21:  wr,
			ScoredAt:     now,
		}
		cs.ClosePrice, _ = c.Row.Value(contracts.IndClose)
		cs.RSI14, _ = c.Row.Value(contracts.IndRSI14)
		cs.BBPosition, _ = c.Row.Value(contracts.IndBBPosition)
		cs.PctFrom52WLow, _ = c.Row.Value(contracts.IndPctFrom52WLow)
		cs.RelVolume, _ = c.Row.Value(contracts.IndRelVolume)
		scored = append(scored, cs)
	}

	sort.Slice(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.Combined != b.Combined {
			return a.Combined > b.Combined
		}
		if a.QualityScore != b.QualityScore {
			return a.QualityScore > b.QualityScore
		}
		return a.Symbol < b.Symbol
	})

	if len(scored) > p.TopN {
		scored = scored[:p.TopN]
	}
	for i := range scored {
		scored[i].Rank = i + 1
	}

	s.log.WithFields(map[string]interface{}{
		"candidates": len(candidates),
		"ranked":     len(scored),
	}).Info("combined screen ranked")
	return scored
}

// technicalScore maps the oversold depth to 0..100 and layers bonus
// points for confirming signals, capped at 100.
func (s *Scorer) technicalScore(row *contracts.IndicatorRow, wr, threshold float64) float64 {
	// wr in [-100, threshold) maps linearly to (0, 100].
	span := threshold - (-100)
	base := (threshold - wr) / span * 100
	if base > 100 {
		base = 100
	}
	score := base

	if rsi, ok := row.Value(contracts.IndRSI14); ok {
		switch {
		case rsi < 30:
			score += 10
		case rsi < 40:
			score += 5
		}
	}
	if pct, ok := row.Value(contracts.IndPctFrom52WLow); ok {
		switch {
		case pct < 10:
			score += 10
		case pct < 20:
			score += 5
		}
	}
	if pos, ok := row.Value(contracts.IndBBPosition); ok {
		switch {
		case pos < 10:
			score += 10
		case pos < 20:
			score += 5
		}
	}
	if rv, ok := row.Value(contracts.IndRelVolume); ok && rv > 1.5 {
		score += 5
	}

	if score > 100 {
		score = 100
	}
	return score
}

func contractsTotal(q *contracts.QualityScore) int {
	if q.Total > 0 {
		return q.Total
	}
	return 10
}
