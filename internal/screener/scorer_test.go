package screener

import (
	"reflect"
	"testing"
	"time"

	"github.com/openquant/screener/internal/contracts"
	"github.com/openquant/screener/pkg/logger"
)

func candidate(symbol string, wr float64, quality int, extra map[string]float64) Candidate {
	values := map[string]float64{
		contracts.IndWilliamsR21: wr,
		contracts.IndClose:       100,
		contracts.IndRSI14:       50,
		contracts.IndBBPosition:  50,
		contracts.IndPctFrom52WLow: 40,
		contracts.IndRelVolume:   1.0,
	}
	for k, v := range extra {
		values[k] = v
	}
	return Candidate{
		Row: &contracts.IndicatorRow{
			Symbol: symbol,
			Date:   time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC),
			Values: values,
		},
		Quality: &contracts.QualityScore{Symbol: symbol, Passed: quality, Total: 10},
	}
}

func TestRankOversoldQualitySymbol(t *testing.T) {
	s := NewScorer(logger.NewNop())
	now := time.Now()

	out := s.Rank([]Candidate{
		candidate("X", -92, 7, nil),
		candidate("Y", -95, 3, nil), // quality below minimum
		candidate("Z", -60, 9, nil), // not oversold
	}, Params{}, now)

	if len(out) != 1 {
		t.Fatalf("got %d ranked, want 1", len(out))
	}
	if out[0].Symbol != "X" {
		t.Fatalf("ranked %s, want X", out[0].Symbol)
	}
	if out[0].Fundamental != 70 {
		t.Errorf("fundamental = %v, want 70", out[0].Fundamental)
	}
	if out[0].Rank != 1 {
		t.Errorf("rank = %d, want 1", out[0].Rank)
	}

	// W%R -92 with threshold -80 maps to a base of 60.
	if out[0].Technical != 60 {
		t.Errorf("technical = %v, want 60", out[0].Technical)
	}
	want := 0.3*60 + 0.7*70
	if out[0].Combined != want {
		t.Errorf("combined = %v, want %v", out[0].Combined, want)
	}
}

func TestRankBonuses(t *testing.T) {
	s := NewScorer(logger.NewNop())

	out := s.Rank([]Candidate{
		candidate("DEEP", -100, 10, map[string]float64{
			contracts.IndRSI14:         25,  // +10
			contracts.IndPctFrom52WLow: 5,   // +10
			contracts.IndBBPosition:    3,   // +10
			contracts.IndRelVolume:     2.0, // +5
		}),
	}, Params{}, time.Now())

	if len(out) != 1 {
		t.Fatalf("got %d ranked, want 1", len(out))
	}
	// Base 100 plus bonuses still caps at 100.
	if out[0].Technical != 100 {
		t.Errorf("technical = %v, want capped 100", out[0].Technical)
	}
}

func TestRankDeterministicTieBreaks(t *testing.T) {
	s := NewScorer(logger.NewNop())
	now := time.Now()

	input := []Candidate{
		candidate("BBB", -90, 8, nil),
		candidate("AAA", -90, 8, nil), // identical score, symbol breaks tie
		candidate("CCC", -90, 9, nil), // same technical, higher quality
	}

	first := s.Rank(input, Params{}, now)

	// Same inputs, reversed order: output must be identical.
	reversed := []Candidate{input[2], input[1], input[0]}
	second := s.Rank(reversed, Params{}, now)

	if !reflect.DeepEqual(first, second) {
		t.Fatal("ranking not deterministic across input orderings")
	}

	if first[0].Symbol != "CCC" {
		t.Errorf("first = %s, want CCC (higher quality)", first[0].Symbol)
	}
	if first[1].Symbol != "AAA" || first[2].Symbol != "BBB" {
		t.Errorf("tie order = %s, %s; want AAA then BBB", first[1].Symbol, first[2].Symbol)
	}
}

func TestRankTopNTruncation(t *testing.T) {
	s := NewScorer(logger.NewNop())

	var cands []Candidate
	for _, sym := range []string{"A", "B", "C", "D", "E"} {
		cands = append(cands, candidate(sym, -90, 8, nil))
	}

	out := s.Rank(cands, Params{TopN: 3}, time.Now())
	if len(out) != 3 {
		t.Fatalf("got %d, want 3", len(out))
	}
	for i, cs := range out {
		if cs.Rank != i+1 {
			t.Errorf("entry %d has rank %d", i, cs.Rank)
		}
	}
}

func TestRankMissingWilliamsRExcluded(t *testing.T) {
	s := NewScorer(logger.NewNop())

	c := candidate("NOWR", -90, 8, nil)
	delete(c.Row.Values, contracts.IndWilliamsR21)

	out := s.Rank([]Candidate{c}, Params{}, time.Now())
	if len(out) != 0 {
		t.Fatalf("symbol without Williams %%R ranked, want excluded")
	}
}
