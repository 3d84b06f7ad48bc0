package contracts

import "time"

// FormulaStatus is the outcome of evaluating one quality formula.
type FormulaStatus string

const (
	StatusPass FormulaStatus = "PASS"
	StatusFail FormulaStatus = "FAIL"
	// StatusInsufficientData marks a formula whose required facts were
	// missing. It counts as not-passed for scoring.
	StatusInsufficientData FormulaStatus = "INSUFFICIENT_DATA"
)

// FormulaResult is the evaluation of a single quality formula against
// a fundamentals snapshot.
type FormulaResult struct {
	Symbol      string        `json:"symbol"`
	FormulaID   int           `json:"formula_id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Status      FormulaStatus `json:"status"`
	Value       float64       `json:"value"`
	Target      float64       `json:"target"`
	Details     string        `json:"details,omitempty"`
}

// Passed reports whether the formula passed.
func (r FormulaResult) Passed() bool { return r.Status == StatusPass }

// QualityScore is the count of passed quality formulas for a symbol.
type QualityScore struct {
	Symbol      string    `json:"symbol"`
	Passed      int       `json:"passed"` // 0..10
	Total       int       `json:"total"`
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// CombinedScore is one entry of the ranked screen output. The whole
// set is rebuilt on every refresh, never patched incrementally.
type CombinedScore struct {
	Symbol       string  `json:"symbol"`
	EntityName   string  `json:"entity_name"`
	Rank         int     `json:"rank"`
	Technical    float64 `json:"technical"`    // 0..100
	Fundamental  float64 `json:"fundamental"`  // 0..100
	Combined     float64 `json:"combined"`     // weighted total
	QualityScore int     `json:"quality_score"` // 0..10
	ClosePrice   float64 `json:"close_price"`

	// Key technical readings carried along for display.
	WilliamsR21   float64   `json:"williams_r_21"`
	RSI14         float64   `json:"rsi_14"`
	BBPosition    float64   `json:"bb_position"`
	PctFrom52WLow float64   `json:"pct_from_52w_low"`
	RelVolume     float64   `json:"relative_volume"`
	ScoredAt      time.Time `json:"scored_at"`
}
