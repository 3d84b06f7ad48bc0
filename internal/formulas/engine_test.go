package formulas

import (
	"testing"
	"time"

	"github.com/openquant/screener/internal/contracts"
)

func strongSnapshot() *contracts.FundamentalsSnapshot {
	return &contracts.FundamentalsSnapshot{
		Symbol:       "MSFT",
		EntityName:   "Microsoft Corp",
		FiscalPeriod: "FY2025",
		Facts: map[string]float64{
			contracts.FactCash:                 80_000e6,
			contracts.FactShortTermInvestments: 50_000e6,
			contracts.FactTotalDebt:            60_000e6,
			contracts.FactEquity:               250_000e6,
			contracts.FactFreeCashFlow:         70_000e6,
			contracts.FactNetIncome:            90_000e6,
			contracts.FactCurrentAssets:        180_000e6,
			contracts.FactCurrentLiabilities:   100_000e6,
			contracts.FactOperatingIncome:      110_000e6,
			contracts.FactRevenue:              240_000e6,
			contracts.FactAssets:               450_000e6,
			contracts.FactInterestExpense:      2_000e6,
		},
		NetIncomeHistory: []float64{90_000e6, 82_000e6, 72_000e6, 69_000e6},
		FetchedAt:        time.Now(),
	}
}

func TestEvaluateStrongCompany(t *testing.T) {
	eng := NewEngine()
	results, score := eng.Evaluate(strongSnapshot(), time.Now())

	if len(results) != FormulaCount {
		t.Fatalf("got %d results, want %d", len(results), FormulaCount)
	}
	if score.Passed != 10 {
		for _, r := range results {
			if !r.Passed() {
				t.Logf("formula %d %s: %s (%s)", r.FormulaID, r.Name, r.Status, r.Details)
			}
		}
		t.Fatalf("strong company scored %d/10, want 10", score.Passed)
	}
	if score.Total != FormulaCount {
		t.Errorf("Total = %d, want %d", score.Total, FormulaCount)
	}
}

func TestScoreEqualsPassCount(t *testing.T) {
	snap := strongSnapshot()
	// Sink a few formulas.
	snap.Facts[contracts.FactTotalDebt] = 400_000e6   // cash test, D/E, FCF/debt
	snap.Facts[contracts.FactInterestExpense] = 60_000e6 // coverage

	eng := NewEngine()
	results, score := eng.Evaluate(snap, time.Now())

	passes := 0
	for _, r := range results {
		if r.Passed() {
			passes++
		}
	}
	if score.Passed != passes {
		t.Errorf("score %d != counted passes %d", score.Passed, passes)
	}
	if score.Passed < 0 || score.Passed > 10 {
		t.Errorf("score %d out of [0,10]", score.Passed)
	}
}

func TestMissingFactFailsOnlyThatFormula(t *testing.T) {
	snap := strongSnapshot()
	delete(snap.Facts, contracts.FactInterestExpense)

	eng := NewEngine()
	results, score := eng.Evaluate(snap, time.Now())

	var coverage contracts.FormulaResult
	for _, r := range results {
		if r.Name == "Interest Coverage" {
			coverage = r
		}
	}
	if coverage.Status != contracts.StatusInsufficientData {
		t.Errorf("coverage status = %s, want INSUFFICIENT_DATA", coverage.Status)
	}
	if score.Passed != 9 {
		t.Errorf("score = %d, want 9 (only coverage lost)", score.Passed)
	}
}

func TestZeroDenominatorFails(t *testing.T) {
	snap := strongSnapshot()
	snap.Facts[contracts.FactEquity] = 0

	eng := NewEngine()
	results, _ := eng.Evaluate(snap, time.Now())

	for _, r := range results {
		if r.Name == "Debt/Equity" || r.Name == "Return on Equity" || r.Name == "Capital Allocation" {
			if r.Status != contracts.StatusFail {
				t.Errorf("%s with zero equity = %s, want FAIL", r.Name, r.Status)
			}
		}
	}
}

func TestCashTestIncludesShortTermInvestments(t *testing.T) {
	snap := strongSnapshot()
	snap.Facts[contracts.FactCash] = 40_000e6
	snap.Facts[contracts.FactShortTermInvestments] = 30_000e6
	snap.Facts[contracts.FactTotalDebt] = 60_000e6

	eng := NewEngine()
	results, _ := eng.Evaluate(snap, time.Now())

	if !results[0].Passed() {
		t.Errorf("cash 40B + STI 30B vs debt 60B should pass, got %s", results[0].Status)
	}

	delete(snap.Facts, contracts.FactShortTermInvestments)
	results, _ = eng.Evaluate(snap, time.Now())
	if results[0].Passed() {
		t.Errorf("cash 40B alone vs debt 60B should fail")
	}
}

func TestEarningsStabilityNegativePeriod(t *testing.T) {
	snap := strongSnapshot()
	snap.NetIncomeHistory = []float64{90_000e6, -5_000e6, 72_000e6}

	eng := NewEngine()
	results, _ := eng.Evaluate(snap, time.Now())

	for _, r := range results {
		if r.Name == "Earnings Stability" && r.Passed() {
			t.Error("one negative period should fail earnings stability")
		}
	}
}

func TestFormulaIDsAreStable(t *testing.T) {
	eng := NewEngine()
	results, _ := eng.Evaluate(strongSnapshot(), time.Now())

	for i, r := range results {
		if r.FormulaID != i+1 {
			t.Errorf("result %d has FormulaID %d", i, r.FormulaID)
		}
		if r.Symbol != "MSFT" {
			t.Errorf("result %d missing symbol", i)
		}
	}
}
