package formulas

import (
	"fmt"
	"time"

	"github.com/openquant/screener/internal/contracts"
)

// Engine evaluates the fixed set of ten quality formulas against a
// fundamentals snapshot. Each formula is an independent predicate:
// missing facts or zero denominators fail that formula alone and the
// rest keep scoring.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// FormulaCount is the size of the fixed formula set.
const FormulaCount = 10

// Evaluate returns one result per formula plus the aggregate quality
// score (count of passes).
func (e *Engine) Evaluate(snap *contracts.FundamentalsSnapshot, now time.Time) ([]contracts.FormulaResult, contracts.QualityScore) {
	results := []contracts.FormulaResult{
		e.cashTest(snap),
		e.debtEquity(snap),
		e.fcfDebt(snap),
		e.returnOnEquity(snap),
		e.currentRatio(snap),
		e.operatingMargin(snap),
		e.assetTurnover(snap),
		e.interestCoverage(snap),
		e.earningsStability(snap),
		e.capitalAllocation(snap),
	}

	score := contracts.QualityScore{
		Symbol:      snap.Symbol,
		Total:       len(results),
		EvaluatedAt: now,
	}
	for i := range results {
		results[i].Symbol = snap.Symbol
		results[i].FormulaID = i + 1
		if results[i].Passed() {
			score.Passed++
		}
	}
	return results, score
}

// ratio evaluates num/den > target, handling missing facts and zero
// denominators as non-passes.
func ratio(snap *contracts.FundamentalsSnapshot, name, desc, numFact, denFact string, target float64, greater bool) contracts.FormulaResult {
	r := contracts.FormulaResult{Name: name, Description: desc, Target: target}

	num, okN := snap.Fact(numFact)
	den, okD := snap.Fact(denFact)
	if !okN || !okD {
		r.Status = contracts.StatusInsufficientData
		r.Details = fmt.Sprintf("missing %s or %s", numFact, denFact)
		return r
	}
	if den == 0 {
		r.Status = contracts.StatusFail
		r.Details = fmt.Sprintf("%s is zero", denFact)
		return r
	}

	r.Value = num / den
	pass := r.Value > target
	if !greater {
		pass = r.Value < target
	}
	if pass {
		r.Status = contracts.StatusPass
	} else {
		r.Status = contracts.StatusFail
	}
	return r
}

// #1: liquid assets cover total debt outright.
func (e *Engine) cashTest(snap *contracts.FundamentalsSnapshot) contracts.FormulaResult {
	r := contracts.FormulaResult{
		Name:        "Cash Test",
		Description: "cash and short-term investments exceed total debt",
	}

	cash, okC := snap.Fact(contracts.FactCash)
	debt, okD := snap.Fact(contracts.FactTotalDebt)
	if !okC || !okD {
		r.Status = contracts.StatusInsufficientData
		r.Details = "missing cash or total debt"
		return r
	}
	if sti, ok := snap.Fact(contracts.FactShortTermInvestments); ok {
		cash += sti
	}

	r.Value = cash
	r.Target = debt
	if cash > debt {
		r.Status = contracts.StatusPass
	} else {
		r.Status = contracts.StatusFail
	}
	return r
}

// #2: total debt under half of equity.
func (e *Engine) debtEquity(snap *contracts.FundamentalsSnapshot) contracts.FormulaResult {
	return ratio(snap, "Debt/Equity", "total debt below 50% of equity",
		contracts.FactTotalDebt, contracts.FactEquity, 0.5, false)
}

// #3: free cash flow could retire debt within four years.
func (e *Engine) fcfDebt(snap *contracts.FundamentalsSnapshot) contracts.FormulaResult {
	return ratio(snap, "FCF/Debt", "free cash flow above 25% of total debt",
		contracts.FactFreeCashFlow, contracts.FactTotalDebt, 0.25, true)
}

// #4: return on equity above 15%.
func (e *Engine) returnOnEquity(snap *contracts.FundamentalsSnapshot) contracts.FormulaResult {
	return ratio(snap, "Return on Equity", "net income above 15% of equity",
		contracts.FactNetIncome, contracts.FactEquity, 0.15, true)
}

// #5: current ratio above 1.5.
func (e *Engine) currentRatio(snap *contracts.FundamentalsSnapshot) contracts.FormulaResult {
	return ratio(snap, "Current Ratio", "current assets above 1.5x current liabilities",
		contracts.FactCurrentAssets, contracts.FactCurrentLiabilities, 1.5, true)
}

// #6: operating margin above 12%.
func (e *Engine) operatingMargin(snap *contracts.FundamentalsSnapshot) contracts.FormulaResult {
	return ratio(snap, "Operating Margin", "operating income above 12% of revenue",
		contracts.FactOperatingIncome, contracts.FactRevenue, 0.12, true)
}

// #7: asset turnover above 0.5.
func (e *Engine) assetTurnover(snap *contracts.FundamentalsSnapshot) contracts.FormulaResult {
	return ratio(snap, "Asset Turnover", "revenue above 50% of total assets",
		contracts.FactRevenue, contracts.FactAssets, 0.5, true)
}

// #8: operating income covers interest expense 3x over.
func (e *Engine) interestCoverage(snap *contracts.FundamentalsSnapshot) contracts.FormulaResult {
	return ratio(snap, "Interest Coverage", "operating income above 3x interest expense",
		contracts.FactOperatingIncome, contracts.FactInterestExpense, 3, true)
}

// #9: net income positive in every trailing period on record. Falls
// back to the current net income when no history was captured.
func (e *Engine) earningsStability(snap *contracts.FundamentalsSnapshot) contracts.FormulaResult {
	r := contracts.FormulaResult{
		Name:        "Earnings Stability",
		Description: "net income positive in every trailing period",
		Target:      0,
	}

	history := snap.NetIncomeHistory
	if len(history) == 0 {
		ni, ok := snap.Fact(contracts.FactNetIncome)
		if !ok {
			r.Status = contracts.StatusInsufficientData
			r.Details = "no net income history"
			return r
		}
		history = []float64{ni}
	}

	min := history[0]
	for _, ni := range history[1:] {
		if ni < min {
			min = ni
		}
	}
	r.Value = min
	r.Details = fmt.Sprintf("%d periods examined", len(history))
	if min > 0 {
		r.Status = contracts.StatusPass
	} else {
		r.Status = contracts.StatusFail
	}
	return r
}

// #10: same ROE threshold as #4, read as an allocation-quality signal.
// Kept as a distinct formula so the score stays on a 0..10 scale.
func (e *Engine) capitalAllocation(snap *contracts.FundamentalsSnapshot) contracts.FormulaResult {
	r := ratio(snap, "Capital Allocation", "sustained ROE above 15% without leverage inflation",
		contracts.FactNetIncome, contracts.FactEquity, 0.15, true)
	return r
}
