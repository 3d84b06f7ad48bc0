package edgar

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/openquant/screener/internal/contracts"
)

// companyFacts mirrors the EDGAR XBRL companyfacts document.
type companyFacts struct {
	CIK        json.Number                       `json:"cik"`
	EntityName string                            `json:"entityName"`
	Facts      map[string]map[string]factConcept `json:"facts"`
}

type factConcept struct {
	Units map[string][]factValue `json:"units"`
}

type factValue struct {
	End   string  `json:"end"`
	Val   float64 `json:"val"`
	FY    int     `json:"fy"`
	FP    string  `json:"fp"`
	Form  string  `json:"form"`
	Filed string  `json:"filed"`
}

// gaapConcepts maps canonical fact names to the us-gaap concepts to
// try, in preference order. Taxonomy usage varies by filer, so most
// facts carry fallbacks.
var gaapConcepts = map[string][]string{
	contracts.FactAssets:               {"Assets"},
	contracts.FactCurrentAssets:        {"AssetsCurrent"},
	contracts.FactLiabilities:          {"Liabilities"},
	contracts.FactCurrentLiabilities:   {"LiabilitiesCurrent"},
	contracts.FactLongTermDebt:         {"LongTermDebt", "LongTermDebtNoncurrent"},
	contracts.FactTotalDebt:            {"Debt", "DebtLongtermAndShorttermCombinedAmount"},
	contracts.FactEquity:               {"StockholdersEquity", "StockholdersEquityIncludingPortionAttributableToNoncontrollingInterest"},
	contracts.FactCash:                 {"CashAndCashEquivalentsAtCarryingValue"},
	contracts.FactShortTermInvestments: {"ShortTermInvestments", "AvailableForSaleSecuritiesCurrent"},
	contracts.FactRevenue:              {"RevenueFromContractWithCustomerExcludingAssessedTax", "Revenues", "SalesRevenueNet"},
	contracts.FactOperatingIncome:      {"OperatingIncomeLoss"},
	contracts.FactNetIncome:            {"NetIncomeLoss"},
	contracts.FactInterestExpense:      {"InterestExpense", "InterestExpenseDebt"},
	contracts.FactOperatingCashFlow:    {"NetCashProvidedByUsedInOperatingActivities"},
	contracts.FactFreeCashFlow:         {"FreeCashFlow"},
	contracts.FactCapitalExpenditures:  {"PaymentsToAcquirePropertyPlantAndEquipment"},
	contracts.FactSharesOutstanding:    {"CommonStockSharesOutstanding"},
}

// netIncomeHistoryLimit caps how many annual periods feed the
// earnings-stability formula.
const netIncomeHistoryLimit = 10

// extractSnapshot reduces a companyfacts document to the canonical
// fact set plus the trailing annual net income series.
func extractSnapshot(symbol string, doc *companyFacts, fetchedAt time.Time) (*contracts.FundamentalsSnapshot, error) {
	gaap, ok := doc.Facts["us-gaap"]
	if !ok {
		return nil, fmt.Errorf("no us-gaap facts for %s", symbol)
	}

	snap := &contracts.FundamentalsSnapshot{
		Symbol:     symbol,
		EntityName: doc.EntityName,
		Facts:      make(map[string]float64),
		FetchedAt:  fetchedAt,
	}

	for name, concepts := range gaapConcepts {
		for _, concept := range concepts {
			fc, ok := gaap[concept]
			if !ok {
				continue
			}
			if v, ok := latestValue(fc); ok {
				snap.Facts[name] = v
				break
			}
		}
	}

	// DEI carries the authoritative share count when present.
	if dei, ok := doc.Facts["dei"]; ok {
		if fc, ok := dei["EntityCommonStockSharesOutstanding"]; ok {
			if v, ok := latestValue(fc); ok {
				snap.Facts[contracts.FactSharesOutstanding] = v
			}
		}
	}

	// Filers rarely tag free cash flow directly; derive it.
	if _, ok := snap.Facts[contracts.FactFreeCashFlow]; !ok {
		ocf, okO := snap.Facts[contracts.FactOperatingCashFlow]
		capex, okC := snap.Facts[contracts.FactCapitalExpenditures]
		if okO && okC {
			snap.Facts[contracts.FactFreeCashFlow] = ocf - capex
		}
	}

	// Without a combined debt concept, long-term debt is the closest
	// conservative stand-in.
	if _, ok := snap.Facts[contracts.FactTotalDebt]; !ok {
		if ltd, ok := snap.Facts[contracts.FactLongTermDebt]; ok {
			snap.Facts[contracts.FactTotalDebt] = ltd
		}
	}

	if ni, ok := gaap["NetIncomeLoss"]; ok {
		snap.NetIncomeHistory = annualSeries(ni, netIncomeHistoryLimit)
		snap.FiscalPeriod = latestFiscalPeriod(ni)
	}

	if len(snap.Facts) == 0 {
		return nil, fmt.Errorf("no usable facts for %s", symbol)
	}
	return snap, nil
}

// latestValue picks the most recently ended (then most recently
// filed) value, preferring USD units.
func latestValue(fc factConcept) (float64, bool) {
	values := unitValues(fc)
	if len(values) == 0 {
		return 0, false
	}

	best := values[0]
	for _, v := range values[1:] {
		if v.End > best.End || (v.End == best.End && v.Filed > best.Filed) {
			best = v
		}
	}
	return best.Val, true
}

func unitValues(fc factConcept) []factValue {
	if usd, ok := fc.Units["USD"]; ok {
		return usd
	}
	if perShare, ok := fc.Units["USD/shares"]; ok {
		return perShare
	}
	for _, vals := range fc.Units {
		return vals
	}
	return nil
}

// annualSeries collects full-year values from annual filings, one per
// fiscal year, most recent first.
func annualSeries(fc factConcept, limit int) []float64 {
	byYear := make(map[int]factValue)
	for _, v := range unitValues(fc) {
		if v.FP != "FY" || v.FY == 0 {
			continue
		}
		cur, seen := byYear[v.FY]
		if !seen || v.Filed > cur.Filed {
			byYear[v.FY] = v
		}
	}

	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))

	out := make([]float64, 0, limit)
	for _, y := range years {
		out = append(out, byYear[y].Val)
		if len(out) == limit {
			break
		}
	}
	return out
}

func latestFiscalPeriod(fc factConcept) string {
	values := unitValues(fc)
	if len(values) == 0 {
		return ""
	}
	best := values[0]
	for _, v := range values[1:] {
		if v.End > best.End {
			best = v
		}
	}
	if best.FY == 0 {
		return ""
	}
	return fmt.Sprintf("%s%d", best.FP, best.FY)
}
