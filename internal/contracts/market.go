package contracts

import "time"

// Listing is one tradeable symbol in the screening universe.
type Listing struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Sector string `json:"sector,omitempty"`
}

// PriceBar is one day of OHLCV history for a symbol.
// Unique per (symbol, date); rows are append-only upserts.
type PriceBar struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Canonical financial fact names used in FundamentalsSnapshot.Facts.
// These mirror the us-gaap concepts the EDGAR adapter extracts.
const (
	FactAssets               = "Assets"
	FactCurrentAssets        = "CurrentAssets"
	FactLiabilities          = "Liabilities"
	FactCurrentLiabilities   = "CurrentLiabilities"
	FactLongTermDebt         = "LongTermDebt"
	FactTotalDebt            = "TotalDebt"
	FactEquity               = "Equity"
	FactCash                 = "CashAndEquivalents"
	FactShortTermInvestments = "ShortTermInvestments"
	FactRevenue              = "Revenue"
	FactOperatingIncome      = "OperatingIncome"
	FactNetIncome            = "NetIncome"
	FactInterestExpense      = "InterestExpense"
	FactOperatingCashFlow    = "OperatingCashFlow"
	FactFreeCashFlow         = "FreeCashFlow"
	FactCapitalExpenditures  = "CapitalExpenditures"
	FactSharesOutstanding    = "SharesOutstanding"
)

// FundamentalsSnapshot is the latest set of financial facts for a
// symbol. One current snapshot per symbol; superseded snapshots are
// overwritten in place.
type FundamentalsSnapshot struct {
	Symbol       string             `json:"symbol"`
	EntityName   string             `json:"entity_name"`
	FiscalPeriod string             `json:"fiscal_period"`
	Facts        map[string]float64 `json:"facts"`
	// NetIncomeHistory holds trailing annual net income values, most
	// recent first. Feeds the earnings-stability formula.
	NetIncomeHistory []float64 `json:"net_income_history,omitempty"`
	FetchedAt        time.Time `json:"fetched_at"`
}

// Fact returns a named fact and whether it is present.
func (s *FundamentalsSnapshot) Fact(name string) (float64, bool) {
	if s == nil || s.Facts == nil {
		return 0, false
	}
	v, ok := s.Facts[name]
	return v, ok
}
