package refresh

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/openquant/screener/internal/contracts"
	"github.com/openquant/screener/internal/formulas"
	"github.com/openquant/screener/internal/indicators"
	"github.com/openquant/screener/internal/screener"
	"github.com/openquant/screener/pkg/logger"
)

// In-memory fakes for the orchestrator's collaborators.

type fakeUniverse struct {
	listings []contracts.Listing
	err      error
}

func (f *fakeUniverse) Listings(context.Context) ([]contracts.Listing, error) {
	return f.listings, f.err
}

type fakePriceSource struct {
	mu      sync.Mutex
	calls   int
	failFor map[string]bool
	failAll bool
}

func (f *fakePriceSource) FetchPrices(_ context.Context, symbol string, from, to time.Time) ([]contracts.PriceBar, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.failAll || f.failFor[symbol] {
		return nil, fmt.Errorf("connection refused")
	}

	// Oversold shape: long flat stretch, then a sharp drop so the
	// latest Williams %R sits deep below -80.
	var bars []contracts.PriceBar
	date := from
	for i := 0; i < 260; i++ {
		price := 100.0
		if i >= 250 {
			price = 100 - 8*float64(i-249)
		}
		bars = append(bars, contracts.PriceBar{
			Symbol: symbol,
			Date:   date,
			Open:   price,
			High:   price + 1 + 0.3*math.Sin(float64(i)),
			Low:    price - 1,
			Close:  price,
			Volume: 1_000_000,
		})
		date = date.AddDate(0, 0, 1)
	}
	return bars, nil
}

type fakeFundamentalsSource struct{}

func (f *fakeFundamentalsSource) FetchFundamentals(_ context.Context, symbol string) (*contracts.FundamentalsSnapshot, error) {
	return &contracts.FundamentalsSnapshot{
		Symbol: symbol,
		Facts: map[string]float64{
			contracts.FactCash:               100,
			contracts.FactTotalDebt:          10,
			contracts.FactEquity:             200,
			contracts.FactFreeCashFlow:       50,
			contracts.FactNetIncome:          60,
			contracts.FactCurrentAssets:      90,
			contracts.FactCurrentLiabilities: 30,
			contracts.FactOperatingIncome:    70,
			contracts.FactRevenue:            300,
			contracts.FactAssets:             400,
			contracts.FactInterestExpense:    1,
		},
		NetIncomeHistory: []float64{60, 55, 50},
		FetchedAt:        time.Now(),
	}, nil
}

type memStore struct {
	mu      sync.Mutex
	bars    map[string][]contracts.PriceBar
	snaps   map[string]*contracts.FundamentalsSnapshot
	rows    map[string]*contracts.IndicatorRow
	quality map[string]*contracts.QualityScore
	ranking []contracts.CombinedScore
	touched map[string]time.Time
}

func newMemStore() *memStore {
	return &memStore{
		bars:    map[string][]contracts.PriceBar{},
		snaps:   map[string]*contracts.FundamentalsSnapshot{},
		rows:    map[string]*contracts.IndicatorRow{},
		quality: map[string]*contracts.QualityScore{},
		touched: map[string]time.Time{},
	}
}

func (m *memStore) SaveBars(_ context.Context, bars []contracts.PriceBar) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range bars {
		m.bars[b.Symbol] = append(m.bars[b.Symbol], b)
	}
	return len(bars), nil
}

func (m *memStore) GetSeries(_ context.Context, symbol string) ([]contracts.PriceBar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bars[symbol], nil
}

func (m *memStore) LatestDate(_ context.Context, symbol string) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bars := m.bars[symbol]
	if len(bars) == 0 {
		return time.Time{}, nil
	}
	return bars[len(bars)-1].Date, nil
}

func (m *memStore) SaveSnapshot(_ context.Context, snap *contracts.FundamentalsSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps[snap.Symbol] = snap
	return nil
}

func (m *memStore) GetSnapshot(_ context.Context, symbol string) (*contracts.FundamentalsSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snaps[symbol], nil
}

func (m *memStore) SaveRow(_ context.Context, row *contracts.IndicatorRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[row.Symbol] = row
	return nil
}

func (m *memStore) GetRow(_ context.Context, symbol string) (*contracts.IndicatorRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[symbol], nil
}

func (m *memStore) GetAllRows(_ context.Context) ([]*contracts.IndicatorRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*contracts.IndicatorRow
	for _, r := range m.rows {
		out = append(out, r)
	}
	return out, nil
}

func (m *memStore) SaveQuality(_ context.Context, score *contracts.QualityScore, _ []contracts.FormulaResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quality[score.Symbol] = score
	return nil
}

func (m *memStore) GetQuality(_ context.Context, symbol string) (*contracts.QualityScore, []contracts.FormulaResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.quality[symbol], nil, nil
}

func (m *memStore) GetAllQuality(_ context.Context) (map[string]*contracts.QualityScore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]*contracts.QualityScore, len(m.quality))
	for k, v := range m.quality {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) ReplaceAll(_ context.Context, scores []contracts.CombinedScore) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ranking = scores
	return nil
}

func (m *memStore) GetRanking(_ context.Context) ([]contracts.CombinedScore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ranking, nil
}

func (m *memStore) Touch(_ context.Context, symbol, kind string, fetchedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touched[symbol+"/"+kind] = fetchedAt
	return nil
}

func (m *memStore) FetchedAt(_ context.Context, symbol, kind string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.touched[symbol+"/"+kind]
	return t, ok, nil
}

func newTestOrchestrator(universe *fakeUniverse, prices *fakePriceSource, st *memStore) *Orchestrator {
	log := logger.NewNop()
	return NewOrchestrator(Deps{
		Universe:         universe,
		Prices:           prices,
		Fundamentals:     &fakeFundamentalsSource{},
		PriceRepo:        st,
		FundamentalsRepo: st,
		IndicatorRepo:    st,
		ScoreRepo:        st,
		Freshness:        st,
		Engine:           indicators.NewEngine(log),
		Formulas:         formulas.NewEngine(),
		Scorer:           screener.NewScorer(log),
	}, Options{Concurrency: 4}, log)
}

func listings(symbols ...string) []contracts.Listing {
	out := make([]contracts.Listing, len(symbols))
	for i, s := range symbols {
		out[i] = contracts.Listing{Symbol: s, Name: s + " Inc"}
	}
	return out
}

func TestRefreshCompletes(t *testing.T) {
	st := newMemStore()
	o := newTestOrchestrator(
		&fakeUniverse{listings: listings("AAA", "BBB", "CCC")},
		&fakePriceSource{},
		st,
	)

	snap, err := o.RunBlocking(context.Background())
	if err != nil {
		t.Fatalf("RunBlocking: %v", err)
	}
	if snap.State != StateCompleted {
		t.Fatalf("state = %s, want completed (err %q)", snap.State, snap.LastError)
	}
	if snap.Progress.Fetched != 3 || snap.Progress.Processed != 3 {
		t.Errorf("progress = %+v", snap.Progress)
	}
	if snap.LastSuccess == nil {
		t.Error("completion time not recorded")
	}

	// Every symbol is deeply oversold with a perfect quality score, so
	// the ranking holds all three.
	ranking, _ := st.GetRanking(context.Background())
	if len(ranking) != 3 {
		t.Fatalf("ranking size = %d, want 3", len(ranking))
	}
	for i, cs := range ranking {
		if cs.Rank != i+1 {
			t.Errorf("entry %d rank = %d", i, cs.Rank)
		}
	}
}

func TestRefreshSkipsFailedSymbol(t *testing.T) {
	st := newMemStore()
	o := newTestOrchestrator(
		&fakeUniverse{listings: listings("AAA", "BAD", "CCC")},
		&fakePriceSource{failFor: map[string]bool{"BAD": true}},
		st,
	)

	snap, err := o.RunBlocking(context.Background())
	if err != nil {
		t.Fatalf("RunBlocking: %v", err)
	}

	// Completed with skips is still completed.
	if snap.State != StateCompleted {
		t.Fatalf("state = %s, want completed", snap.State)
	}
	if len(snap.Progress.Skipped) != 1 || snap.Progress.Skipped[0] != "BAD" {
		t.Errorf("skipped = %v, want [BAD]", snap.Progress.Skipped)
	}
	if snap.Progress.Fetched != 2 {
		t.Errorf("fetched = %d, want 2", snap.Progress.Fetched)
	}
}

func TestRefreshFailsWhenUniverseUnavailable(t *testing.T) {
	st := newMemStore()
	o := newTestOrchestrator(
		&fakeUniverse{err: errors.New("constituents source down")},
		&fakePriceSource{},
		st,
	)

	snap, err := o.RunBlocking(context.Background())
	if err != nil {
		t.Fatalf("RunBlocking: %v", err)
	}
	if snap.State != StateFailed {
		t.Fatalf("state = %s, want failed", snap.State)
	}
	if snap.LastError == "" {
		t.Error("systemic failure left no last error")
	}
}

func TestRefreshFailsWhenAllSymbolsFail(t *testing.T) {
	st := newMemStore()
	o := newTestOrchestrator(
		&fakeUniverse{listings: listings("AAA", "BBB")},
		&fakePriceSource{failAll: true},
		st,
	)

	snap, err := o.RunBlocking(context.Background())
	if err != nil {
		t.Fatalf("RunBlocking: %v", err)
	}
	if snap.State != StateFailed {
		t.Fatalf("state = %s, want failed", snap.State)
	}
}

func TestRefreshSecondRunSkipsFreshArtifacts(t *testing.T) {
	st := newMemStore()
	prices := &fakePriceSource{}
	o := newTestOrchestrator(&fakeUniverse{listings: listings("AAA")}, prices, st)

	if snap, _ := o.RunBlocking(context.Background()); snap.State != StateCompleted {
		t.Fatalf("first run state = %s", snap.State)
	}
	callsAfterFirst := prices.calls

	o.Reset()
	if snap, _ := o.RunBlocking(context.Background()); snap.State != StateCompleted {
		t.Fatalf("second run state = %s", snap.State)
	}

	// Everything is fresh inside the TTL window, so no refetch.
	if prices.calls != callsAfterFirst {
		t.Errorf("fresh artifacts refetched: %d calls after first, %d after second",
			callsAfterFirst, prices.calls)
	}
}

func TestTriggerSingleFlight(t *testing.T) {
	st := newMemStore()

	release := make(chan struct{})
	universe := &blockingUniverse{release: release, listings: listings("AAA")}
	o := newTestOrchestrator(&fakeUniverse{}, &fakePriceSource{}, st)
	o.deps.Universe = universe

	if !o.Trigger() {
		t.Fatal("first trigger rejected")
	}
	if o.Trigger() {
		t.Fatal("second trigger accepted while running")
	}

	close(release)
	waitForTerminal(t, o)

	// After the run terminates a new trigger is accepted again.
	universe.release = nil
	if !o.Trigger() {
		t.Fatal("trigger after terminal state rejected")
	}
	waitForTerminal(t, o)
}

type blockingUniverse struct {
	release  chan struct{}
	listings []contracts.Listing
}

func (b *blockingUniverse) Listings(context.Context) ([]contracts.Listing, error) {
	if b.release != nil {
		<-b.release
	}
	return b.listings, nil
}

func waitForTerminal(t *testing.T, o *Orchestrator) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		if o.Status().State.Terminal() {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("refresh never reached a terminal state, stuck in %s", o.Status().State)
		case <-time.After(10 * time.Millisecond):
		}
	}
}
