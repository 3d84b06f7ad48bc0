package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/openquant/screener/internal/contracts"
	"github.com/openquant/screener/pkg/logger"
)

func makeBars(symbol string, closes []float64) []contracts.PriceBar {
	start := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]contracts.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = contracts.PriceBar{
			Symbol: symbol,
			Date:   start.AddDate(0, 0, i),
			Open:   c * 0.99,
			High:   c * 1.02,
			Low:    c * 0.98,
			Close:  c,
			Volume: 1_000_000 + float64(i%7)*50_000,
		}
	}
	return bars
}

// wavyCloses produces a series with both up and down moves so the
// oscillators get non-degenerate inputs.
func wavyCloses(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + 10*math.Sin(float64(i)/9) + 0.05*float64(i)
	}
	return out
}

func TestSMA(t *testing.T) {
	got := SMA([]float64{1, 2, 3, 4, 5}, 3)

	if !math.IsNaN(got[0]) || !math.IsNaN(got[1]) {
		t.Errorf("expected NaN before full window, got %v", got[:2])
	}
	want := []float64{2, 3, 4}
	for i, w := range want {
		if got[i+2] != w {
			t.Errorf("SMA[%d] = %v, want %v", i+2, got[i+2], w)
		}
	}
}

func TestEMAFirstValue(t *testing.T) {
	vals := []float64{1, 2, 3, 4, 5, 6}
	got := EMA(vals, 3)

	if !math.IsNaN(got[1]) {
		t.Errorf("expected NaN before seed, got %v", got[1])
	}
	if got[2] != 2 {
		t.Errorf("EMA seed = %v, want 2 (SMA of first 3)", got[2])
	}
	// k = 0.5 for period 3
	if got[3] != 3 {
		t.Errorf("EMA[3] = %v, want 3", got[3])
	}
}

func TestRSIAllGains(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	got := RSI(closes, 14)

	last := got[len(got)-1]
	if last != 100 {
		t.Errorf("RSI of monotonic gains = %v, want 100", last)
	}
}

func TestWilliamsRFlatWindow(t *testing.T) {
	n := 30
	high := make([]float64, n)
	low := make([]float64, n)
	close := make([]float64, n)
	for i := range high {
		high[i], low[i], close[i] = 50, 50, 50
	}

	got := WilliamsR(high, low, close, 14)
	if got[n-1] != -50 {
		t.Errorf("flat-window %%R = %v, want -50", got[n-1])
	}
}

func TestEngineFullHistory(t *testing.T) {
	eng := NewEngine(logger.NewNop())
	bars := makeBars("AAPL", wavyCloses(260))
	asOf := bars[len(bars)-1].Date.Add(24 * time.Hour)

	row, err := eng.Latest(bars, asOf)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}

	required := []string{
		contracts.IndWilliamsR14,
		contracts.IndWilliamsR21,
		contracts.IndEMA13WilliamsR,
		contracts.IndRSI14,
		contracts.IndRSI21,
		contracts.IndMACD,
		contracts.IndMACDSignal,
		contracts.IndMACDHist,
		contracts.IndStochK,
		contracts.IndStochD,
		contracts.IndROC10,
		contracts.IndROC20,
		contracts.IndCCI14,
		contracts.IndCCI20,
		contracts.IndMFI14,
		contracts.IndEMA9,
		contracts.IndEMA200,
		contracts.IndSMA20,
		contracts.IndSMA200,
		contracts.IndADX14,
		contracts.IndPlusDI,
		contracts.IndMinusDI,
		contracts.IndSAR,
		contracts.IndATR14,
		contracts.IndATR20,
		contracts.IndATRPct,
		contracts.IndBBUpper,
		contracts.IndBBPosition,
		contracts.IndStdDev20,
		contracts.IndHistVol20,
		contracts.IndOBV,
		contracts.IndAD,
		contracts.IndADOsc,
		contracts.IndVolumeMA20,
		contracts.IndVolumeMA50,
		contracts.IndRelVolume,
		contracts.IndPriceVsSMA200Pct,
		contracts.IndHigh52W,
		contracts.IndLow52W,
		contracts.IndPctFrom52WHigh,
		contracts.IndPctFrom52WLow,
		contracts.IndRange52WPosition,
		contracts.IndDataAgeDays,
		contracts.IndClose,
		contracts.IndVolume,
	}
	for _, name := range required {
		if _, ok := row.Value(name); !ok {
			t.Errorf("missing indicator %q with 260 bars of history", name)
		}
	}

	if age, _ := row.Value(contracts.IndDataAgeDays); age != 1 {
		t.Errorf("data_age_days = %v, want 1", age)
	}
}

func TestEngineShortHistory(t *testing.T) {
	eng := NewEngine(logger.NewNop())
	bars := makeBars("TINY", wavyCloses(50))

	row, err := eng.Latest(bars, bars[len(bars)-1].Date)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}

	// Long-window indicators must be absent, never zero-filled.
	for _, name := range []string{contracts.IndSMA200, contracts.IndEMA200, contracts.IndPriceVsSMA200Pct} {
		if v, ok := row.Value(name); ok {
			t.Errorf("%q = %v with only 50 bars, want absent", name, v)
		}
	}

	// Short windows still compute.
	for _, name := range []string{contracts.IndSMA20, contracts.IndRSI14, contracts.IndWilliamsR21, contracts.IndHigh52W} {
		if _, ok := row.Value(name); !ok {
			t.Errorf("%q absent with 50 bars, want present", name)
		}
	}
}

func TestEngineBoundedRanges(t *testing.T) {
	eng := NewEngine(logger.NewNop())

	// Steep monotonic decline pushes the oscillators to their edges.
	closes := make([]float64, 120)
	for i := range closes {
		closes[i] = 500 - 4*float64(i)
	}
	rows, err := eng.Compute(makeBars("DROP", closes), time.Now())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	bounds := []struct {
		name   string
		lo, hi float64
	}{
		{contracts.IndWilliamsR14, -100, 0},
		{contracts.IndWilliamsR21, -100, 0},
		{contracts.IndRSI14, 0, 100},
		{contracts.IndRSI21, 0, 100},
		{contracts.IndStochK, 0, 100},
		{contracts.IndStochD, 0, 100},
		{contracts.IndMFI14, 0, 100},
		{contracts.IndBBPosition, 0, 100},
		{contracts.IndRange52WPosition, 0, 100},
	}
	for _, row := range rows {
		for _, b := range bounds {
			v, ok := row.Value(b.name)
			if !ok {
				continue
			}
			if v < b.lo || v > b.hi {
				t.Errorf("%s on %s = %v, out of [%v, %v]",
					b.name, row.Date.Format("2006-01-02"), v, b.lo, b.hi)
			}
		}
	}
}

func TestEngineRejectsMixedSymbols(t *testing.T) {
	eng := NewEngine(logger.NewNop())
	bars := makeBars("AAA", wavyCloses(10))
	bars[5].Symbol = "BBB"

	if _, err := eng.Compute(bars, time.Now()); err == nil {
		t.Fatal("expected error for mixed symbols")
	}
}

func TestEngineSortsUnorderedBars(t *testing.T) {
	eng := NewEngine(logger.NewNop())
	bars := makeBars("AAPL", wavyCloses(40))

	shuffled := make([]contracts.PriceBar, len(bars))
	copy(shuffled, bars)
	for i := 0; i < len(shuffled)-1; i += 2 {
		shuffled[i], shuffled[i+1] = shuffled[i+1], shuffled[i]
	}

	a, err := eng.Compute(bars, time.Time{})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	b, err := eng.Compute(shuffled, time.Time{})
	if err != nil {
		t.Fatalf("Compute shuffled: %v", err)
	}

	last, lastShuffled := a[len(a)-1], b[len(b)-1]
	if !last.Date.Equal(lastShuffled.Date) {
		t.Fatalf("latest dates differ: %v vs %v", last.Date, lastShuffled.Date)
	}
	for name, v := range last.Values {
		if lastShuffled.Values[name] != v {
			t.Errorf("%s differs after shuffle: %v vs %v", name, v, lastShuffled.Values[name])
		}
	}
}
