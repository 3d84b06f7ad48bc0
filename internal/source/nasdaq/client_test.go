package nasdaq

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/openquant/screener/pkg/logger"
)

const sampleResponse = `{
	"marketData": [
		{"Date": "2026-08-21", "Open": 231.1, "High": 233.9, "Low": 229.4, "Close": 232.5, "Volume": 41250000},
		{"Date": "2026-08-20", "Open": "228.7", "High": 231.6, "Low": 228.0, "Close": "231.00", "Volume": "38,400,000"}
	]
}`

func TestFetchPrices(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/data/charting/historical" {
			t.Errorf("path = %s", r.URL.Path)
		}
		gotQuery = r.URL.RawQuery
		w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 100, logger.NewNop())
	from := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC)

	bars, err := c.FetchPrices(context.Background(), "AAPL", from, to)
	if err != nil {
		t.Fatalf("FetchPrices: %v", err)
	}

	if len(bars) != 2 {
		t.Fatalf("got %d bars, want 2", len(bars))
	}
	// Oldest first regardless of response order.
	if !bars[0].Date.Before(bars[1].Date) {
		t.Errorf("bars not sorted ascending: %v, %v", bars[0].Date, bars[1].Date)
	}
	// String-typed numerics decode the same as bare numbers.
	if bars[0].Close != 231.0 {
		t.Errorf("first close = %v, want 231.0", bars[0].Close)
	}
	if bars[0].Open != 228.7 {
		t.Errorf("first open = %v, want 228.7", bars[0].Open)
	}
	// Comma-grouped volume strings parse too.
	if bars[0].Volume != 38_400_000 {
		t.Errorf("volume = %v, want 38400000", bars[0].Volume)
	}
	if bars[1].Symbol != "AAPL" {
		t.Errorf("symbol = %s", bars[1].Symbol)
	}

	want := "date=2026-08-20~2026-08-21&symbol=AAPL"
	if gotQuery != want {
		t.Errorf("query = %q, want %q", gotQuery, want)
	}
}

func TestFetchPricesEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"marketData": []}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 100, logger.NewNop())
	bars, err := c.FetchPrices(context.Background(), "NONE", time.Now().AddDate(0, 0, -5), time.Now())
	if err != nil {
		t.Fatalf("FetchPrices: %v", err)
	}
	if len(bars) != 0 {
		t.Errorf("got %d bars, want 0", len(bars))
	}
}

func TestFetchPricesDropsMalformedBars(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"marketData": [
			{"Date": "garbage", "Open": 1, "High": 1, "Low": 1, "Close": 1, "Volume": 1},
			{"Date": "2026-08-20", "Open": 1, "High": 1, "Low": 1, "Close": "n/a", "Volume": 1},
			{"Date": "2026-08-21", "Open": 231.1, "High": 233.9, "Low": 229.4, "Close": 232.5, "Volume": 41250000}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 100, logger.NewNop())
	bars, err := c.FetchPrices(context.Background(), "AAPL", time.Now().AddDate(0, 0, -5), time.Now())
	if err != nil {
		t.Fatalf("FetchPrices: %v", err)
	}
	if len(bars) != 1 {
		t.Fatalf("got %d bars, want 1 (malformed dropped)", len(bars))
	}
	if bars[0].Close != 232.5 {
		t.Errorf("surviving close = %v, want 232.5", bars[0].Close)
	}
}
