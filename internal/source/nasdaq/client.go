package nasdaq

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/openquant/screener/internal/contracts"
	"github.com/openquant/screener/pkg/httputil"
	"github.com/openquant/screener/pkg/logger"
)

// Client fetches daily OHLCV history from the NASDAQ charting API.
// Implements contracts.PriceSource. Transport and retry only.
type Client struct {
	http    *httputil.Client
	baseURL string
	limiter *rate.Limiter
	log     *logger.Logger
}

// NewClient creates a price source client. rps bounds the local
// request rate against the API.
func NewClient(baseURL string, rps float64, log *logger.Logger) *Client {
	if rps <= 0 {
		rps = 5
	}
	httpClient := httputil.New(log).
		WithTimeout(15 * time.Second).
		WithHeader("accept", "*/*").
		WithHeader("referer", "https://charting.nasdaq.com/dynamic/chart.html").
		WithHeader("user-agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		log:     log,
	}
}

type historicalResponse struct {
	MarketData []marketBar `json:"marketData"`
}

// rawNumber captures a numeric field verbatim, whether the payload
// sends it as a bare number or a quoted string. Parsing happens per
// bar in toBar, so one bad field drops that bar instead of aborting
// the whole response decode.
type rawNumber string

func (n *rawNumber) UnmarshalJSON(data []byte) error {
	*n = rawNumber(strings.Trim(string(data), `"`))
	return nil
}

type marketBar struct {
	Date   string    `json:"Date"`
	Open   rawNumber `json:"Open"`
	High   rawNumber `json:"High"`
	Low    rawNumber `json:"Low"`
	Close  rawNumber `json:"Close"`
	Volume rawNumber `json:"Volume"`
}

// FetchPrices returns bars for [from, to], oldest first. An empty
// response (unknown symbol, market holiday range) returns no bars and
// no error.
func (c *Client) FetchPrices(ctx context.Context, symbol string, from, to time.Time) ([]contracts.PriceBar, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("date", fmt.Sprintf("%s~%s", from.Format("2006-01-02"), to.Format("2006-01-02")))

	reqURL := fmt.Sprintf("%s/data/charting/historical?%s", c.baseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nasdaq request for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nasdaq returned %d for %s", resp.StatusCode, symbol)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var parsed historicalResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode nasdaq response for %s: %w", symbol, err)
	}

	bars := make([]contracts.PriceBar, 0, len(parsed.MarketData))
	for _, m := range parsed.MarketData {
		bar, err := m.toBar(symbol)
		if err != nil {
			c.log.WithError(err).WithField("symbol", symbol).Warn("dropping malformed bar")
			continue
		}
		bars = append(bars, bar)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

var dateLayouts = []string{"2006-01-02", "01/02/2006", time.RFC3339}

func (m marketBar) toBar(symbol string) (contracts.PriceBar, error) {
	var date time.Time
	var err error
	for _, layout := range dateLayouts {
		if date, err = time.Parse(layout, m.Date); err == nil {
			break
		}
	}
	if err != nil {
		return contracts.PriceBar{}, fmt.Errorf("unparseable date %q", m.Date)
	}

	open, err := numValue(m.Open)
	if err != nil {
		return contracts.PriceBar{}, fmt.Errorf("open: %w", err)
	}
	high, err := numValue(m.High)
	if err != nil {
		return contracts.PriceBar{}, fmt.Errorf("high: %w", err)
	}
	low, err := numValue(m.Low)
	if err != nil {
		return contracts.PriceBar{}, fmt.Errorf("low: %w", err)
	}
	cl, err := numValue(m.Close)
	if err != nil {
		return contracts.PriceBar{}, fmt.Errorf("close: %w", err)
	}
	volume, err := numValue(m.Volume)
	if err != nil {
		return contracts.PriceBar{}, fmt.Errorf("volume: %w", err)
	}

	return contracts.PriceBar{
		Symbol: symbol,
		Date:   date,
		Open:   open,
		High:   high,
		Low:    low,
		Close:  cl,
		Volume: volume,
	}, nil
}

// numValue tolerates both bare numbers and comma-grouped strings.
func numValue(n rawNumber) (float64, error) {
	s := strings.ReplaceAll(string(n), ",", "")
	if s == "" || s == "null" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
