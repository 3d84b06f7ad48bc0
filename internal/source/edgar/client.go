package edgar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/openquant/screener/internal/contracts"
	"github.com/openquant/screener/pkg/httputil"
	"github.com/openquant/screener/pkg/logger"
	"github.com/openquant/screener/pkg/redis"
)

// defaultTickerURL is the SEC's published ticker-to-CIK mapping.
const defaultTickerURL = "https://www.sec.gov/files/company_tickers.json"

// Client fetches XBRL company facts from SEC EDGAR. Implements
// contracts.FundamentalsSource. The SEC fair-use policy requires a
// descriptive User-Agent and caps request rate, so both are enforced
// here.
type Client struct {
	http      *httputil.Client
	baseURL   string
	tickerURL string
	limiter   *rate.Limiter
	log       *logger.Logger

	mu   sync.Mutex
	ciks map[string]string
}

func NewClient(baseURL, userAgent string, rps float64, log *logger.Logger) *Client {
	if rps <= 0 {
		rps = 8
	}
	httpClient := httputil.New(log).
		WithTimeout(30 * time.Second).
		WithHeader("User-Agent", userAgent).
		WithHeader("Accept", "application/json")

	return &Client{
		http:      httpClient,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		tickerURL: defaultTickerURL,
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
		log:       log,
		ciks:      make(map[string]string),
	}
}

// WithTickerURL overrides the CIK mapping endpoint.
func (c *Client) WithTickerURL(u string) *Client {
	c.tickerURL = u
	return c
}

// WithDistributedLimiter adds a shared rate limit on top of the local
// one, so multiple processes stay under the SEC fair-use cap together.
func (c *Client) WithDistributedLimiter(limiter *redis.RateLimiter) *Client {
	c.http.WithRateLimiter(limiter, redis.EdgarRateLimit)
	return c
}

// FetchFundamentals resolves the symbol's CIK, pulls its companyfacts
// document and reduces it to a snapshot.
func (c *Client) FetchFundamentals(ctx context.Context, symbol string) (*contracts.FundamentalsSnapshot, error) {
	cik, err := c.resolveCIK(ctx, symbol)
	if err != nil {
		return nil, err
	}

	body, err := c.getJSON(ctx, fmt.Sprintf("%s/companyfacts/CIK%s.json", c.baseURL, cik))
	if err != nil {
		return nil, fmt.Errorf("companyfacts for %s: %w", symbol, err)
	}

	var doc companyFacts
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode companyfacts for %s: %w", symbol, err)
	}
	return extractSnapshot(symbol, &doc, time.Now())
}

// resolveCIK maps a ticker to its zero-padded 10-digit CIK, loading
// the SEC mapping file on first use.
func (c *Client) resolveCIK(ctx context.Context, symbol string) (string, error) {
	upper := strings.ToUpper(symbol)

	c.mu.Lock()
	cik, ok := c.ciks[upper]
	c.mu.Unlock()
	if ok {
		return cik, nil
	}

	if err := c.loadTickerMapping(ctx); err != nil {
		return "", err
	}

	c.mu.Lock()
	cik, ok = c.ciks[upper]
	c.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("no CIK mapping for %s", symbol)
	}
	return cik, nil
}

func (c *Client) loadTickerMapping(ctx context.Context) error {
	body, err := c.getJSON(ctx, c.tickerURL)
	if err != nil {
		return fmt.Errorf("ticker mapping: %w", err)
	}

	// Keyed by arbitrary numeric strings.
	var entries map[string]struct {
		CIK    int    `json:"cik_str"`
		Ticker string `json:"ticker"`
		Title  string `json:"title"`
	}
	if err := json.Unmarshal(body, &entries); err != nil {
		return fmt.Errorf("decode ticker mapping: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range entries {
		c.ciks[strings.ToUpper(e.Ticker)] = fmt.Sprintf("%010d", e.CIK)
	}
	c.log.WithField("tickers", len(c.ciks)).Debug("CIK mapping loaded")
	return nil
}

func (c *Client) getJSON(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("edgar returned %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
