package constituents

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/openquant/screener/internal/contracts"
	"github.com/openquant/screener/pkg/httputil"
	"github.com/openquant/screener/pkg/logger"
)

// defaultIndexURL lists the current S&P 500 constituents.
const defaultIndexURL = "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies"

// SP500 resolves the screening universe from the published S&P 500
// constituents table, with a bundled CSV as offline fallback.
// Implements contracts.UniverseSource.
type SP500 struct {
	http    *httputil.Client
	url     string
	csvPath string
	log     *logger.Logger
}

func NewSP500(csvPath string, log *logger.Logger) *SP500 {
	return &SP500{
		http:    httputil.New(log).WithTimeout(20 * time.Second).WithRetry(2, 200*time.Millisecond),
		url:     defaultIndexURL,
		csvPath: csvPath,
		log:     log,
	}
}

// WithURL overrides the constituents page.
func (s *SP500) WithURL(u string) *SP500 {
	s.url = u
	return s
}

// Listings scrapes the live constituents table, falling back to the
// local CSV when the scrape fails.
func (s *SP500) Listings(ctx context.Context) ([]contracts.Listing, error) {
	listings, err := s.scrape(ctx)
	if err == nil {
		return listings, nil
	}
	s.log.WithError(err).Warn("constituents scrape failed, using CSV fallback")

	listings, csvErr := s.fromCSV()
	if csvErr != nil {
		return nil, fmt.Errorf("scrape failed (%v) and CSV fallback failed: %w", err, csvErr)
	}
	return listings, nil
}

func (s *SP500) scrape(ctx context.Context) ([]contracts.Listing, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("constituents page returned %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, err
	}

	var listings []contracts.Listing
	doc.Find("table#constituents tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 3 {
			return
		}
		symbol := normalizeSymbol(cells.Eq(0).Text())
		if symbol == "" {
			return
		}
		listings = append(listings, contracts.Listing{
			Symbol: symbol,
			Name:   strings.TrimSpace(cells.Eq(1).Text()),
			Sector: strings.TrimSpace(cells.Eq(2).Text()),
		})
	})

	if len(listings) == 0 {
		return nil, fmt.Errorf("constituents table not found or empty")
	}
	return listings, nil
}

// fromCSV reads Symbol,Name,Sector rows with a header line.
func (s *SP500) fromCSV() ([]contracts.Listing, error) {
	f, err := os.Open(s.csvPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var listings []contracts.Listing
	first := true
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if first {
			first = false
			if strings.EqualFold(record[0], "symbol") {
				continue
			}
		}
		if len(record) == 0 || record[0] == "" {
			continue
		}

		l := contracts.Listing{Symbol: normalizeSymbol(record[0])}
		if len(record) > 1 {
			l.Name = strings.TrimSpace(record[1])
		}
		if len(record) > 2 {
			l.Sector = strings.TrimSpace(record[2])
		}
		listings = append(listings, l)
	}

	if len(listings) == 0 {
		return nil, fmt.Errorf("no symbols in %s", s.csvPath)
	}
	return listings, nil
}

// normalizeSymbol maps share-class dots to the dash form the price
// source expects (BRK.B -> BRK-B).
func normalizeSymbol(raw string) string {
	return strings.ReplaceAll(strings.TrimSpace(raw), ".", "-")
}
