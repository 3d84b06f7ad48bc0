package query

import (
	"context"
	"fmt"
	"sort"

	"github.com/openquant/screener/internal/contracts"
	"github.com/openquant/screener/pkg/logger"
	"github.com/openquant/screener/pkg/redis"
)

// Request is one filter query over the latest computed rows.
type Request struct {
	Ranges     map[string]Range `json:"ranges,omitempty"`
	Preset     string           `json:"preset,omitempty"`
	MaxAgeDays *float64         `json:"max_age_days,omitempty"`
	SortBy     string           `json:"sort_by,omitempty"`
	SortDesc   bool             `json:"sort_desc,omitempty"`
	Limit      int              `json:"limit,omitempty"`
	Offset     int              `json:"offset,omitempty"`
}

// Response carries the matching rows plus paging totals.
type Response struct {
	Rows   []*contracts.IndicatorRow `json:"rows"`
	Total  int                       `json:"total"`
	Limit  int                       `json:"limit"`
	Offset int                       `json:"offset"`
}

const defaultLimit = 100

// Service is the read-only query layer over the latest persisted
// indicator rows and the combined ranking. It never triggers a
// refresh and never mutates job state.
type Service struct {
	catalog    *Catalog
	indicators contracts.IndicatorRepository
	scores     contracts.ScoreRepository
	cache      *redis.Cache
	log        *logger.Logger
}

func NewService(catalog *Catalog, ind contracts.IndicatorRepository, scores contracts.ScoreRepository, cache *redis.Cache, log *logger.Logger) *Service {
	return &Service{
		catalog:    catalog,
		indicators: ind,
		scores:     scores,
		cache:      cache,
		log:        log,
	}
}

// Catalog returns the indicator metadata for config endpoints.
func (s *Service) Catalog() *Catalog {
	return s.catalog
}

// Filter applies range filters, an optional preset and an optional
// max data age to the latest rows, then sorts and paginates.
func (s *Service) Filter(ctx context.Context, req Request) (*Response, error) {
	ranges := make(map[string]Range, len(req.Ranges))
	if req.Preset != "" {
		preset, ok := s.catalog.Preset(req.Preset)
		if !ok {
			return nil, fmt.Errorf("unknown preset %q", req.Preset)
		}
		for k, v := range preset {
			ranges[k] = v
		}
	}
	// Explicit ranges override the preset's.
	for k, v := range req.Ranges {
		ranges[k] = v
	}

	rows, err := s.allRows(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]*contracts.IndicatorRow, 0, len(rows))
	for _, row := range rows {
		if req.MaxAgeDays != nil {
			age, ok := row.Value(contracts.IndDataAgeDays)
			if !ok || age > *req.MaxAgeDays {
				continue
			}
		}
		if matchesRanges(row, ranges) {
			matched = append(matched, row)
		}
	}

	sortRows(matched, req.SortBy, req.SortDesc)

	total := len(matched)
	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	offset := req.Offset
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	return &Response{
		Rows:   matched[offset:end],
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}, nil
}

// Ranking returns the latest combined screen output.
func (s *Service) Ranking(ctx context.Context) ([]contracts.CombinedScore, error) {
	if s.cache != nil {
		var cached []contracts.CombinedScore
		if found, _ := s.cache.Get(ctx, redis.RankingKey(), &cached); found {
			return cached, nil
		}
	}

	ranking, err := s.scores.GetRanking(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && len(ranking) > 0 {
		if err := s.cache.Set(ctx, redis.RankingKey(), ranking, redis.QueryTTL); err != nil {
			s.log.WithError(err).Warn("ranking cache write failed")
		}
	}
	return ranking, nil
}

// Symbol returns the full detail for one symbol: its latest indicator
// row plus quality breakdown.
func (s *Service) Symbol(ctx context.Context, symbol string) (*contracts.IndicatorRow, *contracts.QualityScore, []contracts.FormulaResult, error) {
	row, err := s.indicators.GetRow(ctx, symbol)
	if err != nil {
		return nil, nil, nil, err
	}
	if row == nil {
		return nil, nil, nil, nil
	}

	score, results, err := s.indicators.GetQuality(ctx, symbol)
	if err != nil {
		return nil, nil, nil, err
	}
	return row, score, results, nil
}

func (s *Service) allRows(ctx context.Context) ([]*contracts.IndicatorRow, error) {
	if s.cache != nil {
		var cached []*contracts.IndicatorRow
		if found, _ := s.cache.Get(ctx, redis.AllRowsKey(), &cached); found {
			return cached, nil
		}
	}

	rows, err := s.indicators.GetAllRows(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && len(rows) > 0 {
		if err := s.cache.Set(ctx, redis.AllRowsKey(), rows, redis.QueryTTL); err != nil {
			s.log.WithError(err).Warn("rows cache write failed")
		}
	}
	return rows, nil
}

// matchesRanges checks every bound. A row lacking a filtered
// indicator is excluded: null never matches a range.
func matchesRanges(row *contracts.IndicatorRow, ranges map[string]Range) bool {
	for name, r := range ranges {
		v, ok := row.Value(name)
		if !ok {
			return false
		}
		if r.From != nil && v < *r.From {
			return false
		}
		if r.To != nil && v > *r.To {
			return false
		}
	}
	return true
}

// sortRows orders by the named indicator with symbol as the final
// tie-break so the order is total. Rows missing the sort key go last.
func sortRows(rows []*contracts.IndicatorRow, sortBy string, desc bool) {
	if sortBy == "" {
		sort.Slice(rows, func(i, j int) bool { return rows[i].Symbol < rows[j].Symbol })
		return
	}

	sort.Slice(rows, func(i, j int) bool {
		vi, oki := rows[i].Value(sortBy)
		vj, okj := rows[j].Value(sortBy)
		if oki != okj {
			return oki
		}
		if oki && vi != vj {
			if desc {
				return vi > vj
			}
			return vi < vj
		}
		return rows[i].Symbol < rows[j].Symbol
	})
}
