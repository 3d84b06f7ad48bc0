package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/openquant/screener/internal/query"
	"github.com/openquant/screener/pkg/logger"
)

// ScreenHandler serves the query layer: combined ranking, filtered
// indicator rows, per-symbol detail and the indicator/preset catalog.
type ScreenHandler struct {
	service *query.Service
	logger  *logger.Logger
}

func NewScreenHandler(svc *query.Service, log *logger.Logger) *ScreenHandler {
	return &ScreenHandler{
		service: svc,
		logger:  log,
	}
}

// Ranking returns the latest combined screen output.
// GET /api/screen
func (h *ScreenHandler) Ranking(w http.ResponseWriter, r *http.Request) {
	ranking, err := h.service.Ranking(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("ranking query failed")
		respondError(w, http.StatusInternalServerError, "failed to load ranking")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(ranking),
		"results": ranking,
	})
}

// Filter runs a range-filter query over the latest indicator rows.
// POST /api/screen/filter
func (h *ScreenHandler) Filter(w http.ResponseWriter, r *http.Request) {
	var req query.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	applyQueryParams(&req, r)

	resp, err := h.service.Filter(r.Context(), req)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// FilterGet is the querystring form of Filter, for simple clients.
// GET /api/screen/filter?preset=oversold&max_age_days=5
func (h *ScreenHandler) FilterGet(w http.ResponseWriter, r *http.Request) {
	var req query.Request
	applyQueryParams(&req, r)

	resp, err := h.service.Filter(r.Context(), req)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func applyQueryParams(req *query.Request, r *http.Request) {
	q := r.URL.Query()
	if v := q.Get("preset"); v != "" {
		req.Preset = v
	}
	if v := q.Get("max_age_days"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			req.MaxAgeDays = &f
		}
	}
	if v := q.Get("sort_by"); v != "" {
		req.SortBy = v
	}
	if v := q.Get("sort_desc"); v != "" {
		req.SortDesc = v == "true" || v == "1"
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			req.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			req.Offset = n
		}
	}
}

// Symbol returns full detail for one symbol: latest indicators plus
// the quality formula breakdown.
// GET /api/stocks/{symbol}
func (h *ScreenHandler) Symbol(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	row, score, results, err := h.service.Symbol(r.Context(), symbol)
	if err != nil {
		h.logger.WithError(err).WithField("symbol", symbol).Error("symbol query failed")
		respondError(w, http.StatusInternalServerError, "failed to load symbol")
		return
	}
	if row == nil {
		respondError(w, http.StatusNotFound, "unknown symbol")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":     symbol,
		"indicators": row,
		"quality":    score,
		"formulas":   results,
	})
}

// Indicators returns the indicator metadata catalog.
// GET /api/config/indicators
func (h *ScreenHandler) Indicators(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"indicators": h.service.Catalog().Indicators,
	})
}

// Presets returns the named filter bundles.
// GET /api/config/presets
func (h *ScreenHandler) Presets(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"presets": h.service.Catalog().Presets,
	})
}
