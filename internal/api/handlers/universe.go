package handlers

import (
	"net/http"

	"github.com/openquant/screener/internal/contracts"
	"github.com/openquant/screener/pkg/logger"
)

// UniverseHandler serves the constituents listing.
type UniverseHandler struct {
	source contracts.UniverseSource
	logger *logger.Logger
}

func NewUniverseHandler(src contracts.UniverseSource, log *logger.Logger) *UniverseHandler {
	return &UniverseHandler{
		source: src,
		logger: log,
	}
}

// Listings returns the current S&P 500 membership.
// GET /api/universe
func (h *UniverseHandler) Listings(w http.ResponseWriter, r *http.Request) {
	listings, err := h.source.Listings(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("universe listing failed")
		respondError(w, http.StatusBadGateway, "failed to load constituents")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(listings),
		"listings": listings,
	})
}
