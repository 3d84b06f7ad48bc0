package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/openquant/screener/internal/api/handlers"
	"github.com/openquant/screener/pkg/logger"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(refreshHandler *handlers.RefreshHandler, screenHandler *handlers.ScreenHandler, universeHandler *handlers.UniverseHandler, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Refresh orchestration
	api.HandleFunc("/refresh", refreshHandler.Trigger).Methods("POST")
	api.HandleFunc("/refresh/status", refreshHandler.Status).Methods("GET")
	api.HandleFunc("/refresh/reset", refreshHandler.Reset).Methods("POST")
	api.HandleFunc("/refresh/ws", refreshHandler.StatusStream).Methods("GET")

	// Query layer
	api.HandleFunc("/screen", screenHandler.Ranking).Methods("GET")
	api.HandleFunc("/screen/filter", screenHandler.Filter).Methods("POST")
	api.HandleFunc("/screen/filter", screenHandler.FilterGet).Methods("GET")
	api.HandleFunc("/stocks/{symbol}", screenHandler.Symbol).Methods("GET")
	api.HandleFunc("/universe", universeHandler.Listings).Methods("GET")

	// Config
	api.HandleFunc("/config/indicators", screenHandler.Indicators).Methods("GET")
	api.HandleFunc("/config/presets", screenHandler.Presets).Methods("GET")

	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "screener-api",
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
