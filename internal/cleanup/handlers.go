package cleanup

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"

	"github.com/sahti/patient-portal/pkg/logger"
)

const (
	statsCacheKey = "storage:stats"
	statsCacheTTL = 5 * time.Minute
)

// StatsHandler serves the retention backlog over HTTP. Listing the whole
// bucket is expensive, so responses sit behind a short redis cache.
type StatsHandler struct {
	service *Service
	cache   *redis.Client
	logger  *logger.Logger
}

// NewStatsHandler creates a new storage stats handler
func NewStatsHandler(service *Service, cache *redis.Client, log *logger.Logger) *StatsHandler {
	return &StatsHandler{
		service: service,
		cache:   cache,
		logger:  log,
	}
}

// SetupRoutes configures the storage stats route
func (h *StatsHandler) SetupRoutes(router *mux.Router) {
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/storage/stats", h.getStatsHandler).Methods("GET")
	api.HandleFunc("/storage/usage", h.getUsageHandler).Methods("GET")
}

// getUsageHandler returns the bucket's total footprint
func (h *StatsHandler) getUsageHandler(w http.ResponseWriter, r *http.Request) {
	usage, err := h.service.GetUsage(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to compute storage usage")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"error":  "Failed to compute storage usage",
			"status": http.StatusBadGateway,
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(usage)
}

// getStatsHandler returns the current retention backlog
func (h *StatsHandler) getStatsHandler(w http.ResponseWriter, r *http.Request) {
	if cached, err := h.cache.Get(r.Context(), statsCacheKey).Bytes(); err == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(cached)
		return
	}

	stats, err := h.service.GetStats(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to compute storage stats")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"error":  "Failed to compute storage stats",
			"status": http.StatusBadGateway,
		})
		return
	}

	body, err := json.Marshal(stats)
	if err != nil {
		h.logger.WithError(err).Error("Failed to encode storage stats")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if err := h.cache.Set(r.Context(), statsCacheKey, body, statsCacheTTL).Err(); err != nil {
		h.logger.WithError(err).Warn("Failed to cache storage stats")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
