package handler

import (
	"net/http"

	"gazetteer-api/internal/cache"

	"github.com/gin-gonic/gin"
)

// MetricsHandler exposes cache counters as JSON.
type MetricsHandler struct {
	cache *cache.SearchCache
}

// NewMetricsHandler creates a new metrics handler; c may be nil when the
// cache is disabled, in which case all counters read zero.
func NewMetricsHandler(c *cache.SearchCache) *MetricsHandler {
	return &MetricsHandler{cache: c}
}

// Metrics handles GET /metrics requests.
//
// @Summary      Cache metrics
// @Tags         metrics
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /metrics [get]
func (h *MetricsHandler) Metrics(c *gin.Context) {
	hits, misses := h.cache.Stats()
	rate := 0.0
	if hits+misses > 0 {
		rate = float64(hits) / float64(hits+misses)
	}
	c.JSON(http.StatusOK, gin.H{
		"cache_hits":     hits,
		"cache_misses":   misses,
		"cache_hit_rate": rate,
	})
}
