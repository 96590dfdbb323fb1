package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskify/internal/cache"
)

type CacheHandler struct {
	cache cache.Cache
}

func NewCacheHandler(cacheInstance cache.Cache) *CacheHandler {
	return &CacheHandler{cache: cacheInstance}
}

// GetCacheStats exposes hit/miss counters for the task list cache.
// GET /cache/stats
func (h *CacheHandler) GetCacheStats(c *gin.Context) {
	if h.cache == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "Cache not available"})
		return
	}
	c.JSON(http.StatusOK, h.cache.Stats())
}

// GetCacheHealth reports whether the cache backend is reachable.
// GET /cache/health
func (h *CacheHandler) GetCacheHealth(c *gin.Context) {
	if h.cache == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "Cache not available"})
		return
	}
	if err := h.cache.Health(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
