package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/RoutingEngine/internal/cache"
)

// CacheAdminHandler serves cache invalidation for operators.
type CacheAdminHandler struct {
	store *cache.Store
}

// NewCacheAdminHandler constructs a cache admin handler.
func NewCacheAdminHandler(store *cache.Store) *CacheAdminHandler {
	return &CacheAdminHandler{store: store}
}

// invalidateRequest selects exactly one invalidation mode.
type invalidateRequest struct {
	Tag     string `json:"tag,omitempty"`     // Remove entries carrying this tag.
	System  string `json:"system,omitempty"`  // Remove a whole key namespace.
	Pattern string `json:"pattern,omitempty"` // Remove keys matching a glob.
}

// Invalidate removes cache entries by tag, system, or key pattern.
func (h *CacheAdminHandler) Invalidate(c *gin.Context) {
	var body invalidateRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	tag := strings.TrimSpace(body.Tag)
	system := strings.TrimSpace(body.System)
	pattern := strings.TrimSpace(body.Pattern)

	modes := 0
	for _, mode := range []string{tag, system, pattern} {
		if mode != "" {
			modes++
		}
	}
	if modes != 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "exactly one of tag, system, or pattern is required"})
		return
	}

	ctx := c.Request.Context()
	var removed int
	switch {
	case tag != "":
		removed = h.store.InvalidateByTag(ctx, tag)
	case system != "":
		removed = h.store.InvalidateBySystem(ctx, system)
	default:
		removed = h.store.InvalidatePattern(ctx, pattern)
	}
	c.JSON(http.StatusOK, gin.H{"invalidated": removed})
}
