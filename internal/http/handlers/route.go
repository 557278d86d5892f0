// Package handlers implements the gin handlers for the selection and admin
// APIs.
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/router-for-me/RoutingEngine/internal/cache"
	"github.com/router-for-me/RoutingEngine/internal/catalog"
	"github.com/router-for-me/RoutingEngine/internal/estimator"
	"github.com/router-for-me/RoutingEngine/internal/router"
	"github.com/router-for-me/RoutingEngine/internal/selector"
)

// Cache directive headers.
const (
	headerCacheControl = "X-Cache-Control"
	headerCacheTTL     = "X-Cache-TTL"
)

// RouteHandler serves the selection API.
type RouteHandler struct {
	orchestrator *router.Orchestrator
	selector     *selector.Selector
	estimator    *estimator.Estimator
	catalog      *catalog.Store
}

// NewRouteHandler constructs a RouteHandler.
func NewRouteHandler(orchestrator *router.Orchestrator, sel *selector.Selector, est *estimator.Estimator, store *catalog.Store) *RouteHandler {
	return &RouteHandler{orchestrator: orchestrator, selector: sel, estimator: est, catalog: store}
}

// Select routes one request through the full pipeline.
func (h *RouteHandler) Select(c *gin.Context) {
	var req selector.Request
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.RequestID) == "" {
		req.RequestID = uuid.NewString()
	}

	input := router.Input{
		Request:  req,
		Control:  cache.ParseControl(strings.TrimSpace(c.GetHeader(headerCacheControl))),
		CacheTTL: parseTTL(c.GetHeader(headerCacheTTL)),
	}

	result, errRoute := h.orchestrator.Route(c.Request.Context(), input)
	if errRoute != nil {
		writeRouteError(c, errRoute)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"request_id":     result.Response.RequestID,
		"selection":      result.Response,
		"cache_hit":      result.CacheHit,
		"forced_by_rule": result.ForcedByRule,
		"matched_rules":  result.MatchedRules,
	})
}

// estimateRequest captures the payload for the estimate endpoint.
type estimateRequest struct {
	Content  estimator.Content `json:"content"`
	ModelIDs []string          `json:"model_ids,omitempty"`
}

// Estimate returns per-model cost estimates sorted ascending by cost.
func (h *RouteHandler) Estimate(c *gin.Context) {
	var body estimateRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.Content.Empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}

	costs := h.estimator.EstimateAll(c.Request.Context(), body.Content, h.catalog.Enabled(), body.ModelIDs)
	c.JSON(http.StatusOK, gin.H{"estimates": costs})
}

// Fallbacks returns the retry chain for a model.
func (h *RouteHandler) Fallbacks(c *gin.Context) {
	modelID := strings.TrimSpace(c.Param("modelID"))
	if modelID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "model id is required"})
		return
	}
	if _, found := h.catalog.Get(modelID); !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown model"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"model_id":  modelID,
		"fallbacks": h.selector.FallbacksFor(modelID),
	})
}

// writeRouteError maps pipeline errors onto HTTP statuses.
func writeRouteError(c *gin.Context, errRoute error) {
	var rejection *router.RejectionError
	switch {
	case errors.As(errRoute, &rejection):
		c.JSON(rejection.StatusCode, gin.H{"error": rejection.Message})
	case errors.Is(errRoute, router.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": errRoute.Error()})
	case errors.Is(errRoute, selector.ErrNoSuitableModel):
		c.JSON(http.StatusNotFound, gin.H{"error": "no suitable model"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "routing failed"})
	}
}

// parseTTL converts the TTL header, in seconds, into a duration.
func parseTTL(raw string) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	seconds, errParse := strconv.Atoi(raw)
	if errParse != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
