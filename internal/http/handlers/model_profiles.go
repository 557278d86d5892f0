package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/RoutingEngine/internal/models"
	"gorm.io/gorm"
)

// ModelProfileHandler exposes the model catalog read-only. Profiles are
// owned by an external catalog process; the engine never writes them.
type ModelProfileHandler struct {
	db *gorm.DB
}

// NewModelProfileHandler constructs a model profile handler.
func NewModelProfileHandler(db *gorm.DB) *ModelProfileHandler {
	return &ModelProfileHandler{db: db}
}

// List returns model profiles, optionally filtered by provider or enabled
// state.
func (h *ModelProfileHandler) List(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context()).Model(&models.ModelProfile{})
	if provider := strings.TrimSpace(c.Query("provider")); provider != "" {
		q = q.Where("provider = ?", provider)
	}
	if enabledQ := strings.TrimSpace(c.Query("is_enabled")); enabledQ != "" {
		if enabledQ == "true" || enabledQ == "1" {
			q = q.Where("is_enabled = ?", true)
		} else if enabledQ == "false" || enabledQ == "0" {
			q = q.Where("is_enabled = ?", false)
		}
	}

	var rows []models.ModelProfile
	if errFind := q.Order("provider ASC, model_id ASC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list model profiles failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":                 row.ID,
			"provider":           row.Provider,
			"model_id":           row.ModelID,
			"input_token_rate":   row.InputTokenRate,
			"output_token_rate":  row.OutputTokenRate,
			"currency":           row.Currency,
			"capabilities":       json.RawMessage(row.Capabilities),
			"quality_scores":     json.RawMessage(row.QualityScores),
			"average_latency_ms": row.AverageLatencyMs,
			"throughput":         row.Throughput,
			"is_enabled":         row.IsEnabled,
			"known_alternatives": json.RawMessage(row.KnownAlternatives),
		})
	}
	c.JSON(http.StatusOK, gin.H{"model_profiles": out})
}
