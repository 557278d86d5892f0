package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/RoutingEngine/internal/models"
	"github.com/router-for-me/RoutingEngine/internal/steering"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SteeringRuleHandler manages admin CRUD endpoints for steering rules.
type SteeringRuleHandler struct {
	db       *gorm.DB
	reloader *steering.Reloader // Refreshed after every mutation.
}

// NewSteeringRuleHandler constructs a steering rule handler.
func NewSteeringRuleHandler(db *gorm.DB, reloader *steering.Reloader) *SteeringRuleHandler {
	return &SteeringRuleHandler{db: db, reloader: reloader}
}

// createSteeringRuleRequest captures the payload for creating a rule.
type createSteeringRuleRequest struct {
	Name               string               `json:"name"`                // Rule name.
	Priority           *int                 `json:"priority"`            // Evaluation order, ascending.
	Combinator         string               `json:"combinator"`          // and (default) or or.
	Conditions         []steering.Condition `json:"conditions"`          // Condition list.
	Actions            []steering.Action    `json:"actions"`             // Action list.
	ContinueEvaluation bool                 `json:"continue_evaluation"` // Keep evaluating after a match.
	IsEnabled          *bool                `json:"is_enabled"`          // Required enabled flag.
	Tags               []string             `json:"tags"`                // Free-form tags.
}

// validateRulePayload checks conditions and actions against the known
// operators and action types.
func validateRulePayload(conditions []steering.Condition, actions []steering.Action) string {
	validOps := map[string]struct{}{
		steering.OpEquals: {}, steering.OpNotEquals: {},
		steering.OpContains: {}, steering.OpNotContains: {},
		steering.OpRegex: {}, steering.OpGt: {}, steering.OpLt: {},
		steering.OpGte: {}, steering.OpLte: {},
		steering.OpIn: {}, steering.OpNotIn: {},
		steering.OpExists: {}, steering.OpNotExists: {},
	}
	for _, condition := range conditions {
		if strings.TrimSpace(condition.Field) == "" {
			return "condition field is required"
		}
		if _, ok := validOps[condition.Operator]; !ok {
			return "unknown condition operator " + condition.Operator
		}
	}

	if len(actions) == 0 {
		return "at least one action is required"
	}
	for _, action := range actions {
		switch action.Type {
		case steering.ActionRoute:
			if strings.TrimSpace(action.Model) == "" {
				return "route action requires a model"
			}
		case steering.ActionTransform:
			if strings.TrimSpace(action.Field) == "" {
				return "transform action requires a field"
			}
			switch action.Operation {
			case steering.TransformReplace, steering.TransformAppend, steering.TransformPrepend, steering.TransformDelete:
			default:
				return "unknown transform operation " + action.Operation
			}
		case steering.ActionInject:
			if strings.TrimSpace(action.Field) == "" {
				return "inject action requires a field"
			}
		case steering.ActionReject:
			if strings.TrimSpace(action.Message) == "" {
				return "reject action requires a message"
			}
		case steering.ActionLog:
			if strings.TrimSpace(action.Message) == "" {
				return "log action requires a message"
			}
		default:
			return "unknown action type " + action.Type
		}
	}
	return ""
}

// Create validates input and inserts a steering rule.
func (h *SteeringRuleHandler) Create(c *gin.Context) {
	var body createSteeringRuleRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	name := strings.TrimSpace(body.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	if body.IsEnabled == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "is_enabled is required"})
		return
	}
	combinator := strings.ToLower(strings.TrimSpace(body.Combinator))
	if combinator == "" {
		combinator = steering.CombinatorAnd
	}
	if combinator != steering.CombinatorAnd && combinator != steering.CombinatorOr {
		c.JSON(http.StatusBadRequest, gin.H{"error": "combinator must be and or or"})
		return
	}
	if message := validateRulePayload(body.Conditions, body.Actions); message != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": message})
		return
	}

	priority := 100
	if body.Priority != nil {
		priority = *body.Priority
	}

	now := time.Now().UTC()
	row := models.SteeringRule{
		Name:               name,
		Priority:           priority,
		Combinator:         combinator,
		Conditions:         mustJSON(body.Conditions),
		Actions:            mustJSON(body.Actions),
		ContinueEvaluation: body.ContinueEvaluation,
		IsEnabled:          *body.IsEnabled,
		Tags:               mustJSON(body.Tags),
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if errCreate := h.db.WithContext(c.Request.Context()).Create(&row).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create steering rule failed"})
		return
	}
	h.refresh(c)
	c.JSON(http.StatusCreated, formatRule(&row))
}

// List returns steering rules ordered for evaluation.
func (h *SteeringRuleHandler) List(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context()).Model(&models.SteeringRule{})
	if enabledQ := strings.TrimSpace(c.Query("is_enabled")); enabledQ != "" {
		if enabledQ == "true" || enabledQ == "1" {
			q = q.Where("is_enabled = ?", true)
		} else if enabledQ == "false" || enabledQ == "0" {
			q = q.Where("is_enabled = ?", false)
		}
	}

	var rows []models.SteeringRule
	if errFind := q.Order("priority ASC, id ASC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list steering rules failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, formatRule(&row))
	}
	c.JSON(http.StatusOK, gin.H{"steering_rules": out})
}

// Get fetches a steering rule by ID.
func (h *SteeringRuleHandler) Get(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var row models.SteeringRule
	if errFind := h.db.WithContext(c.Request.Context()).First(&row, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, formatRule(&row))
}

// updateSteeringRuleRequest captures optional fields for rule updates.
type updateSteeringRuleRequest struct {
	Name               *string               `json:"name"`
	Priority           *int                  `json:"priority"`
	Combinator         *string               `json:"combinator"`
	Conditions         *[]steering.Condition `json:"conditions"`
	Actions            *[]steering.Action    `json:"actions"`
	ContinueEvaluation *bool                 `json:"continue_evaluation"`
	IsEnabled          *bool                 `json:"is_enabled"`
	Tags               *[]string             `json:"tags"`
}

// Update applies a partial update to a steering rule.
func (h *SteeringRuleHandler) Update(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var body updateSteeringRuleRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	var row models.SteeringRule
	if errFind := h.db.WithContext(c.Request.Context()).First(&row, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	if body.Name != nil {
		name := strings.TrimSpace(*body.Name)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name cannot be empty"})
			return
		}
		row.Name = name
	}
	if body.Priority != nil {
		row.Priority = *body.Priority
	}
	if body.Combinator != nil {
		combinator := strings.ToLower(strings.TrimSpace(*body.Combinator))
		if combinator != steering.CombinatorAnd && combinator != steering.CombinatorOr {
			c.JSON(http.StatusBadRequest, gin.H{"error": "combinator must be and or or"})
			return
		}
		row.Combinator = combinator
	}

	conditions := decodeConditions(row.Conditions)
	actions := decodeActions(row.Actions)
	if body.Conditions != nil {
		conditions = *body.Conditions
	}
	if body.Actions != nil {
		actions = *body.Actions
	}
	if message := validateRulePayload(conditions, actions); message != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": message})
		return
	}
	row.Conditions = mustJSON(conditions)
	row.Actions = mustJSON(actions)

	if body.ContinueEvaluation != nil {
		row.ContinueEvaluation = *body.ContinueEvaluation
	}
	if body.IsEnabled != nil {
		row.IsEnabled = *body.IsEnabled
	}
	if body.Tags != nil {
		row.Tags = mustJSON(*body.Tags)
	}
	row.UpdatedAt = time.Now().UTC()

	if errSave := h.db.WithContext(c.Request.Context()).Save(&row).Error; errSave != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update steering rule failed"})
		return
	}
	h.refresh(c)
	c.JSON(http.StatusOK, formatRule(&row))
}

// Delete removes a steering rule.
func (h *SteeringRuleHandler) Delete(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	result := h.db.WithContext(c.Request.Context()).Delete(&models.SteeringRule{}, id)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete steering rule failed"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	h.refresh(c)
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// testSteeringRuleRequest carries a candidate rule and a sample context.
type testSteeringRuleRequest struct {
	Combinator string               `json:"combinator"`
	Conditions []steering.Condition `json:"conditions"`
	Actions    []steering.Action    `json:"actions"`
	Context    struct {
		Body     json.RawMessage `json:"body"`
		TaskType string          `json:"task_type"`
		UserID   string          `json:"user_id"`
		TeamID   string          `json:"team_id"`
		OrgID    string          `json:"org_id"`
	} `json:"context"`
}

// Test evaluates a candidate rule against a sample context without
// persisting anything.
func (h *SteeringRuleHandler) Test(c *gin.Context) {
	var body testSteeringRuleRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if message := validateRulePayload(body.Conditions, body.Actions); message != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": message})
		return
	}
	combinator := strings.ToLower(strings.TrimSpace(body.Combinator))
	if combinator != steering.CombinatorOr {
		combinator = steering.CombinatorAnd
	}

	engine := steering.NewEngine()
	engine.Replace([]steering.Rule{{
		Name:       "candidate",
		Priority:   1,
		Combinator: combinator,
		Conditions: body.Conditions,
		Actions:    body.Actions,
	}})

	doc := steering.BuildDocument(steering.ContextInput{
		Body:     body.Context.Body,
		TaskType: body.Context.TaskType,
		UserID:   body.Context.UserID,
		TeamID:   body.Context.TeamID,
		OrgID:    body.Context.OrgID,
	})
	decision := engine.Evaluate(doc, body.Context.Body)

	c.JSON(http.StatusOK, gin.H{
		"matched":         len(decision.MatchedRules) > 0,
		"forced_provider": decision.ForcedProvider,
		"forced_model":    decision.ForcedModel,
		"rejection":       decision.Rejection,
		"logs":            decision.Logs,
		"body":            json.RawMessage(decision.Body),
	})
}

// refresh reloads the live rule snapshot after a mutation.
func (h *SteeringRuleHandler) refresh(c *gin.Context) {
	if h.reloader == nil {
		return
	}
	_ = h.reloader.Refresh(c.Request.Context())
}

// formatRule renders a rule row for API responses.
func formatRule(row *models.SteeringRule) gin.H {
	return gin.H{
		"id":                  row.ID,
		"name":                row.Name,
		"priority":            row.Priority,
		"combinator":          row.Combinator,
		"conditions":          json.RawMessage(row.Conditions),
		"actions":             json.RawMessage(row.Actions),
		"continue_evaluation": row.ContinueEvaluation,
		"is_enabled":          row.IsEnabled,
		"tags":                json.RawMessage(row.Tags),
		"created_at":          row.CreatedAt,
		"updated_at":          row.UpdatedAt,
	}
}

// mustJSON encodes a value that cannot fail to marshal.
func mustJSON(value any) datatypes.JSON {
	encoded, errMarshal := json.Marshal(value)
	if errMarshal != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(encoded)
}

func decodeConditions(raw datatypes.JSON) []steering.Condition {
	var out []steering.Condition
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return out
}

func decodeActions(raw datatypes.JSON) []steering.Action {
	var out []steering.Action
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return out
}
