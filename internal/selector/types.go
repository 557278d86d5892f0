// Package selector implements cost-aware model selection: it filters a model
// catalog against request constraints, scores the survivors on quality and
// normalized cost, and produces a selection with ranked alternatives and a
// fallback chain.
package selector

import (
	"context"
	"errors"

	"github.com/router-for-me/RoutingEngine/internal/budget"
	"github.com/router-for-me/RoutingEngine/internal/catalog"
	"github.com/router-for-me/RoutingEngine/internal/estimator"
)

// ErrNoSuitableModel is returned when the catalog is empty or hard
// constraints exclude every model.
var ErrNoSuitableModel = errors.New("selector: no suitable model")

// Quality requirements, highest first.
const (
	QualityMaximum  = "maximum"
	QualityHigh     = "high"
	QualityStandard = "standard"
)

// Budget priorities.
const (
	PriorityCostSaving   = "cost-saving"
	PriorityQualityFirst = "quality-first"
	PriorityBalanced     = "balanced"
)

// Budget impact labels for a single request's cost against remaining budget.
const (
	ImpactNone     = "none"
	ImpactLow      = "low"
	ImpactModerate = "moderate"
	ImpactHigh     = "high"
)

// Metadata identifies the caller and states selection preferences.
type Metadata struct {
	UserID             string `json:"user_id,omitempty"`
	TeamID             string `json:"team_id,omitempty"`
	OrgID              string `json:"org_id,omitempty"`
	TaskType           string `json:"task_type,omitempty"`
	QualityRequirement string `json:"quality_requirement,omitempty"`
	BudgetPriority     string `json:"budget_priority,omitempty"`
}

// Constraints are caller-supplied hard limits. Nil MaxCost and MinQuality
// mean unconstrained.
type Constraints struct {
	PreferredModel       string   `json:"preferred_model,omitempty"`
	ExcludedModels       []string `json:"excluded_models,omitempty"`
	MaxCost              *float64 `json:"max_cost,omitempty"`
	MinQuality           *float64 `json:"min_quality,omitempty"`
	RequiredCapabilities []string `json:"required_capabilities,omitempty"`
}

// Request is one selection request.
type Request struct {
	RequestID   string            `json:"request_id,omitempty"`
	Content     estimator.Content `json:"content"`
	Metadata    Metadata          `json:"metadata"`
	Constraints Constraints       `json:"constraints"`
}

// Candidate is a profile still eligible for selection, annotated with its
// request-specific cost and quality. It exists only during one selection pass.
type Candidate struct {
	Profile       catalog.Profile
	EstimatedCost float64
	QualityScore  float64
	BudgetImpact  string
}

// Alternative is a non-selected candidate ranked for the response.
type Alternative struct {
	Provider          string  `json:"provider"`
	ModelID           string  `json:"model_id"`
	Reason            string  `json:"reason"`
	CostDifference    float64 `json:"cost_difference"`
	QualityDifference float64 `json:"quality_difference"`
}

// Response is the selection outcome returned to the caller and written to
// the audit sink.
type Response struct {
	RequestID          string             `json:"request_id,omitempty"`
	Provider           string             `json:"provider"`
	ModelID            string             `json:"model_id"`
	EstimatedCost      float64            `json:"estimated_cost"`
	Currency           string             `json:"currency,omitempty"`
	QualityExpectation float64            `json:"quality_expectation"`
	BudgetImpact       string             `json:"budget_impact"`
	BudgetStatus       budget.Status      `json:"budget_status,omitempty"`
	Estimate           estimator.Estimate `json:"estimate"`
	Alternatives       []Alternative      `json:"alternatives"`
	FallbackChain      []string           `json:"fallback_chain"`
	Reasoning          string             `json:"reasoning"`
}

// TokenEstimator supplies token counts for request content.
type TokenEstimator interface {
	EstimateTokens(ctx context.Context, content estimator.Content) estimator.Estimate
}

// BudgetEvaluator resolves the budget status for a scope identity. A nil
// evaluation means no budget constrains the request.
type BudgetEvaluator interface {
	Evaluate(ctx context.Context, userID, teamID, orgID string) *budget.Evaluation
}
