// Package steering evaluates declarative condition/action rules against a
// request context. Rules can force a routing target, transform or inject
// request fields, or reject the request outright, independent of cost
// optimization.
package steering

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/router-for-me/RoutingEngine/internal/models"
)

// Condition operators.
const (
	OpEquals      = "equals"
	OpNotEquals   = "not_equals"
	OpContains    = "contains"
	OpNotContains = "not_contains"
	OpRegex       = "regex"
	OpGt          = "gt"
	OpLt          = "lt"
	OpGte         = "gte"
	OpLte         = "lte"
	OpIn          = "in"
	OpNotIn       = "not_in"
	OpExists      = "exists"
	OpNotExists   = "not_exists"
)

// Action types.
const (
	ActionRoute     = "route"
	ActionTransform = "transform"
	ActionInject    = "inject"
	ActionReject    = "reject"
	ActionLog       = "log"
)

// Transform operations.
const (
	TransformReplace = "replace"
	TransformAppend  = "append"
	TransformPrepend = "prepend"
	TransformDelete  = "delete"
)

// Combinators.
const (
	CombinatorAnd = "and"
	CombinatorOr  = "or"
)

// Condition tests one field of the request context.
type Condition struct {
	Field    string `json:"field"`    // Dotted path into the context document.
	Operator string `json:"operator"` // One of the Op constants.
	Value    any    `json:"value,omitempty"`
}

// Action is one effect of a matched rule. Fields are used per action type.
type Action struct {
	Type string `json:"type"`

	// route
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`

	// transform / inject
	Field     string `json:"field,omitempty"`
	Operation string `json:"operation,omitempty"`
	Value     any    `json:"value,omitempty"`

	// reject
	Message    string `json:"message,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`

	// log
	Level string `json:"level,omitempty"`
}

// Rule is the decoded, immutable form of a steering rule.
type Rule struct {
	ID                 uint64
	Name               string
	Priority           int
	Combinator         string
	Conditions         []Condition
	Actions            []Action
	ContinueEvaluation bool
	Tags               []string
}

// RuleFromModel decodes a persistence row into a Rule.
func RuleFromModel(row models.SteeringRule) (Rule, error) {
	rule := Rule{
		ID:                 row.ID,
		Name:               strings.TrimSpace(row.Name),
		Priority:           row.Priority,
		Combinator:         strings.ToLower(strings.TrimSpace(row.Combinator)),
		ContinueEvaluation: row.ContinueEvaluation,
	}
	if rule.Combinator != CombinatorOr {
		rule.Combinator = CombinatorAnd
	}
	if len(row.Conditions) > 0 {
		if errUnmarshal := json.Unmarshal(row.Conditions, &rule.Conditions); errUnmarshal != nil {
			return Rule{}, fmt.Errorf("steering: rule %d conditions: %w", row.ID, errUnmarshal)
		}
	}
	if len(row.Actions) > 0 {
		if errUnmarshal := json.Unmarshal(row.Actions, &rule.Actions); errUnmarshal != nil {
			return Rule{}, fmt.Errorf("steering: rule %d actions: %w", row.ID, errUnmarshal)
		}
	}
	if len(row.Tags) > 0 {
		_ = json.Unmarshal(row.Tags, &rule.Tags)
	}
	return rule, nil
}
