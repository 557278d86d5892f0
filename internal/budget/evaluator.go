// Package budget derives a per-request budget status from configured limits
// and an eventually-consistent spend aggregate. Spend is read as a
// point-in-time SUM with no locking; two concurrent requests near a threshold
// may both be admitted before the aggregate reflects either. That soft-budget
// behavior is intentional.
package budget

import (
	"context"
	"errors"
	"strings"

	"github.com/router-for-me/RoutingEngine/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Status classifies spend pressure against a budget limit.
type Status string

// Budget statuses ordered by severity.
const (
	StatusNormal   Status = "normal"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
	StatusExceeded Status = "exceeded"
)

// Evaluation is the derived budget state for one request. It is recomputed
// per request and never cached.
type Evaluation struct {
	ScopeType    string
	ScopeID      string
	CurrentSpend float64
	LimitAmount  float64
	PercentUsed  float64
	Remaining    float64
	Status       Status
}

// Evaluator resolves budget scope and computes status.
type Evaluator struct {
	db *gorm.DB
}

// NewEvaluator constructs an Evaluator.
func NewEvaluator(db *gorm.DB) *Evaluator {
	return &Evaluator{db: db}
}

// Evaluate resolves the narrowest configured scope (user > team >
// organization) and returns its status. A nil evaluation with nil error means
// no budget constrains this request. Store failures degrade to unconstrained
// and are logged, never surfaced.
func (e *Evaluator) Evaluate(ctx context.Context, userID, teamID, orgID string) *Evaluation {
	if e == nil || e.db == nil {
		return nil
	}

	scopes := []struct {
		scopeType string
		scopeID   string
	}{
		{models.ScopeUser, strings.TrimSpace(userID)},
		{models.ScopeTeam, strings.TrimSpace(teamID)},
		{models.ScopeOrganization, strings.TrimSpace(orgID)},
	}

	for _, scope := range scopes {
		if scope.scopeID == "" {
			continue
		}
		cfg, errFind := e.findConfig(ctx, scope.scopeType, scope.scopeID)
		if errFind != nil {
			log.WithError(errFind).Warnf("budget lookup for %s %s degraded, proceeding unconstrained", scope.scopeType, scope.scopeID)
			return nil
		}
		if cfg == nil {
			continue
		}

		spend, errSpend := e.currentSpend(ctx, cfg)
		if errSpend != nil {
			log.WithError(errSpend).Warnf("spend aggregate for %s %s degraded, proceeding unconstrained", scope.scopeType, scope.scopeID)
			return nil
		}
		return derive(cfg, spend)
	}
	return nil
}

// findConfig loads the enabled budget config for a scope, if any.
func (e *Evaluator) findConfig(ctx context.Context, scopeType, scopeID string) (*models.BudgetConfig, error) {
	var cfg models.BudgetConfig
	errFind := e.db.WithContext(ctx).
		Where("scope_type = ? AND scope_id = ? AND is_enabled = ?", scopeType, scopeID, true).
		First(&cfg).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errFind
	}
	return &cfg, nil
}

// currentSpend sums usage cost for the config's scope and period.
func (e *Evaluator) currentSpend(ctx context.Context, cfg *models.BudgetConfig) (float64, error) {
	scopeColumn := ""
	switch cfg.ScopeType {
	case models.ScopeUser:
		scopeColumn = "user_id"
	case models.ScopeTeam:
		scopeColumn = "team_id"
	case models.ScopeOrganization:
		scopeColumn = "org_id"
	default:
		return 0, nil
	}

	var totalMicros int64
	errSum := e.db.WithContext(ctx).
		Model(&models.Usage{}).
		Select("COALESCE(SUM(cost_micros), 0)").
		Where(scopeColumn+" = ? AND requested_at >= ?", cfg.ScopeID, cfg.PeriodStart).
		Scan(&totalMicros).Error
	if errSum != nil {
		return 0, errSum
	}
	return float64(totalMicros) / 1_000_000, nil
}

// derive computes the status fields from a config and current spend.
func derive(cfg *models.BudgetConfig, spend float64) *Evaluation {
	eval := &Evaluation{
		ScopeType:    cfg.ScopeType,
		ScopeID:      cfg.ScopeID,
		CurrentSpend: spend,
		LimitAmount:  cfg.LimitAmount,
		Remaining:    cfg.LimitAmount - spend,
	}
	if eval.Remaining < 0 {
		eval.Remaining = 0
	}
	if cfg.LimitAmount > 0 {
		eval.PercentUsed = spend / cfg.LimitAmount * 100
	}

	switch {
	case cfg.LimitAmount > 0 && eval.PercentUsed >= 100:
		eval.Status = StatusExceeded
	case cfg.LimitAmount > 0 && eval.PercentUsed >= cfg.CriticalThresholdPct:
		eval.Status = StatusCritical
	case cfg.LimitAmount > 0 && eval.PercentUsed >= cfg.WarningThresholdPct:
		eval.Status = StatusWarning
	default:
		eval.Status = StatusNormal
	}
	return eval
}
