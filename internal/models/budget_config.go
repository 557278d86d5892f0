package models

import "time"

// Budget scope types, from narrowest to widest.
const (
	// ScopeUser limits spend for a single user.
	ScopeUser = "user"
	// ScopeTeam limits spend for a team.
	ScopeTeam = "team"
	// ScopeOrganization limits spend for a whole organization.
	ScopeOrganization = "organization"
)

// BudgetConfig defines a soft spend limit for a user, team, or organization.
type BudgetConfig struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	ScopeType string `gorm:"type:text;not null;uniqueIndex:idx_budget_configs_scope"` // user, team, or organization.
	ScopeID   string `gorm:"type:text;not null;uniqueIndex:idx_budget_configs_scope"` // Scope entity identifier.

	LimitAmount          float64 `gorm:"not null;default:0"`  // Spend limit for the period.
	WarningThresholdPct  float64 `gorm:"not null;default:70"` // Percent used that triggers warning.
	CriticalThresholdPct float64 `gorm:"not null;default:90"` // Percent used that triggers critical.

	IsEnabled bool `gorm:"not null;default:true"` // Whether the budget is active.

	PeriodStart time.Time `gorm:"not null"` // Start of the spend aggregation window.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TableName overrides the default table name.
func (BudgetConfig) TableName() string {
	return "budget_configs"
}
