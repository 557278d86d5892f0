package models

import (
	"time"

	"gorm.io/datatypes"
)

// SteeringRule stores a declarative condition/action routing rule.
// Lower priority values are evaluated first.
type SteeringRule struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name     string `gorm:"type:text;not null"`     // Human-readable rule name.
	Priority int    `gorm:"not null;default:100"`   // Evaluation order, ascending.

	Combinator string `gorm:"type:text;not null;default:'and'"` // Condition combinator: and, or.

	Conditions datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"` // Condition list payload.
	Actions    datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"` // Action list payload.

	ContinueEvaluation bool `gorm:"not null;default:false"`      // Keep evaluating lower-priority rules after a match.
	IsEnabled          bool `gorm:"not null;default:true;index"` // Whether the rule participates in evaluation.

	Tags datatypes.JSON `gorm:"type:jsonb"` // Free-form tag array.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TableName overrides the default table name.
func (SteeringRule) TableName() string {
	return "steering_rules"
}
