package models

import (
	"time"

	"gorm.io/datatypes"
)

// SelectionRecord is the append-only audit trail of routing decisions.
// Rows are written best-effort by the audit sink; readers are external.
type SelectionRecord struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	RequestID string `gorm:"type:text;not null;index"` // Request correlation ID.

	UserID string `gorm:"type:text;index"` // Requesting user, when known.
	TeamID string `gorm:"type:text;index"` // Requesting team, when known.
	OrgID  string `gorm:"type:text;index"` // Requesting organization, when known.

	TaskType string `gorm:"type:text"` // Requested task type.

	Provider string `gorm:"type:text;not null;index"` // Selected provider.
	Model    string `gorm:"type:text;not null;index"` // Selected model.

	EstimatedCostMicros int64   `gorm:"not null;default:0"` // Estimated cost in micros.
	QualityScore        float64 `gorm:"not null;default:0"` // Quality score of the selection.
	BudgetStatus        string  `gorm:"type:text"`          // Budget status at decision time.
	BudgetImpact        string  `gorm:"type:text"`          // Budget impact classification.

	Reasoning string `gorm:"type:text"` // Human-readable decision rationale.

	Alternatives  datatypes.JSON `gorm:"type:jsonb"` // Ranked alternative candidates.
	FallbackChain datatypes.JSON `gorm:"type:jsonb"` // Ordered retry model IDs.

	CacheHit bool `gorm:"not null;default:false"` // Whether the response came from cache.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Creation timestamp.
}

// TableName overrides the default table name.
func (SelectionRecord) TableName() string {
	return "selection_records"
}
