package models

import "time"

// Usage records metered spend for one completed provider call.
// Rows are written by the external metering pipeline once a provider call
// finishes; the budget evaluator only aggregates over them.
type Usage struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID string `gorm:"type:text;index"` // Spending user.
	TeamID string `gorm:"type:text;index"` // Spending team.
	OrgID  string `gorm:"type:text;index"` // Spending organization.

	Provider string `gorm:"type:text;not null;index"` // Provider name.
	Model    string `gorm:"type:text;not null;index"` // Model name.

	InputTokens  int64 `gorm:"not null;default:0"` // Input token count.
	OutputTokens int64 `gorm:"not null;default:0"` // Output token count.
	TotalTokens  int64 `gorm:"not null;default:0"` // Total token count.

	CostMicros int64 `gorm:"not null;default:0"` // Cost in micros.

	RequestedAt time.Time `gorm:"not null;index"` // Request timestamp.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

// TableName overrides the default table name.
func (Usage) TableName() string {
	return "usages"
}
