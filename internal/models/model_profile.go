package models

import (
	"time"

	"gorm.io/datatypes"
)

// ModelProfile describes cost and quality characteristics of a provider model.
// Profiles are maintained by an external catalog process; the engine only reads them.
type ModelProfile struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Provider string `gorm:"type:text;not null;uniqueIndex:idx_model_profiles_provider_model"` // Provider name.
	ModelID  string `gorm:"type:text;not null;uniqueIndex:idx_model_profiles_provider_model"` // Model identifier.

	InputTokenRate  float64 `gorm:"not null;default:0"`            // Price per 1K input tokens.
	OutputTokenRate float64 `gorm:"not null;default:0"`            // Price per 1K output tokens.
	Currency        string  `gorm:"type:text;not null;default:''"` // ISO currency code.

	Capabilities  datatypes.JSON `gorm:"type:jsonb"` // Capability name array.
	QualityScores datatypes.JSON `gorm:"type:jsonb"` // Task type to 0..100 score map.

	AverageLatencyMs int64   `gorm:"not null;default:0"` // Average response latency.
	Throughput       float64 `gorm:"not null;default:0"` // Tokens per second.

	IsEnabled bool `gorm:"not null;default:true;index"` // Whether the model is selectable.

	KnownAlternatives datatypes.JSON `gorm:"type:jsonb"` // Curated alternative model IDs.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TableName overrides the default table name.
func (ModelProfile) TableName() string {
	return "model_profiles"
}
