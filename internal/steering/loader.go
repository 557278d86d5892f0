package steering

import (
	"context"
	"fmt"
	"time"

	"github.com/router-for-me/RoutingEngine/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// LoadRules reads all enabled rules in priority order. Rows that fail to
// decode are skipped with a warning so one malformed rule cannot take the
// whole rule set offline.
func LoadRules(ctx context.Context, db *gorm.DB) ([]Rule, error) {
	if db == nil {
		return nil, fmt.Errorf("steering: nil db")
	}

	var rows []models.SteeringRule
	if errFind := db.WithContext(ctx).
		Where("is_enabled = ?", true).
		Order("priority ASC, id ASC").
		Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("steering: load rules: %w", errFind)
	}

	rules := make([]Rule, 0, len(rows))
	for _, row := range rows {
		rule, errDecode := RuleFromModel(row)
		if errDecode != nil {
			log.WithError(errDecode).Warnf("skipping malformed steering rule %d", row.ID)
			continue
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// Reloader refreshes the engine's rule snapshot from the database.
type Reloader struct {
	db     *gorm.DB
	engine *Engine
}

// NewReloader constructs a Reloader.
func NewReloader(db *gorm.DB, engine *Engine) *Reloader {
	return &Reloader{db: db, engine: engine}
}

// Refresh loads rules and swaps the snapshot atomically.
func (r *Reloader) Refresh(ctx context.Context) error {
	rules, errLoad := LoadRules(ctx, r.db)
	if errLoad != nil {
		return errLoad
	}
	r.engine.Replace(rules)
	return nil
}

// Start refreshes the snapshot periodically until the context is cancelled.
// A failed refresh keeps the previous snapshot.
func (r *Reloader) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if errRefresh := r.Refresh(ctx); errRefresh != nil {
					log.WithError(errRefresh).Warn("steering rule reload failed")
				}
			}
		}
	}()
}
