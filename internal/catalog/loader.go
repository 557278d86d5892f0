package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/router-for-me/RoutingEngine/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Loader refreshes the profile snapshot from the database.
type Loader struct {
	db    *gorm.DB
	store *Store
}

// NewLoader constructs a Loader.
func NewLoader(db *gorm.DB, store *Store) *Loader {
	return &Loader{db: db, store: store}
}

// Refresh reloads all profiles and swaps the snapshot.
func (l *Loader) Refresh(ctx context.Context) error {
	if l == nil || l.db == nil {
		return fmt.Errorf("catalog: nil loader")
	}

	var rows []models.ModelProfile
	if errFind := l.db.WithContext(ctx).
		Order("id ASC").
		Find(&rows).Error; errFind != nil {
		return fmt.Errorf("catalog: load profiles: %w", errFind)
	}

	profiles := make([]Profile, 0, len(rows))
	for _, row := range rows {
		profiles = append(profiles, FromModel(row))
	}
	l.store.ReplaceAll(profiles)
	return nil
}

// Start refreshes the snapshot periodically until the context is cancelled.
func (l *Loader) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if errRefresh := l.Refresh(ctx); errRefresh != nil {
					log.WithError(errRefresh).Warn("catalog refresh failed")
				}
			}
		}
	}()
}
