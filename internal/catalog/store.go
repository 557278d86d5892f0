// Package catalog maintains an in-memory snapshot of model profiles loaded
// from the relational store. The engine never writes profiles; an external
// catalog process owns them.
package catalog

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/router-for-me/RoutingEngine/internal/models"
)

// Profile is the decoded, read-only view of a model profile used during
// selection.
type Profile struct {
	Provider          string
	ModelID           string
	InputTokenRate    float64 // Price per 1K input tokens.
	OutputTokenRate   float64 // Price per 1K output tokens.
	Currency          string
	Capabilities      []string
	QualityScores     map[string]float64 // Task type to 0..100 score.
	AverageLatencyMs  int64
	Throughput        float64
	Enabled           bool
	KnownAlternatives []string
}

// HasCapability reports whether the profile declares a capability.
func (p Profile) HasCapability(name string) bool {
	for _, capability := range p.Capabilities {
		if strings.EqualFold(capability, name) {
			return true
		}
	}
	return false
}

// FromModel decodes a persistence row into a Profile.
func FromModel(row models.ModelProfile) Profile {
	profile := Profile{
		Provider:         strings.TrimSpace(row.Provider),
		ModelID:          strings.TrimSpace(row.ModelID),
		InputTokenRate:   row.InputTokenRate,
		OutputTokenRate:  row.OutputTokenRate,
		Currency:         strings.TrimSpace(row.Currency),
		AverageLatencyMs: row.AverageLatencyMs,
		Throughput:       row.Throughput,
		Enabled:          row.IsEnabled,
	}
	if len(row.Capabilities) > 0 {
		_ = json.Unmarshal(row.Capabilities, &profile.Capabilities)
	}
	if len(row.QualityScores) > 0 {
		_ = json.Unmarshal(row.QualityScores, &profile.QualityScores)
	}
	if len(row.KnownAlternatives) > 0 {
		_ = json.Unmarshal(row.KnownAlternatives, &profile.KnownAlternatives)
	}
	return profile
}

// Store holds the current profile snapshot.
type Store struct {
	mu       sync.RWMutex
	profiles []Profile
	byModel  map[string]int // lower(modelID) -> index into profiles
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{byModel: make(map[string]int)}
}

// ReplaceAll swaps the snapshot. Input order is preserved; the selector's
// tie-break depends on it.
func (s *Store) ReplaceAll(profiles []Profile) {
	next := make([]Profile, 0, len(profiles))
	index := make(map[string]int, len(profiles))
	for _, profile := range profiles {
		if profile.ModelID == "" {
			continue
		}
		key := strings.ToLower(profile.ModelID)
		if _, exists := index[key]; exists {
			continue
		}
		index[key] = len(next)
		next = append(next, profile)
	}

	s.mu.Lock()
	s.profiles = next
	s.byModel = index
	s.mu.Unlock()
}

// Enabled returns the enabled profiles in snapshot order.
func (s *Store) Enabled() []Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Profile, 0, len(s.profiles))
	for _, profile := range s.profiles {
		if profile.Enabled {
			out = append(out, profile)
		}
	}
	return out
}

// Get returns a profile by model ID, case-insensitively.
func (s *Store) Get(modelID string) (Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byModel[strings.ToLower(strings.TrimSpace(modelID))]
	if !ok {
		return Profile{}, false
	}
	return s.profiles[idx], true
}

// Size returns the number of profiles in the snapshot.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.profiles)
}
