// Package cache implements the two-tier request/response cache: a bounded
// process-local tier in front of a shared Redis tier. Shared-tier failures
// degrade to local-only behavior and are never surfaced to callers.
package cache

import (
	"context"
	"encoding/json"
	"path"
	"time"

	log "github.com/sirupsen/logrus"
)

// Redis key namespaces.
const (
	sharedKeyPrefix = "cre:cache:"
	sharedTagPrefix = "cre:cachetag:"
)

// Control selects the caller-supplied cache behavior for one request.
type Control string

// Cache control modes.
const (
	// ControlUse reads the cache and writes on miss. This is the default.
	ControlUse Control = "use"
	// ControlBypass skips both the read and the write.
	ControlBypass Control = "bypass"
	// ControlUpdate skips the read, recomputes, and writes the result.
	ControlUpdate Control = "update"
)

// ParseControl maps a directive string to a Control, defaulting to use.
func ParseControl(value string) Control {
	switch Control(value) {
	case ControlBypass:
		return ControlBypass
	case ControlUpdate:
		return ControlUpdate
	default:
		return ControlUse
	}
}

// entryEnvelope is the JSON record persisted to the shared tier.
type entryEnvelope struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	Tags      []string        `json:"tags,omitempty"`
	ExpiresAt time.Time       `json:"expires_at,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// SetOptions carries per-write cache options.
type SetOptions struct {
	TTL       time.Duration // Zero uses the store default.
	Tags      []string      // Tags for bulk invalidation.
	EmbedText string        // Text to embed for similarity lookups, when set.
}

// Options configures a Store.
type Options struct {
	LocalMaxEntries     int
	DefaultTTL          time.Duration
	SimilarityThreshold float64
	Shared              SharedClient // Nil disables the shared tier.
	Embedder            Embedder     // Nil disables similarity matching.
}

// Store is the two-tier cache.
type Store struct {
	local        *localCache
	shared       SharedClient
	defaultTTL   time.Duration
	simThreshold float64
	embedder     Embedder
}

// NewStore constructs a Store from options.
func NewStore(opts Options) *Store {
	threshold := opts.SimilarityThreshold
	if threshold <= 0 || threshold > 1 {
		threshold = 0.92
	}
	ttl := opts.DefaultTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Store{
		local:        newLocalCache(opts.LocalMaxEntries),
		shared:       opts.Shared,
		defaultTTL:   ttl,
		simThreshold: threshold,
		embedder:     opts.Embedder,
	}
}

// Get checks the local tier first, then the shared tier. Shared hits
// repopulate the local tier. Shared-tier errors are treated as misses.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool) {
	if value, ok := s.local.get(key); ok {
		return value, true
	}
	if s.shared == nil {
		return nil, false
	}

	raw, ok, errGet := s.shared.Get(ctx, sharedKeyPrefix+key)
	if errGet != nil {
		log.WithError(errGet).Debugf("cache: shared get %s degraded to miss", key)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var envelope entryEnvelope
	if errUnmarshal := json.Unmarshal(raw, &envelope); errUnmarshal != nil {
		log.WithError(errUnmarshal).Debugf("cache: corrupt shared entry %s", key)
		return nil, false
	}
	if !envelope.ExpiresAt.IsZero() && time.Now().After(envelope.ExpiresAt) {
		return nil, false
	}

	s.local.set(key, &localEntry{
		value:     envelope.Value,
		tags:      envelope.Tags,
		expiresAt: envelope.ExpiresAt,
	})
	return envelope.Value, true
}

// GetSimilar returns the nearest cached value whose embedding similarity
// meets the configured threshold. Without an embedder it always misses.
func (s *Store) GetSimilar(ctx context.Context, text string) ([]byte, bool) {
	if s.embedder == nil || text == "" {
		return nil, false
	}
	embedding, errEmbed := s.embedder.Embed(ctx, text)
	if errEmbed != nil {
		log.WithError(errEmbed).Debug("cache: embedding failed, similarity lookup skipped")
		return nil, false
	}
	return s.local.similar(embedding, s.simThreshold)
}

// Set writes through to both tiers. Shared-tier failures are logged and ignored.
func (s *Store) Set(ctx context.Context, key string, value []byte, opts SetOptions) {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	now := time.Now()
	expiresAt := now.Add(ttl)

	entry := &localEntry{
		value:     value,
		tags:      opts.Tags,
		expiresAt: expiresAt,
	}
	if s.embedder != nil && opts.EmbedText != "" {
		if embedding, errEmbed := s.embedder.Embed(ctx, opts.EmbedText); errEmbed == nil {
			entry.embedding = embedding
		}
	}
	s.local.set(key, entry)

	if s.shared == nil {
		return
	}
	envelope := entryEnvelope{
		Key:       key,
		Value:     value,
		Tags:      opts.Tags,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}
	encoded, errMarshal := json.Marshal(envelope)
	if errMarshal != nil {
		log.WithError(errMarshal).Debugf("cache: marshal entry %s", key)
		return
	}
	if errSet := s.shared.Set(ctx, sharedKeyPrefix+key, encoded, ttl); errSet != nil {
		log.WithError(errSet).Debugf("cache: shared set %s skipped", key)
		return
	}
	for _, tag := range opts.Tags {
		if errTag := s.shared.AddToSet(ctx, sharedTagPrefix+tag, sharedKeyPrefix+key); errTag != nil {
			log.WithError(errTag).Debugf("cache: tag index %s skipped", tag)
		}
	}
}

// InvalidateByTag removes every entry carrying the tag from both tiers.
func (s *Store) InvalidateByTag(ctx context.Context, tag string) int {
	localRemoved := s.local.removeMatch(func(_ string, entry *localEntry) bool {
		for _, candidate := range entry.tags {
			if candidate == tag {
				return true
			}
		}
		return false
	})

	if s.shared == nil {
		return localRemoved
	}
	members, errMembers := s.shared.SetMembers(ctx, sharedTagPrefix+tag)
	if errMembers != nil {
		log.WithError(errMembers).Debugf("cache: tag members %s unavailable", tag)
		return localRemoved
	}
	sharedRemoved := int64(0)
	if len(members) > 0 {
		removed, errDel := s.shared.Del(ctx, members...)
		if errDel != nil {
			log.WithError(errDel).Debugf("cache: tag delete %s failed", tag)
		} else {
			sharedRemoved = removed
		}
	}
	if _, errDelSet := s.shared.Del(ctx, sharedTagPrefix+tag); errDelSet != nil {
		log.WithError(errDelSet).Debugf("cache: tag set delete %s failed", tag)
	}

	if int(sharedRemoved) > localRemoved {
		return int(sharedRemoved)
	}
	return localRemoved
}

// InvalidateBySystem removes every entry under a system namespace.
func (s *Store) InvalidateBySystem(ctx context.Context, system string) int {
	return s.InvalidatePattern(ctx, system+":*")
}

// InvalidatePattern removes entries whose keys match a glob pattern.
func (s *Store) InvalidatePattern(ctx context.Context, pattern string) int {
	localRemoved := s.local.removeMatch(func(key string, _ *localEntry) bool {
		matched, errMatch := path.Match(pattern, key)
		return errMatch == nil && matched
	})

	if s.shared == nil {
		return localRemoved
	}
	keys, errKeys := s.shared.Keys(ctx, sharedKeyPrefix+pattern)
	if errKeys != nil {
		log.WithError(errKeys).Debugf("cache: pattern scan %s unavailable", pattern)
		return localRemoved
	}
	sharedRemoved := int64(0)
	if len(keys) > 0 {
		removed, errDel := s.shared.Del(ctx, keys...)
		if errDel != nil {
			log.WithError(errDel).Debugf("cache: pattern delete %s failed", pattern)
		} else {
			sharedRemoved = removed
		}
	}

	if int(sharedRemoved) > localRemoved {
		return int(sharedRemoved)
	}
	return localRemoved
}
