package cache

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeShared is an in-memory SharedClient for tests.
type fakeShared struct {
	mu     sync.Mutex
	values map[string][]byte
	sets   map[string]map[string]struct{}
	fail   bool
}

func newFakeShared() *fakeShared {
	return &fakeShared{
		values: make(map[string][]byte),
		sets:   make(map[string]map[string]struct{}),
	}
}

func (f *fakeShared) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, false, errors.New("shared tier down")
	}
	value, ok := f.values[key]
	return value, ok, nil
}

func (f *fakeShared) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("shared tier down")
	}
	f.values[key] = value
	return nil
}

func (f *fakeShared) Del(_ context.Context, keys ...string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return 0, errors.New("shared tier down")
	}
	var removed int64
	for _, key := range keys {
		if _, ok := f.values[key]; ok {
			delete(f.values, key)
			removed++
		}
		delete(f.sets, key)
	}
	return removed, nil
}

func (f *fakeShared) AddToSet(_ context.Context, set string, members ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("shared tier down")
	}
	if f.sets[set] == nil {
		f.sets[set] = make(map[string]struct{})
	}
	for _, member := range members {
		f.sets[set][member] = struct{}{}
	}
	return nil
}

func (f *fakeShared) SetMembers(_ context.Context, set string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errors.New("shared tier down")
	}
	members := make([]string, 0, len(f.sets[set]))
	for member := range f.sets[set] {
		members = append(members, member)
	}
	return members, nil
}

func (f *fakeShared) Keys(_ context.Context, pattern string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errors.New("shared tier down")
	}
	var out []string
	for key := range f.values {
		if matched, _ := path.Match(pattern, key); matched {
			out = append(out, key)
		}
	}
	return out, nil
}

func TestSetGetRoundTrip(t *testing.T) {
	store := NewStore(Options{Shared: newFakeShared()})
	ctx := context.Background()

	store.Set(ctx, "routing:v1:abc", []byte(`{"model":"gpt-4"}`), SetOptions{})
	value, ok := store.Get(ctx, "routing:v1:abc")
	if !ok {
		t.Fatalf("expected hit after set")
	}
	if string(value) != `{"model":"gpt-4"}` {
		t.Fatalf("unexpected value %s", value)
	}
}

func TestSharedHitRepopulatesLocalTier(t *testing.T) {
	shared := newFakeShared()
	writer := NewStore(Options{Shared: shared})
	reader := NewStore(Options{Shared: shared})
	ctx := context.Background()

	writer.Set(ctx, "routing:v1:k", []byte("cached"), SetOptions{})

	if _, ok := reader.Get(ctx, "routing:v1:k"); !ok {
		t.Fatalf("expected shared-tier hit")
	}
	if reader.local.size() != 1 {
		t.Fatalf("expected local repopulation, local size %d", reader.local.size())
	}

	// A shared outage after repopulation must not hide the local copy.
	shared.fail = true
	if _, ok := reader.Get(ctx, "routing:v1:k"); !ok {
		t.Fatalf("expected local hit during shared outage")
	}
}

func TestSharedOutageDegradesSilently(t *testing.T) {
	shared := newFakeShared()
	shared.fail = true
	store := NewStore(Options{Shared: shared})
	ctx := context.Background()

	if _, ok := store.Get(ctx, "routing:v1:missing"); ok {
		t.Fatalf("expected miss during outage")
	}

	// Writes still land locally.
	store.Set(ctx, "routing:v1:k", []byte("v"), SetOptions{})
	if _, ok := store.Get(ctx, "routing:v1:k"); !ok {
		t.Fatalf("expected local hit after degraded write")
	}
}

func TestInvalidateByTag(t *testing.T) {
	store := NewStore(Options{Shared: newFakeShared()})
	ctx := context.Background()

	store.Set(ctx, "routing:v1:a", []byte("a"), SetOptions{Tags: []string{"user:42"}})
	store.Set(ctx, "routing:v1:b", []byte("b"), SetOptions{Tags: []string{"user:42"}})
	store.Set(ctx, "routing:v1:c", []byte("c"), SetOptions{Tags: []string{"user:7"}})

	if removed := store.InvalidateByTag(ctx, "user:42"); removed != 2 {
		t.Fatalf("expected 2 removals, got %d", removed)
	}
	if _, ok := store.Get(ctx, "routing:v1:a"); ok {
		t.Fatalf("tagged entry survived invalidation")
	}
	if _, ok := store.Get(ctx, "routing:v1:c"); !ok {
		t.Fatalf("unrelated entry was invalidated")
	}
}

func TestInvalidateBySystem(t *testing.T) {
	store := NewStore(Options{Shared: newFakeShared()})
	ctx := context.Background()

	store.Set(ctx, "routing:v1:a", []byte("a"), SetOptions{})
	store.Set(ctx, "estimate:v1:b", []byte("b"), SetOptions{})

	if removed := store.InvalidateBySystem(ctx, "routing"); removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}
	if _, ok := store.Get(ctx, "estimate:v1:b"); !ok {
		t.Fatalf("other system entry was invalidated")
	}
}

func TestLocalEvictionBatch(t *testing.T) {
	local := newLocalCache(100)
	for i := 0; i < 101; i++ {
		local.set(fmt.Sprintf("k%03d", i), &localEntry{value: []byte("v")})
	}

	// Inserting past capacity evicts a 10% batch of the oldest entries.
	if got := local.size(); got != 91 {
		t.Fatalf("expected 91 entries after eviction, got %d", got)
	}
	if _, ok := local.get("k000"); ok {
		t.Fatalf("oldest entry survived eviction")
	}
	if _, ok := local.get("k100"); !ok {
		t.Fatalf("newest entry was evicted")
	}
}

func TestParseControlDefaultsToUse(t *testing.T) {
	cases := map[string]Control{
		"bypass":  ControlBypass,
		"update":  ControlUpdate,
		"use":     ControlUse,
		"":        ControlUse,
		"unknown": ControlUse,
	}
	for input, expected := range cases {
		if got := ParseControl(input); got != expected {
			t.Fatalf("parse %q: expected %s, got %s", input, expected, got)
		}
	}
}

// staticEmbedder returns fixed vectors keyed by substring.
type staticEmbedder struct{}

func (staticEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	if strings.Contains(text, "capital of france") {
		return []float64{1, 0.1, 0}, nil
	}
	if strings.Contains(text, "france capital") {
		return []float64{0.98, 0.12, 0.01}, nil
	}
	return []float64{0, 0, 1}, nil
}

func TestGetSimilarMatchesAboveThreshold(t *testing.T) {
	store := NewStore(Options{Embedder: staticEmbedder{}, SimilarityThreshold: 0.92})
	ctx := context.Background()

	store.Set(ctx, "routing:v1:a", []byte("paris"), SetOptions{EmbedText: "capital of france"})

	if value, ok := store.GetSimilar(ctx, "france capital"); !ok || string(value) != "paris" {
		t.Fatalf("expected similarity hit, got ok=%v value=%s", ok, value)
	}
	if _, ok := store.GetSimilar(ctx, "weather tomorrow"); ok {
		t.Fatalf("expected similarity miss for unrelated text")
	}
}

func TestGetSimilarWithoutEmbedderMisses(t *testing.T) {
	store := NewStore(Options{})
	if _, ok := store.GetSimilar(context.Background(), "anything"); ok {
		t.Fatalf("expected miss without embedder")
	}
}
