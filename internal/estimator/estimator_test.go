package estimator

import (
	"context"
	"testing"

	"github.com/router-for-me/RoutingEngine/internal/cache"
	"github.com/router-for-me/RoutingEngine/internal/catalog"
)

// heuristicEstimator avoids the tokenizer so tests are deterministic offline.
func heuristicEstimator(store *cache.Store) *Estimator {
	return &Estimator{store: store}
}

func TestEstimateTokensIsIdempotent(t *testing.T) {
	store := cache.NewStore(cache.Options{})
	est := heuristicEstimator(store)
	ctx := context.Background()

	content := Content{Prompt: "Summarize the quarterly report in three bullet points."}
	first := est.EstimateTokens(ctx, content)
	second := est.EstimateTokens(ctx, content)

	if first != second {
		t.Fatalf("expected identical estimates, got %+v vs %+v", first, second)
	}
	if first.InputTokens <= 0 {
		t.Fatalf("expected positive input tokens, got %d", first.InputTokens)
	}
}

func TestHeuristicFallbackIsFlagged(t *testing.T) {
	est := heuristicEstimator(nil)
	estimate := est.EstimateTokens(context.Background(), Content{Prompt: "hello world"})
	if !estimate.Heuristic {
		t.Fatalf("expected heuristic flag without tokenizer")
	}
}

func TestExplicitMaxTokensOverridesOutputEstimate(t *testing.T) {
	est := heuristicEstimator(nil)
	estimate := est.EstimateTokens(context.Background(), Content{Prompt: "hi", MaxTokens: 1234})
	if estimate.OutputTokens != 1234 {
		t.Fatalf("expected 1234 output tokens, got %d", estimate.OutputTokens)
	}
}

func TestDefaultOutputTokensBounds(t *testing.T) {
	if got := defaultOutputTokens(10); got != minOutputTokens {
		t.Fatalf("expected floor %d, got %d", minOutputTokens, got)
	}
	if got := defaultOutputTokens(100000); got != maxOutputTokens {
		t.Fatalf("expected cap %d, got %d", maxOutputTokens, got)
	}
	if got := defaultOutputTokens(1000); got != 500 {
		t.Fatalf("expected 500, got %d", got)
	}
}

func TestEstimateAllSortedAscending(t *testing.T) {
	est := heuristicEstimator(nil)
	profiles := []catalog.Profile{
		{Provider: "openai", ModelID: "gpt-4", InputTokenRate: 0.03, OutputTokenRate: 0.06, Enabled: true},
		{Provider: "openai", ModelID: "gpt-3.5-turbo", InputTokenRate: 0.0005, OutputTokenRate: 0.0015, Enabled: true},
		{Provider: "anthropic", ModelID: "claude-3-haiku", InputTokenRate: 0.00025, OutputTokenRate: 0.00125, Enabled: true},
	}

	costs := est.EstimateAll(context.Background(), Content{Prompt: "compare these models"}, profiles, nil)
	if len(costs) != 3 {
		t.Fatalf("expected 3 costs, got %d", len(costs))
	}
	for i := 1; i < len(costs); i++ {
		if costs[i].Cost < costs[i-1].Cost {
			t.Fatalf("costs not ascending: %v", costs)
		}
	}
}

func TestEstimateAllFiltersModelIDs(t *testing.T) {
	est := heuristicEstimator(nil)
	profiles := []catalog.Profile{
		{Provider: "openai", ModelID: "gpt-4", Enabled: true},
		{Provider: "openai", ModelID: "gpt-3.5-turbo", Enabled: true},
	}

	costs := est.EstimateAll(context.Background(), Content{Prompt: "x"}, profiles, []string{"GPT-4"})
	if len(costs) != 1 || costs[0].ModelID != "gpt-4" {
		t.Fatalf("expected only gpt-4, got %v", costs)
	}
}

func TestCostComputation(t *testing.T) {
	estimate := Estimate{InputTokens: 1000, OutputTokens: 500}
	profile := catalog.Profile{InputTokenRate: 0.03, OutputTokenRate: 0.06}

	cost := Cost(estimate, profile)
	if cost != 0.03+0.03 {
		t.Fatalf("expected 0.06, got %v", cost)
	}
	if CostMicros(cost) != 60000 {
		t.Fatalf("expected 60000 micros, got %d", CostMicros(cost))
	}
}
