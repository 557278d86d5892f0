// Package estimator computes token counts and estimated monetary cost for a
// request. Precise counts come from tiktoken; when the tokenizer is
// unavailable the estimator falls back to a length heuristic rather than
// failing the request.
package estimator

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	"github.com/router-for-me/RoutingEngine/internal/cache"
	"github.com/router-for-me/RoutingEngine/internal/catalog"
	log "github.com/sirupsen/logrus"
)

// Output estimation bounds when the caller does not specify max tokens.
const (
	minOutputTokens = 64
	maxOutputTokens = 4096
)

// heuristicRunesPerToken approximates tokens from text length when the
// tokenizer is unavailable.
const heuristicRunesPerToken = 4

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Content is the request payload the estimator measures.
type Content struct {
	Messages     []Message `json:"messages,omitempty"`
	Prompt       string    `json:"prompt,omitempty"`
	SystemPrompt string    `json:"system_prompt,omitempty"`
	MaxTokens    int64     `json:"max_tokens,omitempty"`
}

// Text joins all textual parts for tokenization and similarity matching.
func (c Content) Text() string {
	parts := make([]string, 0, len(c.Messages)+2)
	if c.SystemPrompt != "" {
		parts = append(parts, c.SystemPrompt)
	}
	for _, message := range c.Messages {
		parts = append(parts, message.Content)
	}
	if c.Prompt != "" {
		parts = append(parts, c.Prompt)
	}
	return strings.Join(parts, "\n")
}

// Empty reports whether there is nothing to route.
func (c Content) Empty() bool {
	return strings.TrimSpace(c.Text()) == ""
}

// Estimate holds token counts for one request.
type Estimate struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	Heuristic    bool  `json:"heuristic"` // True when the length fallback was used.
}

// ModelCost pairs a model with its estimated cost for a request.
type ModelCost struct {
	Provider string  `json:"provider"`
	ModelID  string  `json:"model_id"`
	Cost     float64 `json:"cost"`
	Currency string  `json:"currency,omitempty"`
}

// Estimator computes and memoizes token estimates.
type Estimator struct {
	enc   *tiktoken.Tiktoken
	store *cache.Store
}

// New constructs an Estimator. Tokenizer setup failure is logged and the
// estimator degrades to the heuristic.
func New(store *cache.Store) *Estimator {
	enc, errEncoding := tiktoken.GetEncoding("cl100k_base")
	if errEncoding != nil {
		log.WithError(errEncoding).Warn("tokenizer unavailable, using length heuristic")
		enc = nil
	}
	return &Estimator{enc: enc, store: store}
}

// EstimateTokens returns token counts for the content, memoized by content
// hash so repeated estimates of identical content are stable and cheap.
func (e *Estimator) EstimateTokens(ctx context.Context, content Content) Estimate {
	text := content.Text()
	key := cache.Key("estimate", cache.Fingerprint("/internal/estimate", []byte(text), nil))

	if e.store != nil {
		if raw, ok := e.store.Get(ctx, key); ok {
			var memoized Estimate
			if errUnmarshal := json.Unmarshal(raw, &memoized); errUnmarshal == nil {
				return applyOutputBound(memoized, content.MaxTokens)
			}
		}
	}

	estimate := e.compute(text)
	if e.store != nil {
		if encoded, errMarshal := json.Marshal(estimate); errMarshal == nil {
			e.store.Set(ctx, key, encoded, cache.SetOptions{Tags: []string{"estimate"}})
		}
	}
	return applyOutputBound(estimate, content.MaxTokens)
}

// compute derives an estimate from raw text.
func (e *Estimator) compute(text string) Estimate {
	if e.enc != nil {
		inputTokens := int64(len(e.enc.Encode(text, nil, nil)))
		return Estimate{InputTokens: inputTokens, OutputTokens: defaultOutputTokens(inputTokens)}
	}

	inputTokens := int64(utf8.RuneCountInString(text)/heuristicRunesPerToken) + 1
	return Estimate{
		InputTokens:  inputTokens,
		OutputTokens: defaultOutputTokens(inputTokens),
		Heuristic:    true,
	}
}

// defaultOutputTokens estimates the response size from the input size.
func defaultOutputTokens(inputTokens int64) int64 {
	outputTokens := inputTokens / 2
	if outputTokens < minOutputTokens {
		outputTokens = minOutputTokens
	}
	if outputTokens > maxOutputTokens {
		outputTokens = maxOutputTokens
	}
	return outputTokens
}

// applyOutputBound honors an explicit caller max_tokens.
func applyOutputBound(estimate Estimate, maxTokens int64) Estimate {
	if maxTokens > 0 {
		estimate.OutputTokens = maxTokens
	}
	return estimate
}

// Cost computes the estimated monetary cost for a profile, with per-1K rates.
func Cost(estimate Estimate, profile catalog.Profile) float64 {
	return float64(estimate.InputTokens)/1000*profile.InputTokenRate +
		float64(estimate.OutputTokens)/1000*profile.OutputTokenRate
}

// CostMicros converts a cost amount to integer micros for persistence.
func CostMicros(cost float64) int64 {
	return int64(cost * 1_000_000)
}

// EstimateAll returns per-model costs sorted ascending. When modelIDs is
// non-empty, only those models are included.
func (e *Estimator) EstimateAll(ctx context.Context, content Content, profiles []catalog.Profile, modelIDs []string) []ModelCost {
	estimate := e.EstimateTokens(ctx, content)

	wanted := make(map[string]struct{}, len(modelIDs))
	for _, id := range modelIDs {
		wanted[strings.ToLower(strings.TrimSpace(id))] = struct{}{}
	}

	out := make([]ModelCost, 0, len(profiles))
	for _, profile := range profiles {
		if len(wanted) > 0 {
			if _, ok := wanted[strings.ToLower(profile.ModelID)]; !ok {
				continue
			}
		}
		out = append(out, ModelCost{
			Provider: profile.Provider,
			ModelID:  profile.ModelID,
			Cost:     Cost(estimate, profile),
			Currency: profile.Currency,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Cost < out[j].Cost })
	return out
}
