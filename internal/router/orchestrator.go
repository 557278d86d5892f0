// Package router composes the routing pipeline: cache lookup, steering rule
// evaluation, model selection, cache write-back, and the async audit write.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/router-for-me/RoutingEngine/internal/audit"
	"github.com/router-for-me/RoutingEngine/internal/cache"
	"github.com/router-for-me/RoutingEngine/internal/catalog"
	"github.com/router-for-me/RoutingEngine/internal/estimator"
	"github.com/router-for-me/RoutingEngine/internal/selector"
	"github.com/router-for-me/RoutingEngine/internal/steering"
	log "github.com/sirupsen/logrus"
)

// cacheSystem namespaces routing decisions in the cache key space.
const cacheSystem = "routing"

// Input is one routing request plus its cache directive.
type Input struct {
	Request  selector.Request
	Control  cache.Control
	CacheTTL time.Duration // Zero uses the cache default.
}

// Result is the routing outcome.
type Result struct {
	Response     *selector.Response
	CacheHit     bool
	ForcedByRule bool
	MatchedRules []string
}

// Orchestrator wires the pipeline stages together. It holds no per-request
// state.
type Orchestrator struct {
	cache    *cache.Store
	steering *steering.Engine
	selector *selector.Selector
	audit    *audit.Sink
	tokens   selector.TokenEstimator
	profiles ProfileLookup
}

// ProfileLookup resolves a model profile for forced targets.
type ProfileLookup interface {
	Get(modelID string) (catalog.Profile, bool)
}

// New constructs an Orchestrator. cacheStore and sink may be nil.
func New(cacheStore *cache.Store, engine *steering.Engine, sel *selector.Selector, sink *audit.Sink, tokens selector.TokenEstimator, profiles ProfileLookup) *Orchestrator {
	return &Orchestrator{
		cache:    cacheStore,
		steering: engine,
		selector: sel,
		audit:    sink,
		tokens:   tokens,
		profiles: profiles,
	}
}

// Route runs the full pipeline for one request.
func (o *Orchestrator) Route(ctx context.Context, input Input) (*Result, error) {
	req := input.Request
	if req.Content.Empty() {
		return nil, fmt.Errorf("%w: empty content", ErrValidation)
	}

	body, errMarshal := json.Marshal(req.Content)
	if errMarshal != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, errMarshal)
	}
	key := o.cacheKey(req, body)

	if input.Control == cache.ControlUse && o.cache != nil {
		if result, ok := o.readCache(ctx, key, req); ok {
			return result, nil
		}
	}

	doc := steering.BuildDocument(steering.ContextInput{
		Body:      body,
		TaskType:  req.Metadata.TaskType,
		UserID:    req.Metadata.UserID,
		TeamID:    req.Metadata.TeamID,
		OrgID:     req.Metadata.OrgID,
		RequestID: req.RequestID,
	})
	decision := o.steering.Evaluate(doc, body)
	if decision.Rejection != nil {
		return nil, &RejectionError{
			Message:    decision.Rejection.Message,
			StatusCode: decision.Rejection.StatusCode,
		}
	}

	// Transform and inject actions rewrite the outgoing content.
	if len(decision.Body) > 0 && string(decision.Body) != string(body) {
		transformed := req
		if errUnmarshal := json.Unmarshal(decision.Body, &transformed.Content); errUnmarshal == nil {
			req = transformed
		} else {
			log.WithError(errUnmarshal).Warnf("transformed body unusable for request %s, keeping original", req.RequestID)
		}
	}

	var response *selector.Response
	if decision.Forced() {
		response = o.forcedResponse(ctx, req, decision)
	} else {
		selected, errSelect := o.selector.Select(ctx, req)
		if errSelect != nil {
			return nil, errSelect
		}
		response = selected
	}

	result := &Result{
		Response:     response,
		ForcedByRule: decision.Forced(),
		MatchedRules: decision.MatchedRules,
	}

	if input.Control != cache.ControlBypass && o.cache != nil {
		// A cancelled request must not leave a partial cache write behind.
		if ctx.Err() == nil {
			o.writeCache(ctx, key, req, response, input.CacheTTL)
		}
	}

	o.audit.Record(req, response, false)
	return result, nil
}

// cacheKey fingerprints the canonical request. Caller identity is part of
// the key so one user's decision never answers another's request.
func (o *Orchestrator) cacheKey(req selector.Request, body []byte) string {
	scope := strings.Join([]string{
		req.Metadata.UserID,
		req.Metadata.TaskType,
		req.Metadata.QualityRequirement,
		req.Metadata.BudgetPriority,
		req.Constraints.PreferredModel,
	}, "|")
	fingerprint := cache.Fingerprint("/v1/select", body, map[string]string{"content-type": scope})
	return cache.Key(cacheSystem, fingerprint)
}

// readCache returns a previously cached decision, when present.
func (o *Orchestrator) readCache(ctx context.Context, key string, req selector.Request) (*Result, bool) {
	raw, ok := o.cache.Get(ctx, key)
	if !ok {
		raw, ok = o.cache.GetSimilar(ctx, req.Content.Text())
	}
	if !ok {
		return nil, false
	}

	var response selector.Response
	if errUnmarshal := json.Unmarshal(raw, &response); errUnmarshal != nil {
		log.WithError(errUnmarshal).Debugf("corrupt cached decision %s", key)
		return nil, false
	}
	response.RequestID = req.RequestID

	o.audit.Record(req, &response, true)
	return &Result{Response: &response, CacheHit: true}, true
}

// writeCache stores the decision with tags for targeted invalidation.
func (o *Orchestrator) writeCache(ctx context.Context, key string, req selector.Request, response *selector.Response, ttl time.Duration) {
	encoded, errMarshal := json.Marshal(response)
	if errMarshal != nil {
		log.WithError(errMarshal).Debugf("cache encode failed for request %s", req.RequestID)
		return
	}

	tags := []string{"model:" + strings.ToLower(response.ModelID)}
	if req.Metadata.UserID != "" {
		tags = append(tags, "user:"+req.Metadata.UserID)
	}
	o.cache.Set(ctx, key, encoded, cache.SetOptions{
		TTL:       ttl,
		Tags:      tags,
		EmbedText: req.Content.Text(),
	})
}

// forcedResponse builds a response for a rule-forced target. Cost and
// quality are best-effort; an unknown model still routes where the rule
// pointed.
func (o *Orchestrator) forcedResponse(ctx context.Context, req selector.Request, decision *steering.Decision) *selector.Response {
	response := &selector.Response{
		RequestID:    req.RequestID,
		Provider:     decision.ForcedProvider,
		ModelID:      decision.ForcedModel,
		BudgetImpact: selector.ImpactNone,
		Reasoning:    fmt.Sprintf("Routing rule forced %s.", decision.ForcedModel),
	}
	if len(decision.MatchedRules) > 0 {
		response.Reasoning = fmt.Sprintf(
			"Routing rule %s forced %s.",
			decision.MatchedRules[len(decision.MatchedRules)-1],
			decision.ForcedModel,
		)
	}

	if o.profiles == nil {
		return response
	}
	profile, found := o.profiles.Get(decision.ForcedModel)
	if !found {
		return response
	}
	if response.Provider == "" {
		response.Provider = profile.Provider
	}
	response.Currency = profile.Currency
	if o.tokens != nil {
		estimate := o.tokens.EstimateTokens(ctx, req.Content)
		response.Estimate = estimate
		response.EstimatedCost = estimator.Cost(estimate, profile)
	}
	if o.selector != nil {
		response.FallbackChain = o.selector.FallbacksFor(profile.ModelID)
	}
	return response
}
