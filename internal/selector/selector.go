package selector

import (
	"context"
	"sort"
	"strings"

	"github.com/router-for-me/RoutingEngine/internal/budget"
	"github.com/router-for-me/RoutingEngine/internal/catalog"
	"github.com/router-for-me/RoutingEngine/internal/estimator"
	log "github.com/sirupsen/logrus"
)

// Budget-status cost ceilings applied during candidate filtering.
const (
	exceededLimitFraction  = 0.001 // Fraction of the budget limit.
	criticalRemainFraction = 0.1   // Fraction of remaining budget.
	warningRemainFraction  = 0.2
	alternativeCount       = 3
	fallbackChainLength    = 5
)

// Selector runs the selection algorithm against the live catalog snapshot.
type Selector struct {
	catalog *catalog.Store
	tokens  TokenEstimator
	budgets BudgetEvaluator
}

// New constructs a Selector. budgets may be nil when no budget store is
// configured.
func New(store *catalog.Store, tokens TokenEstimator, budgets BudgetEvaluator) *Selector {
	return &Selector{catalog: store, tokens: tokens, budgets: budgets}
}

// Select picks a model for the request. It returns ErrNoSuitableModel only
// when the enabled catalog is empty or hard constraints exclude every model;
// budget pressure and quality thresholds relax instead of failing.
func (s *Selector) Select(ctx context.Context, req Request) (*Response, error) {
	profiles := s.catalog.Enabled()
	if len(profiles) == 0 {
		return nil, ErrNoSuitableModel
	}

	estimate := s.tokens.EstimateTokens(ctx, req.Content)

	var eval *budget.Evaluation
	if s.budgets != nil {
		eval = s.budgets.Evaluate(ctx, req.Metadata.UserID, req.Metadata.TeamID, req.Metadata.OrgID)
	}

	candidates := buildCandidates(profiles, estimate, req, eval)
	if len(candidates) == 0 {
		return nil, ErrNoSuitableModel
	}

	candidates = applyBudgetFilter(candidates, eval)
	selected, ok := preferredShortCircuit(candidates, req, eval)
	if !ok {
		selected = choose(candidates, req, eval)
	}

	rest := nonSelected(candidates, selected)
	alternatives := rankAlternatives(rest, selected)
	response := &Response{
		RequestID:          req.RequestID,
		Provider:           selected.Profile.Provider,
		ModelID:            selected.Profile.ModelID,
		EstimatedCost:      selected.EstimatedCost,
		Currency:           selected.Profile.Currency,
		QualityExpectation: selected.QualityScore,
		BudgetImpact:       selected.BudgetImpact,
		Estimate:           estimate,
		Alternatives:       alternatives,
		FallbackChain:      fallbackChain(rest),
		Reasoning:          reasoning(selected, eval, req.Metadata.QualityRequirement, alternatives),
	}
	if eval != nil {
		response.BudgetStatus = eval.Status
	}
	return response, nil
}

// FallbacksFor returns the retry order for a model: its curated alternatives
// when the catalog declares them, otherwise the highest-quality enabled
// models.
func (s *Selector) FallbacksFor(modelID string) []string {
	profile, found := s.catalog.Get(modelID)
	if found && len(profile.KnownAlternatives) > 0 {
		out := make([]string, 0, len(profile.KnownAlternatives))
		for _, alternative := range profile.KnownAlternatives {
			if candidate, ok := s.catalog.Get(alternative); ok && candidate.Enabled {
				out = append(out, candidate.ModelID)
			}
		}
		if len(out) > 0 {
			return out
		}
	}

	enabled := s.catalog.Enabled()
	ranked := make([]catalog.Profile, 0, len(enabled))
	for _, candidate := range enabled {
		if strings.EqualFold(candidate.ModelID, modelID) {
			continue
		}
		ranked = append(ranked, candidate)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return qualityFor(ranked[i], "") > qualityFor(ranked[j], "")
	})
	if len(ranked) > fallbackChainLength {
		ranked = ranked[:fallbackChainLength]
	}
	out := make([]string, 0, len(ranked))
	for _, candidate := range ranked {
		out = append(out, candidate.ModelID)
	}
	return out
}

// buildCandidates applies hard constraints (capabilities, exclusions,
// maxCost, minQuality) and annotates survivors with cost and quality.
func buildCandidates(profiles []catalog.Profile, estimate estimator.Estimate, req Request, eval *budget.Evaluation) []Candidate {
	excluded := make(map[string]struct{}, len(req.Constraints.ExcludedModels))
	for _, id := range req.Constraints.ExcludedModels {
		excluded[strings.ToLower(strings.TrimSpace(id))] = struct{}{}
	}

	out := make([]Candidate, 0, len(profiles))
	for _, profile := range profiles {
		if _, skip := excluded[strings.ToLower(profile.ModelID)]; skip {
			continue
		}
		if !hasAllCapabilities(profile, req.Constraints.RequiredCapabilities) {
			continue
		}

		cost := estimator.Cost(estimate, profile)
		quality := qualityFor(profile, req.Metadata.TaskType)
		if req.Constraints.MaxCost != nil && cost > *req.Constraints.MaxCost {
			continue
		}
		if req.Constraints.MinQuality != nil && quality < *req.Constraints.MinQuality {
			continue
		}

		out = append(out, Candidate{
			Profile:       profile,
			EstimatedCost: cost,
			QualityScore:  quality,
			BudgetImpact:  budgetImpact(cost, eval),
		})
	}
	return out
}

func hasAllCapabilities(profile catalog.Profile, required []string) bool {
	for _, capability := range required {
		if !profile.HasCapability(capability) {
			return false
		}
	}
	return true
}

// applyBudgetFilter drops candidates too expensive for the current budget
// status. An emptied set discards the filter; budget pressure must never
// leave the caller with no model.
func applyBudgetFilter(candidates []Candidate, eval *budget.Evaluation) []Candidate {
	if eval == nil || eval.Status == budget.StatusNormal {
		return candidates
	}

	var ceiling float64
	switch eval.Status {
	case budget.StatusExceeded:
		ceiling = eval.LimitAmount * exceededLimitFraction
	case budget.StatusCritical:
		ceiling = eval.Remaining * criticalRemainFraction
	case budget.StatusWarning:
		ceiling = eval.Remaining * warningRemainFraction
	default:
		return candidates
	}

	kept := make([]Candidate, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.EstimatedCost < ceiling {
			kept = append(kept, candidate)
		}
	}
	if len(kept) == 0 {
		log.Warnf("budget status %s filtered out every candidate, relaxing filter", eval.Status)
		return candidates
	}
	return kept
}

// preferredShortCircuit selects the caller's preferred model directly when
// budget pressure allows it.
func preferredShortCircuit(candidates []Candidate, req Request, eval *budget.Evaluation) (Candidate, bool) {
	preferred := strings.TrimSpace(req.Constraints.PreferredModel)
	if preferred == "" {
		return Candidate{}, false
	}

	var match *Candidate
	for i := range candidates {
		if strings.EqualFold(candidates[i].Profile.ModelID, preferred) {
			match = &candidates[i]
			break
		}
	}
	if match == nil {
		return Candidate{}, false
	}

	status := budget.StatusNormal
	if eval != nil {
		status = eval.Status
	}
	switch status {
	case budget.StatusNormal:
		return *match, true
	case budget.StatusWarning:
		if req.Metadata.BudgetPriority != PriorityCostSaving {
			return *match, true
		}
	case budget.StatusCritical:
		if req.Metadata.BudgetPriority == PriorityQualityFirst && match.BudgetImpact != ImpactHigh {
			return *match, true
		}
	}
	return Candidate{}, false
}

// choose runs weighted scoring and returns the highest-scoring candidate.
// Ties break by input order.
func choose(candidates []Candidate, req Request, eval *budget.Evaluation) Candidate {
	status := budget.StatusNormal
	if eval != nil {
		status = eval.Status
	}

	qualityWeight, costWeight := weightsFor(req.Metadata.BudgetPriority, status)

	threshold := qualityThreshold(req.Metadata.QualityRequirement, status)
	pool := make([]Candidate, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.QualityScore >= threshold {
			pool = append(pool, candidate)
		}
	}
	if len(pool) == 0 {
		log.Warnf("quality threshold %.0f filtered out every candidate, relaxing threshold", threshold)
		pool = candidates
	}

	var maxCost float64
	for _, candidate := range pool {
		if candidate.EstimatedCost > maxCost {
			maxCost = candidate.EstimatedCost
		}
	}

	best := pool[0]
	bestScore := finalScore(best, maxCost, qualityWeight, costWeight)
	for _, candidate := range pool[1:] {
		if score := finalScore(candidate, maxCost, qualityWeight, costWeight); score > bestScore {
			best = candidate
			bestScore = score
		}
	}
	return best
}

// nonSelected returns every candidate except the selection, quality
// descending.
func nonSelected(candidates []Candidate, selected Candidate) []Candidate {
	rest := make([]Candidate, 0, len(candidates))
	for _, candidate := range candidates {
		if strings.EqualFold(candidate.Profile.ModelID, selected.Profile.ModelID) {
			continue
		}
		rest = append(rest, candidate)
	}
	sort.SliceStable(rest, func(i, j int) bool { return rest[i].QualityScore > rest[j].QualityScore })
	return rest
}

// rankAlternatives annotates the top non-selected candidates relative to
// the selection.
func rankAlternatives(rest []Candidate, selected Candidate) []Alternative {
	count := len(rest)
	if count > alternativeCount {
		count = alternativeCount
	}
	out := make([]Alternative, 0, count)
	for _, candidate := range rest[:count] {
		reason := "Lower quality"
		if candidate.EstimatedCost > selected.EstimatedCost {
			reason = "Higher cost"
		}
		out = append(out, Alternative{
			Provider:          candidate.Profile.Provider,
			ModelID:           candidate.Profile.ModelID,
			Reason:            reason,
			CostDifference:    candidate.EstimatedCost - selected.EstimatedCost,
			QualityDifference: candidate.QualityScore - selected.QualityScore,
		})
	}
	return out
}

// fallbackChain lists the retry order should the primary call fail.
func fallbackChain(rest []Candidate) []string {
	count := len(rest)
	if count > fallbackChainLength {
		count = fallbackChainLength
	}
	out := make([]string, 0, count)
	for _, candidate := range rest[:count] {
		out = append(out, candidate.Profile.ModelID)
	}
	return out
}
