package selector

import (
	"strings"

	"github.com/router-for-me/RoutingEngine/internal/budget"
	"github.com/router-for-me/RoutingEngine/internal/catalog"
)

// Baseline scoring weights per budget priority.
const (
	costSavingQualityWeight   = 0.3
	qualityFirstQualityWeight = 0.7
	balancedQualityWeight     = 0.5
)

// weightsFor derives (qualityWeight, costWeight) from the budget priority,
// shifted toward cost under budget pressure and renormalized to sum to 1.
func weightsFor(budgetPriority string, status budget.Status) (float64, float64) {
	qualityWeight := balancedQualityWeight
	switch budgetPriority {
	case PriorityCostSaving:
		qualityWeight = costSavingQualityWeight
	case PriorityQualityFirst:
		qualityWeight = qualityFirstQualityWeight
	}
	costWeight := 1 - qualityWeight

	var shift float64
	switch status {
	case budget.StatusWarning:
		shift = 0.1
	case budget.StatusCritical:
		shift = 0.2
	case budget.StatusExceeded:
		shift = 0.3
	}
	costWeight += shift
	qualityWeight -= shift
	if qualityWeight < 0 {
		qualityWeight = 0
	}

	total := qualityWeight + costWeight
	return qualityWeight / total, costWeight / total
}

// qualityThreshold derives the minimum acceptable quality score, relaxed
// under budget pressure.
func qualityThreshold(qualityRequirement string, status budget.Status) float64 {
	threshold := 50.0
	switch qualityRequirement {
	case QualityMaximum:
		threshold = 90
	case QualityHigh:
		threshold = 75
	}

	switch status {
	case budget.StatusWarning:
		threshold -= 5
	case budget.StatusCritical:
		threshold -= 10
	case budget.StatusExceeded:
		threshold -= 15
	}
	return threshold
}

// qualityFor resolves a profile's quality score for a task type. Missing
// scores fall back to averaging the available dimensions for general chat,
// or to a capability-derived default otherwise.
func qualityFor(profile catalog.Profile, taskType string) float64 {
	taskType = strings.TrimSpace(strings.ToLower(taskType))
	if score, ok := profile.QualityScores[taskType]; ok {
		return score
	}

	if taskType == "" || taskType == "general-chat" {
		if len(profile.QualityScores) > 0 {
			var sum float64
			for _, score := range profile.QualityScores {
				sum += score
			}
			return sum / float64(len(profile.QualityScores))
		}
	}
	return capabilityDefault(profile)
}

// capabilityDefault estimates quality from declared capabilities when no
// score exists for the task type.
func capabilityDefault(profile catalog.Profile) float64 {
	score := 50 + 5*float64(len(profile.Capabilities))
	if score > 85 {
		score = 85
	}
	return score
}

// budgetImpact classifies one request's cost against the remaining budget.
func budgetImpact(cost float64, eval *budget.Evaluation) string {
	if eval == nil || cost <= 0 {
		return ImpactNone
	}
	if eval.Remaining <= 0 {
		return ImpactHigh
	}
	ratio := cost / eval.Remaining
	switch {
	case ratio >= 0.1:
		return ImpactHigh
	case ratio >= 0.01:
		return ImpactModerate
	default:
		return ImpactLow
	}
}

// normalizedCost maps a cost into [0,1] where cheaper is higher. When the
// most expensive candidate costs nothing every candidate normalizes to 1.
func normalizedCost(cost, maxCost float64) float64 {
	if maxCost <= 0 {
		return 1
	}
	return 1 - cost/maxCost
}

// finalScore is the weighted blend the selector maximizes.
func finalScore(candidate Candidate, maxCost, qualityWeight, costWeight float64) float64 {
	return candidate.QualityScore/100*qualityWeight + normalizedCost(candidate.EstimatedCost, maxCost)*costWeight
}
