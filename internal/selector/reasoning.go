package selector

import (
	"fmt"
	"strings"

	"github.com/router-for-me/RoutingEngine/internal/budget"
)

// reasoning composes a deterministic explanation of the selection for audit
// and UX surfaces.
func reasoning(selected Candidate, eval *budget.Evaluation, qualityRequirement string, alternatives []Alternative) string {
	parts := make([]string, 0, 3)
	parts = append(parts, fmt.Sprintf(
		"Selected %s (%s tier, quality %.0f) at an estimated cost of %s.",
		selected.Profile.ModelID,
		qualityTier(selected.QualityScore),
		selected.QualityScore,
		formatCost(selected.EstimatedCost),
	))

	if eval != nil && eval.Status != budget.StatusNormal {
		parts = append(parts, fmt.Sprintf(
			"Budget status is %s (%.0f%% of the %s limit used), so scoring favored cheaper models.",
			eval.Status, eval.PercentUsed, eval.ScopeType,
		))
	} else if qualityRequirement != "" {
		parts = append(parts, fmt.Sprintf("Quality requirement was %s.", qualityRequirement))
	}

	if len(alternatives) > 0 {
		best := alternatives[0]
		direction := "less"
		difference := -best.CostDifference
		if best.CostDifference > 0 {
			direction = "more"
			difference = best.CostDifference
		}
		parts = append(parts, fmt.Sprintf(
			"Closest alternative %s costs %s %s with a quality difference of %+.0f.",
			best.ModelID, formatCost(difference), direction, best.QualityDifference,
		))
	}
	return strings.Join(parts, " ")
}

// qualityTier names the tier a score lands in.
func qualityTier(score float64) string {
	switch {
	case score >= 90:
		return "maximum"
	case score >= 75:
		return "high"
	case score >= 50:
		return "standard"
	default:
		return "basic"
	}
}

// formatCost renders a cost amount with enough precision for sub-cent rates.
func formatCost(amount float64) string {
	if amount < 0 {
		amount = 0
	}
	return fmt.Sprintf("$%.4f", amount)
}
