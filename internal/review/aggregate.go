package review

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bountylab/reviewd/internal/models"
)

// ErrEmptyAggregation is returned when aggregating zero chunk results.
// That is a programmer error, never a degraded default.
var ErrEmptyAggregation = errors.New("aggregate: no chunk results")

// Aggregate merges per-chunk reviews of one submission into a single
// review. A single-element input is returned unchanged. Sub-scores are
// unweighted means, the overall score is a confidence-weighted mean, and
// the merged confidence is the minimum across chunks so one uncertain
// chunk caps overall trust.
func Aggregate(results []models.ReviewResult, bounty models.BountyContext) (models.ReviewResult, error) {
	if len(results) == 0 {
		return models.ReviewResult{}, ErrEmptyAggregation
	}
	if len(results) == 1 {
		return results[0], nil
	}

	var merged models.ReviewResult

	merged.RequirementMatch.Score = meanOf(results, func(r models.ReviewResult) float64 { return r.RequirementMatch.Score })
	merged.CodeQuality.Score = meanOf(results, func(r models.ReviewResult) float64 { return r.CodeQuality.Score })
	merged.Completeness.Score = meanOf(results, func(r models.ReviewResult) float64 { return r.Completeness.Score })
	merged.Security.Score = meanOf(results, func(r models.ReviewResult) float64 { return r.Security.Score })

	merged.OverallScore = weightedOverall(results)
	merged.Confidence = minConfidence(results)

	for _, r := range results {
		merged.MatchedRequirements = unionInto(merged.MatchedRequirements, r.MatchedRequirements)
		merged.MissingRequirements = unionInto(merged.MissingRequirements, r.MissingRequirements)
		merged.Strengths = unionInto(merged.Strengths, r.Strengths)
		merged.SolanaFindings = unionInto(merged.SolanaFindings, r.SolanaFindings)

		// Object arrays keep every entry: each carries its own provenance.
		merged.Issues = append(merged.Issues, r.Issues...)
		merged.Evidence = append(merged.Evidence, r.Evidence...)
		merged.RedFlags = append(merged.RedFlags, r.RedFlags...)
	}

	merged.SuggestedLabels = DetermineLabels(merged.OverallScore, merged.RedFlags)
	merged.Summary = mergedSummary(len(results), bounty, merged)
	merged.DetailedNotes = mergedNotes(len(results), merged)

	return merged, nil
}

func meanOf(results []models.ReviewResult, get func(models.ReviewResult) float64) float64 {
	var sum float64
	for _, r := range results {
		sum += get(r)
	}
	return sum / float64(len(results))
}

// weightedOverall computes sum(score*confidence)/sum(confidence). When
// every chunk reports zero confidence the weights vanish, so it falls
// back to the unweighted mean instead of propagating NaN.
func weightedOverall(results []models.ReviewResult) float64 {
	var weighted, weights float64
	for _, r := range results {
		weighted += r.OverallScore * r.Confidence
		weights += r.Confidence
	}
	if weights == 0 {
		return meanOf(results, func(r models.ReviewResult) float64 { return r.OverallScore })
	}
	return weighted / weights
}

func minConfidence(results []models.ReviewResult) float64 {
	min := results[0].Confidence
	for _, r := range results[1:] {
		if r.Confidence < min {
			min = r.Confidence
		}
	}
	return min
}

// unionInto appends the elements of add that dst does not already hold.
func unionInto(dst, add []string) []string {
	seen := make(map[string]bool, len(dst))
	for _, s := range dst {
		seen[s] = true
	}
	for _, s := range add {
		if !seen[s] {
			seen[s] = true
			dst = append(dst, s)
		}
	}
	return dst
}

// mergedSummary regenerates the summary from the merged data so the
// narrative reflects the whole submission, not any single chunk.
func mergedSummary(chunks int, bounty models.BountyContext, m models.ReviewResult) string {
	s := fmt.Sprintf(
		"Combined review of %d analysis chunks for %q: overall %.0f/100 (requirements %.0f, quality %.0f, completeness %.0f, security %.0f) with %d matched and %d missing requirements and %d red flags.",
		chunks, bounty.Title, m.OverallScore,
		m.RequirementMatch.Score, m.CodeQuality.Score, m.Completeness.Score, m.Security.Score,
		len(m.MatchedRequirements), len(m.MissingRequirements), len(m.RedFlags),
	)
	if len(s) > 500 {
		s = s[:500]
	}
	return s
}

func mergedNotes(chunks int, m models.ReviewResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Aggregated from %d chunk reviews (confidence floor %.2f).\n", chunks, m.Confidence)

	if len(m.MatchedRequirements) > 0 {
		sb.WriteString("\nMatched requirements:\n")
		for _, r := range m.MatchedRequirements {
			sb.WriteString("- " + r + "\n")
		}
	}
	if len(m.MissingRequirements) > 0 {
		sb.WriteString("\nMissing requirements:\n")
		for _, r := range m.MissingRequirements {
			sb.WriteString("- " + r + "\n")
		}
	}
	if len(m.RedFlags) > 0 {
		sb.WriteString("\nRed flags:\n")
		for _, f := range m.RedFlags {
			fmt.Fprintf(&sb, "- [%s] %s: %s\n", f.Severity, f.Type, f.Description)
		}
	}
	if len(m.Issues) > 0 {
		fmt.Fprintf(&sb, "\n%d issues were reported across chunks.\n", len(m.Issues))
	}

	return sb.String()
}
