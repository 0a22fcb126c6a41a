package review

import "github.com/bountylab/reviewd/internal/models"

// MapLabel converts a numeric score plus suggested-label tags into the
// final categorical outcome. Security or plagiarism tags force
// Needs_Review regardless of score; otherwise inclusive lower-bound
// thresholds apply.
func MapLabel(score float64, tags []string) models.EarnLabel {
	for _, tag := range tags {
		if tag == models.LabelTagSecurityConcern || tag == models.LabelTagPotentialPlagiarism {
			return models.LabelNeedsReview
		}
	}

	switch {
	case score >= 85:
		return models.LabelShortlisted
	case score >= 70:
		return models.LabelHighQuality
	case score >= 50:
		return models.LabelMidQuality
	case score >= 30:
		return models.LabelLowQuality
	default:
		return models.LabelSpam
	}
}

// DetermineLabels derives free-form tags from a score and the red flags
// present. These tags are independent of the EarnLabel outcome enum.
func DetermineLabels(score float64, redFlags []models.RedFlag) []string {
	var tags []string

	switch {
	case score >= 90:
		tags = append(tags, models.LabelTagExcellent)
	case score >= 75:
		tags = append(tags, models.LabelTagHighQuality)
	case score >= 50:
		tags = append(tags, models.LabelTagNeedsReview)
	default:
		tags = append(tags, models.LabelTagNeedsRevision)
	}

	flagPresent := map[models.RedFlagType]bool{}
	for _, f := range redFlags {
		flagPresent[f.Type] = true
	}

	if flagPresent[models.FlagHardcodedSecret] || flagPresent[models.FlagSecurityVuln] {
		tags = append(tags, models.LabelTagSecurityConcern)
	}
	if flagPresent[models.FlagCopiedCode] {
		tags = append(tags, models.LabelTagPotentialPlagiarism)
	}
	if flagPresent[models.FlagIncompleteImpl] || flagPresent[models.FlagMissingTests] {
		tags = append(tags, models.LabelTagIncomplete)
	}

	return tags
}
