// Package accuracy tracks agreement between AI reviews and eventual
// human outcomes. Validation records are append-only telemetry: writing
// one never blocks or fails the review that triggered it.
package accuracy

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/bountylab/reviewd/internal/models"
	"github.com/bountylab/reviewd/internal/store"
)

// scoreTolerance is the maximum score disagreement still counted as
// accurate. The boundary itself counts as a miss.
const scoreTolerance = 15.0

// adjacentLabels lists, per human label, which AI labels count as
// near-misses rather than wrong. Adjacency is one step along the
// quality ladder, with Needs_Review treated as adjacent to the middle
// bands where human judgment most often lands.
var adjacentLabels = map[models.EarnLabel][]models.EarnLabel{
	models.LabelShortlisted: {models.LabelHighQuality},
	models.LabelHighQuality: {models.LabelShortlisted, models.LabelMidQuality},
	models.LabelMidQuality:  {models.LabelHighQuality, models.LabelLowQuality, models.LabelNeedsReview},
	models.LabelLowQuality:  {models.LabelMidQuality, models.LabelSpam},
	models.LabelNeedsReview: {models.LabelMidQuality, models.LabelLowQuality},
	models.LabelSpam:        {models.LabelLowQuality},
}

func isScoreAccurate(aiScore, humanScore float64) bool {
	return math.Abs(aiScore-humanScore) < scoreTolerance
}

func isLabelAccurate(aiLabel, humanLabel models.EarnLabel) bool {
	if aiLabel == humanLabel {
		return true
	}
	for _, adj := range adjacentLabels[humanLabel] {
		if aiLabel == adj {
			return true
		}
	}
	return false
}

// Validator records validations and computes rolling accuracy metrics.
type Validator struct {
	store store.Store
	log   *slog.Logger
}

func NewValidator(s store.Store, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{store: s, log: logger}
}

// Record derives the accuracy verdict for one submission and persists
// it. Persistence failures are logged and swallowed; the derived record
// is returned either way.
func (v *Validator) Record(ctx context.Context, submissionID string, aiScore float64, aiLabel models.EarnLabel, humanScore float64, humanLabel models.EarnLabel) models.ValidationRecord {
	record := models.ValidationRecord{
		SubmissionID:  submissionID,
		AIScore:       aiScore,
		AILabel:       aiLabel,
		HumanScore:    humanScore,
		HumanLabel:    humanLabel,
		ScoreAccurate: isScoreAccurate(aiScore, humanScore),
		LabelAccurate: isLabelAccurate(aiLabel, humanLabel),
		ScoreDelta:    math.Abs(aiScore - humanScore),
	}

	if err := v.store.CreateValidation(ctx, &record); err != nil {
		v.log.Error("failed to persist validation",
			"submission_id", submissionID, "error", err)
	}
	return record
}

// Status classifies overall accuracy.
const (
	StatusGood             = "good"
	StatusAcceptable       = "acceptable"
	StatusNeedsImprovement = "needs_improvement"
)

// Metrics is a rolling accuracy summary over recorded validations.
type Metrics struct {
	Total          int                                           `json:"total"`
	ScoreAccuracy  float64                                       `json:"scoreAccuracy"`
	LabelAccuracy  float64                                       `json:"labelAccuracy"`
	MeanScoreDelta float64                                       `json:"meanScoreDelta"`
	Confusion      map[models.EarnLabel]map[models.EarnLabel]int `json:"confusion"`
	Status         string                                        `json:"status"`
}

// Metrics computes accuracy over validations recorded since the given
// time; a zero time means all records.
func (v *Validator) Metrics(ctx context.Context, since time.Time) (Metrics, error) {
	records, err := v.store.ListValidations(ctx, 0)
	if err != nil {
		return Metrics{}, err
	}

	m := Metrics{Confusion: map[models.EarnLabel]map[models.EarnLabel]int{}}
	var scoreHits, labelHits int
	var deltaSum float64

	for _, r := range records {
		if !since.IsZero() && r.CreatedAt.Before(since) {
			continue
		}
		m.Total++
		if r.ScoreAccurate {
			scoreHits++
		}
		if r.LabelAccurate {
			labelHits++
		}
		deltaSum += math.Abs(r.ScoreDelta)

		if m.Confusion[r.HumanLabel] == nil {
			m.Confusion[r.HumanLabel] = map[models.EarnLabel]int{}
		}
		m.Confusion[r.HumanLabel][r.AILabel]++
	}

	if m.Total == 0 {
		m.Status = StatusNeedsImprovement
		return m, nil
	}

	m.ScoreAccuracy = 100 * float64(scoreHits) / float64(m.Total)
	m.LabelAccuracy = 100 * float64(labelHits) / float64(m.Total)
	m.MeanScoreDelta = deltaSum / float64(m.Total)

	switch overall := (m.ScoreAccuracy + m.LabelAccuracy) / 2; {
	case overall >= 80:
		m.Status = StatusGood
	case overall >= 65:
		m.Status = StatusAcceptable
	default:
		m.Status = StatusNeedsImprovement
	}
	return m, nil
}
