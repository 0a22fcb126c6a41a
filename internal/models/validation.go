package models

import "time"

// ValidationRecord captures agreement between an AI review and the
// eventual human outcome for one submission. Records are append-only.
type ValidationRecord struct {
	ID           string    `json:"id"`
	SubmissionID string    `json:"submission_id"`
	AIScore      float64   `json:"ai_score"`
	AILabel      EarnLabel `json:"ai_label"`
	HumanScore   float64   `json:"human_score"`
	HumanLabel   EarnLabel `json:"human_label"`

	// Derived at record time.
	ScoreAccurate bool    `json:"score_accurate"`
	LabelAccurate bool    `json:"label_accurate"`
	ScoreDelta    float64 `json:"score_delta"`

	CreatedAt time.Time `json:"created_at"`
}
