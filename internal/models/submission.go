package models

import "time"

// SubmissionReview is the persisted outcome of reviewing one submission.
// SubmissionID is the externally supplied identifier; retried jobs
// re-insert under the same ID and the store treats the duplicate as a
// no-op so retries stay idempotent.
type SubmissionReview struct {
	ID           string    `json:"id"`
	SubmissionID string    `json:"submission_id"`
	ExternalID   string    `json:"external_id"`
	BountyTitle  string    `json:"bounty_title"`
	Score        float64   `json:"score"`
	Label        EarnLabel `json:"label"`
	ResultJSON   string    `json:"result_json"`
	ModelUsed    string    `json:"model_used"`
	TokensUsed   int       `json:"tokens_used"`
	Cost         float64   `json:"cost"`
	CreatedAt    time.Time `json:"created_at"`
}
