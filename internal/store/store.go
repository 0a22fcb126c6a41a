package store

import (
	"context"

	"github.com/bountylab/reviewd/internal/models"
)

// Store defines the persistence interface for reviewd.
type Store interface {
	// Reviews
	SaveReview(ctx context.Context, r *models.SubmissionReview) (bool, error)
	GetReview(ctx context.Context, id string) (*models.SubmissionReview, error)
	GetReviewBySubmission(ctx context.Context, submissionID string) (*models.SubmissionReview, error)
	ListReviews(ctx context.Context, limit int) ([]*models.SubmissionReview, error)

	// Validations
	CreateValidation(ctx context.Context, v *models.ValidationRecord) error
	ListValidations(ctx context.Context, limit int) ([]*models.ValidationRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
