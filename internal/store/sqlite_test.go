package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bountylab/reviewd/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	err = s.Migrate(context.Background())
	require.NoError(t, err)

	t.Cleanup(func() { s.Close() })
	return s
}

func testReview(submissionID string) *models.SubmissionReview {
	return &models.SubmissionReview{
		SubmissionID: submissionID,
		ExternalID:   "ext-" + submissionID,
		BountyTitle:  "Build a token vesting program",
		Score:        82,
		Label:        models.LabelHighQuality,
		ResultJSON:   `{"overallScore":82}`,
		ModelUsed:    "gpt-4o-mini",
		TokensUsed:   4200,
		Cost:         0.0051,
	}
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "subdir", "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(filepath.Join(dir, "subdir"))
	assert.NoError(t, err, "should create parent directory")
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Running migrate again should be a no-op
	err := s.Migrate(ctx)
	assert.NoError(t, err)
}

func TestSaveReview(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := testReview("sub-1")
	inserted, err := s.SaveReview(ctx, r)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NotEmpty(t, r.ID)
	assert.False(t, r.CreatedAt.IsZero())

	got, err := s.GetReview(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "sub-1", got.SubmissionID)
	assert.Equal(t, models.LabelHighQuality, got.Label)
	assert.InDelta(t, 82.0, got.Score, 1e-9)
	assert.Equal(t, 4200, got.TokensUsed)
}

func TestSaveReview_IdempotentOnSubmissionID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := testReview("sub-2")
	inserted, err := s.SaveReview(ctx, first)
	require.NoError(t, err)
	require.True(t, inserted)

	// A retried job re-saves the same submission; the original row wins.
	retry := testReview("sub-2")
	retry.Score = 10
	retry.Label = models.LabelSpam
	inserted, err = s.SaveReview(ctx, retry)
	require.NoError(t, err)
	assert.False(t, inserted)

	got, err := s.GetReviewBySubmission(ctx, "sub-2")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.InDelta(t, 82.0, got.Score, 1e-9)
	assert.Equal(t, models.LabelHighQuality, got.Label)
}

func TestGetReview_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetReview(context.Background(), "missing")
	assert.Error(t, err)

	_, err = s.GetReviewBySubmission(context.Background(), "missing")
	assert.Error(t, err)
}

func TestListReviews(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"sub-a", "sub-b", "sub-c"} {
		_, err := s.SaveReview(ctx, testReview(id))
		require.NoError(t, err)
	}

	all, err := s.ListReviews(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	limited, err := s.ListReviews(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestValidations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	v := &models.ValidationRecord{
		SubmissionID:  "sub-1",
		AIScore:       82,
		AILabel:       models.LabelHighQuality,
		HumanScore:    88,
		HumanLabel:    models.LabelShortlisted,
		ScoreAccurate: true,
		LabelAccurate: true,
		ScoreDelta:    6,
	}
	require.NoError(t, s.CreateValidation(ctx, v))
	assert.NotEmpty(t, v.ID)

	// Append-only: a second record for the same submission is kept.
	require.NoError(t, s.CreateValidation(ctx, &models.ValidationRecord{
		SubmissionID: "sub-1",
		AIScore:      82,
		AILabel:      models.LabelHighQuality,
		HumanScore:   40,
		HumanLabel:   models.LabelLowQuality,
		ScoreDelta:   42,
	}))

	got, err := s.ListValidations(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)

	limited, err := s.ListValidations(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
