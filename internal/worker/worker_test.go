package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bountylab/reviewd/internal/fetch"
	"github.com/bountylab/reviewd/internal/models"
	"github.com/bountylab/reviewd/internal/queue"
)

// fakeBroker captures sent events; the consume side is unused in these
// tests because Process is driven directly.
type fakeBroker struct {
	sent []queue.Event
}

func (f *fakeBroker) Send(ctx context.Context, ev queue.Event, opts queue.JobOptions) (string, error) {
	f.sent = append(f.sent, ev)
	return "job-1", nil
}

func (f *fakeBroker) SendBatch(ctx context.Context, evs []queue.Event, opts queue.JobOptions) ([]string, error) {
	f.sent = append(f.sent, evs...)
	return nil, nil
}

func (f *fakeBroker) IsConnected(ctx context.Context) bool { return true }
func (f *fakeBroker) Stats(ctx context.Context) (queue.QueueStats, error) {
	return queue.QueueStats{}, nil
}
func (f *fakeBroker) Health(ctx context.Context) queue.HealthStatus {
	return queue.HealthStatus{Healthy: true}
}
func (f *fakeBroker) Close() error { return nil }
func (f *fakeBroker) Dequeue(ctx context.Context, name string, timeout time.Duration) (*queue.Job, error) {
	return nil, nil
}
func (f *fakeBroker) Complete(ctx context.Context, job *queue.Job) error { return nil }
func (f *fakeBroker) Retry(ctx context.Context, job *queue.Job, cause error) (bool, error) {
	return false, nil
}

type fakeFetcher struct {
	code models.CodeContext
	err  error
}

func (f *fakeFetcher) RepositoryData(ctx context.Context, url string) (models.CodeContext, error) {
	return f.code, f.err
}

func (f *fakeFetcher) PRData(ctx context.Context, url string) (models.CodeContext, error) {
	return f.code, f.err
}

type fakeStore struct {
	saved   []*models.SubmissionReview
	exists  bool
	saveErr error
}

func (f *fakeStore) SaveReview(ctx context.Context, r *models.SubmissionReview) (bool, error) {
	if f.saveErr != nil {
		return false, f.saveErr
	}
	if f.exists {
		return false, nil
	}
	f.saved = append(f.saved, r)
	return true, nil
}

func (f *fakeStore) GetReview(ctx context.Context, id string) (*models.SubmissionReview, error) {
	return nil, errors.New("not found")
}
func (f *fakeStore) GetReviewBySubmission(ctx context.Context, id string) (*models.SubmissionReview, error) {
	return nil, errors.New("not found")
}
func (f *fakeStore) ListReviews(ctx context.Context, limit int) ([]*models.SubmissionReview, error) {
	return nil, nil
}
func (f *fakeStore) CreateValidation(ctx context.Context, v *models.ValidationRecord) error {
	return nil
}
func (f *fakeStore) ListValidations(ctx context.Context, limit int) ([]*models.ValidationRecord, error) {
	return nil, nil
}
func (f *fakeStore) Migrate(ctx context.Context) error { return nil }
func (f *fakeStore) Close() error                      { return nil }

func stubResult(score, confidence float64) *models.GeneratedReview {
	return &models.GeneratedReview{
		ReviewResult: models.ReviewResult{
			OverallScore:     score,
			RequirementMatch: models.CategoryScore{Score: score},
			CodeQuality:      models.CategoryScore{Score: score},
			Completeness:     models.CategoryScore{Score: score},
			Security:         models.CategoryScore{Score: score},
			Confidence:       confidence,
			Summary:          "stub",
			DetailedNotes:    "stub",
			SuggestedLabels:  []string{models.LabelTagHighQuality},
		},
		TokensUsed:    1000,
		ModelUsed:     "gpt-4o-mini",
		EstimatedCost: 0.001,
	}
}

func smallRepo() models.CodeContext {
	return models.CodeContext{
		Kind: models.CodeKindRepository,
		KeyFiles: []models.KeyFile{
			{Path: "src/lib.rs", Content: "small", Importance: models.ImportanceCritical},
		},
	}
}

func bigRepo() models.CodeContext {
	return models.CodeContext{
		Kind: models.CodeKindRepository,
		KeyFiles: []models.KeyFile{
			{Path: "a.rs", Content: strings.Repeat("x", 400), Importance: models.ImportanceCritical},
			{Path: "b.rs", Content: strings.Repeat("x", 400), Importance: models.ImportanceHigh},
			{Path: "c.rs", Content: strings.Repeat("x", 400), Importance: models.ImportanceLow},
		},
	}
}

func testJob() ReviewJob {
	return ReviewJob{
		SubmissionID: "sub-1",
		ExternalID:   "ext-1",
		Bounty:       models.BountyContext{Title: "Build a vesting program"},
		URL:          "https://github.com/acme/vesting",
		Kind:         models.CodeKindRepository,
	}
}

func newTestWorker(broker *fakeBroker, f fetch.Fetcher, st *fakeStore, maxTokens int) *Worker {
	w := New(broker, f, st, Config{MaxChunkTokens: maxTokens, Concurrency: 1}, slog.Default())
	w.generate = func(ctx context.Context, bounty models.BountyContext, code models.CodeContext, modelID string) (*models.GeneratedReview, error) {
		return stubResult(80, 0.9), nil
	}
	return w
}

func TestProcessSingleChunk(t *testing.T) {
	broker := &fakeBroker{}
	st := &fakeStore{}
	w := newTestWorker(broker, &fakeFetcher{code: smallRepo()}, st, 0)

	err := w.Process(context.Background(), testJob())
	require.NoError(t, err)

	require.Len(t, st.saved, 1)
	saved := st.saved[0]
	assert.Equal(t, "sub-1", saved.SubmissionID)
	assert.Equal(t, "ext-1", saved.ExternalID)
	assert.InDelta(t, 80.0, saved.Score, 1e-9)
	assert.Equal(t, models.LabelHighQuality, saved.Label)
	assert.Equal(t, 1000, saved.TokensUsed)

	require.Len(t, broker.sent, 1)
	assert.Equal(t, queue.EventReviewCompleted, broker.sent[0].Name)

	var done Completed
	require.NoError(t, json.Unmarshal(broker.sent[0].Data, &done))
	assert.Equal(t, "sub-1", done.SubmissionID)
	assert.InDelta(t, 80.0, done.Score, 1e-9)
}

func TestProcessChunkedRepository(t *testing.T) {
	broker := &fakeBroker{}
	st := &fakeStore{}

	// 100-token budget forces 3 files of ~100 tokens into separate chunks.
	w := New(broker, &fakeFetcher{code: bigRepo()}, st, Config{MaxChunkTokens: 100}, slog.Default())

	var calls int
	scores := []float64{80, 60, 70}
	w.generate = func(ctx context.Context, bounty models.BountyContext, code models.CodeContext, modelID string) (*models.GeneratedReview, error) {
		require.Len(t, code.KeyFiles, 1)
		r := stubResult(scores[calls], 0.5)
		calls++
		return r, nil
	}

	err := w.Process(context.Background(), testJob())
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	require.Len(t, st.saved, 1)
	assert.InDelta(t, 70.0, st.saved[0].Score, 1e-9)
	assert.Equal(t, 3000, st.saved[0].TokensUsed)
	assert.InDelta(t, 0.003, st.saved[0].Cost, 1e-9)
}

func TestProcessFetchErrorFailsJob(t *testing.T) {
	broker := &fakeBroker{}
	w := newTestWorker(broker, &fakeFetcher{err: &fetch.Error{Kind: fetch.ErrNotFound, Detail: "gone"}}, &fakeStore{}, 0)

	err := w.Process(context.Background(), testJob())
	require.Error(t, err)
	assert.Equal(t, fetch.ErrNotFound, fetch.KindOf(err))
	assert.Empty(t, broker.sent)
}

func TestProcessPersistenceErrorNotFatal(t *testing.T) {
	broker := &fakeBroker{}
	w := newTestWorker(broker, &fakeFetcher{code: smallRepo()}, &fakeStore{saveErr: errors.New("disk full")}, 0)

	err := w.Process(context.Background(), testJob())
	require.NoError(t, err)
	require.Len(t, broker.sent, 1)
	assert.Equal(t, queue.EventReviewCompleted, broker.sent[0].Name)
}

func TestProcessDuplicateSubmissionShortCircuits(t *testing.T) {
	broker := &fakeBroker{}
	st := &fakeStore{exists: true}
	w := newTestWorker(broker, &fakeFetcher{code: smallRepo()}, st, 0)

	err := w.Process(context.Background(), testJob())
	require.NoError(t, err)
	assert.Empty(t, st.saved)
	// Completion still fires so downstream consumers hear about retries.
	require.Len(t, broker.sent, 1)
}

func TestDispatchBatch(t *testing.T) {
	broker := &fakeBroker{}
	st := &fakeStore{}
	w := newTestWorker(broker, &fakeFetcher{code: smallRepo()}, st, 0)

	batch := BatchJob{Jobs: []ReviewJob{testJob(), {
		SubmissionID: "sub-2",
		Bounty:       models.BountyContext{Title: "Another bounty"},
		URL:          "https://github.com/acme/other",
		Kind:         models.CodeKindRepository,
	}}}
	ev, err := queue.NewEvent(queue.EventReviewBatch, batch)
	require.NoError(t, err)

	err = w.dispatch(context.Background(), &queue.Job{ID: "j1", Event: ev})
	require.NoError(t, err)
	assert.Len(t, st.saved, 2)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, 8, cfg.Concurrency)
	assert.InDelta(t, 10.0, cfg.RatePerSecond, 1e-9)
	assert.Equal(t, 12000, cfg.MaxChunkTokens)
}
