// Package worker consumes review jobs from the broker and runs the full
// pipeline for each: fetch code, chunk, generate, aggregate, label,
// persist, notify.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/bountylab/reviewd/internal/chunker"
	"github.com/bountylab/reviewd/internal/fetch"
	"github.com/bountylab/reviewd/internal/models"
	"github.com/bountylab/reviewd/internal/queue"
	"github.com/bountylab/reviewd/internal/review"
	"github.com/bountylab/reviewd/internal/store"
)

// ReviewJob is the payload of review.single events.
type ReviewJob struct {
	SubmissionID string               `json:"submissionId"`
	ExternalID   string               `json:"externalId"`
	Bounty       models.BountyContext `json:"bounty"`
	URL          string               `json:"url"`
	Kind         models.CodeKind      `json:"kind"`
	Model        string               `json:"model,omitempty"`
}

// BatchJob is the payload of review.batch events.
type BatchJob struct {
	Jobs []ReviewJob `json:"jobs"`
}

// Completed is the payload of review.completed events.
type Completed struct {
	SubmissionID string   `json:"submissionId"`
	ExternalID   string   `json:"externalId"`
	Score        float64  `json:"score"`
	Labels       []string `json:"labels"`
}

// Broker is the queue surface the worker consumes from. Only the Redis
// backend has one; the relay backend delivers jobs over HTTP instead.
type Broker interface {
	queue.Dispatcher
	Dequeue(ctx context.Context, queueName string, timeout time.Duration) (*queue.Job, error)
	Complete(ctx context.Context, job *queue.Job) error
	Retry(ctx context.Context, job *queue.Job, cause error) (bool, error)
}

// Config bounds worker throughput.
type Config struct {
	Concurrency    int     // parallel jobs, default 8
	RatePerSecond  float64 // shared across all goroutines, default 10
	MaxChunkTokens int     // per-chunk token budget, default chunker.DefaultMaxTokens
}

func (c Config) withDefaults() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = 8
	}
	if c.RatePerSecond <= 0 {
		c.RatePerSecond = 10
	}
	if c.MaxChunkTokens <= 0 {
		c.MaxChunkTokens = chunker.DefaultMaxTokens
	}
	return c
}

// Worker drains review queues with bounded concurrency and a shared
// rate limit.
type Worker struct {
	broker  Broker
	fetcher fetch.Fetcher
	store   store.Store
	cfg     Config
	limiter *rate.Limiter
	log     *slog.Logger

	// generate is swapped in tests to avoid network calls.
	generate func(ctx context.Context, bounty models.BountyContext, code models.CodeContext, modelID string) (*models.GeneratedReview, error)
}

func New(broker Broker, fetcher fetch.Fetcher, st store.Store, cfg Config, logger *slog.Logger) *Worker {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		broker:   broker,
		fetcher:  fetcher,
		store:    st,
		cfg:      cfg,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1),
		log:      logger,
		generate: review.Generate,
	}
}

// workQueues are the queues this worker drains, in polling order.
var workQueues = []string{
	queue.QueueSingleReview,
	queue.QueueBatchReview,
	queue.QueueReviewProcessing,
}

// Run consumes jobs until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < w.cfg.Concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			w.loop(ctx, id)
		}(i)
	}
	wg.Wait()
}

func (w *Worker) loop(ctx context.Context, id int) {
	for {
		if ctx.Err() != nil {
			return
		}
		for _, name := range workQueues {
			job, err := w.broker.Dequeue(ctx, name, 2*time.Second)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				w.log.Error("dequeue failed", "queue", name, "error", err)
				continue
			}
			if job == nil {
				continue
			}
			w.handle(ctx, job)
		}
	}
}

// handle runs one job and settles it with the broker: completed on
// success, retried with backoff (then failed) otherwise.
func (w *Worker) handle(ctx context.Context, job *queue.Job) {
	if err := w.limiter.Wait(ctx); err != nil {
		return
	}

	err := w.dispatch(ctx, job)
	if err == nil {
		if cerr := w.broker.Complete(ctx, job); cerr != nil {
			w.log.Error("failed to mark job complete", "job_id", job.ID, "error", cerr)
		}
		return
	}

	w.log.Error("job failed", "job_id", job.ID, "queue", job.Queue, "attempt", job.Attempt, "error", err)
	retried, rerr := w.broker.Retry(ctx, job, err)
	if rerr != nil {
		w.log.Error("failed to settle job", "job_id", job.ID, "error", rerr)
		return
	}
	if !retried {
		w.log.Warn("job exhausted retries", "job_id", job.ID, "queue", job.Queue)
	}
}

func (w *Worker) dispatch(ctx context.Context, job *queue.Job) error {
	switch job.Event.Name {
	case queue.EventReviewBatch:
		var batch BatchJob
		if err := json.Unmarshal(job.Event.Data, &batch); err != nil {
			return fmt.Errorf("decode batch payload: %w", err)
		}
		for _, rj := range batch.Jobs {
			if err := w.Process(ctx, rj); err != nil {
				return err
			}
		}
		return nil
	default:
		var rj ReviewJob
		if err := json.Unmarshal(job.Event.Data, &rj); err != nil {
			return fmt.Errorf("decode review payload: %w", err)
		}
		return w.Process(ctx, rj)
	}
}

// Process runs the review pipeline for one submission. Retried jobs
// restart the whole sequence; persistence treats an existing review for
// the submission as a no-op, so the pipeline is safe to re-run.
func (w *Worker) Process(ctx context.Context, job ReviewJob) error {
	log := w.log.With("submission_id", job.SubmissionID)

	var code models.CodeContext
	var err error
	if job.Kind == models.CodeKindPullRequest {
		code, err = w.fetcher.PRData(ctx, job.URL)
	} else {
		code, err = w.fetcher.RepositoryData(ctx, job.URL)
	}
	if err != nil {
		return fmt.Errorf("fetch %s: %w", job.URL, err)
	}

	result, err := w.generateAll(ctx, job, code)
	if err != nil {
		return err
	}

	label := review.MapLabel(result.OverallScore, result.SuggestedLabels)

	resultJSON, err := json.Marshal(result.ReviewResult)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	inserted, err := w.store.SaveReview(ctx, &models.SubmissionReview{
		SubmissionID: job.SubmissionID,
		ExternalID:   job.ExternalID,
		BountyTitle:  job.Bounty.Title,
		Score:        result.OverallScore,
		Label:        label,
		ResultJSON:   string(resultJSON),
		ModelUsed:    result.ModelUsed,
		TokensUsed:   result.TokensUsed,
		Cost:         result.EstimatedCost,
	})
	if err != nil {
		log.Error("failed to persist review", "error", err)
	} else if !inserted {
		log.Info("review already persisted, skipping duplicate")
	}

	event, err := queue.NewEvent(queue.EventReviewCompleted, Completed{
		SubmissionID: job.SubmissionID,
		ExternalID:   job.ExternalID,
		Score:        result.OverallScore,
		Labels:       result.SuggestedLabels,
	})
	if err != nil {
		return fmt.Errorf("build completion event: %w", err)
	}
	if _, err := w.broker.Send(ctx, event, queue.DefaultJobOptions()); err != nil {
		return fmt.Errorf("emit completion: %w", err)
	}

	log.Info("review complete",
		"score", result.OverallScore, "label", string(label),
		"model", result.ModelUsed, "tokens", result.TokensUsed)
	return nil
}

// generateAll produces the review, splitting large repositories into
// chunks reviewed serially and merged afterward. Chunks stay serial so
// a single oversized submission cannot monopolize provider throughput.
func (w *Worker) generateAll(ctx context.Context, job ReviewJob, code models.CodeContext) (*models.GeneratedReview, error) {
	if !chunker.NeedsChunking(code.KeyFiles, w.cfg.MaxChunkTokens) {
		return w.generate(ctx, job.Bounty, code, job.Model)
	}

	chunks := chunker.Split(code.KeyFiles, w.cfg.MaxChunkTokens)
	w.log.Info("chunking submission",
		"submission_id", job.SubmissionID, "files", len(code.KeyFiles), "chunks", len(chunks))

	results := make([]models.ReviewResult, 0, len(chunks))
	var tokens int
	var cost float64
	var model string

	for _, c := range chunks {
		gr, err := w.generate(ctx, job.Bounty, review.ChunkContext(code, c), job.Model)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", c.Index, err)
		}
		results = append(results, gr.ReviewResult)
		tokens += gr.TokensUsed
		cost += gr.EstimatedCost
		model = gr.ModelUsed
	}

	merged, err := review.Aggregate(results, job.Bounty)
	if err != nil {
		return nil, err
	}

	return &models.GeneratedReview{
		ReviewResult:  merged,
		TokensUsed:    tokens,
		ModelUsed:     model,
		EstimatedCost: cost,
	}, nil
}
