package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "reviewd:"

// Job is the broker-side envelope wrapping an event with its retry state.
type Job struct {
	ID         string     `json:"id"`
	Queue      string     `json:"queue"`
	Event      Event      `json:"event"`
	Opts       JobOptions `json:"opts"`
	Attempt    int        `json:"attempt"`
	EnqueuedAt time.Time  `json:"enqueuedAt"`
	LastError  string     `json:"lastError,omitempty"`
}

// RedisQueue is the broker-backed Dispatcher. Each physical queue is a
// Redis list; delayed and retried jobs wait in a per-queue sorted set
// scored by ready time until Dequeue promotes them.
type RedisQueue struct {
	client *redis.Client
}

// NewRedisQueue connects to the broker at the given URL
// (redis://[:password@]host:port/db).
func NewRedisQueue(redisURL string) (*RedisQueue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &RedisQueue{client: redis.NewClient(opts)}, nil
}

func waitingKey(queue string) string { return keyPrefix + "queue:" + queue }
func delayedKey(queue string) string { return keyPrefix + "delayed:" + queue }

func completedKey(queue string) string { return keyPrefix + "completed:" + queue }
func failedKey(queue string) string    { return keyPrefix + "failed:" + queue }

const activeKey = keyPrefix + "active"

func (q *RedisQueue) Send(ctx context.Context, event Event, opts JobOptions) (string, error) {
	job := Job{
		ID:         newJobID(),
		Queue:      QueueFor(event.Name),
		Event:      event,
		Opts:       opts,
		Attempt:    0,
		EnqueuedAt: time.Now().UTC(),
	}
	if err := q.push(ctx, job, opts.Delay); err != nil {
		return "", err
	}
	return job.ID, nil
}

func (q *RedisQueue) SendBatch(ctx context.Context, events []Event, opts JobOptions) ([]string, error) {
	ids := make([]string, 0, len(events))
	pipe := q.client.Pipeline()
	now := time.Now().UTC()

	for _, event := range events {
		job := Job{
			ID:         newJobID(),
			Queue:      QueueFor(event.Name),
			Event:      event,
			Opts:       opts,
			EnqueuedAt: now,
		}
		payload, err := json.Marshal(job)
		if err != nil {
			return nil, fmt.Errorf("marshal job: %w", err)
		}
		if opts.Delay > 0 {
			readyAt := float64(now.Add(opts.Delay).UnixMilli())
			pipe.ZAdd(ctx, delayedKey(job.Queue), redis.Z{Score: readyAt, Member: payload})
		} else {
			pipe.LPush(ctx, waitingKey(job.Queue), payload)
		}
		ids = append(ids, job.ID)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("enqueue batch: %w", err)
	}
	return ids, nil
}

func (q *RedisQueue) push(ctx context.Context, job Job, delay time.Duration) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if delay > 0 {
		readyAt := float64(time.Now().Add(delay).UnixMilli())
		if err := q.client.ZAdd(ctx, delayedKey(job.Queue), redis.Z{Score: readyAt, Member: payload}).Err(); err != nil {
			return fmt.Errorf("enqueue delayed job: %w", err)
		}
		return nil
	}
	if err := q.client.LPush(ctx, waitingKey(job.Queue), payload).Err(); err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	return nil
}

// Dequeue pops the next ready job from the named queue, blocking up to
// timeout. Due delayed jobs are promoted to the waiting list first.
// Returns nil when the timeout elapses with no work.
func (q *RedisQueue) Dequeue(ctx context.Context, queueName string, timeout time.Duration) (*Job, error) {
	if err := q.promoteDue(ctx, queueName); err != nil {
		return nil, err
	}

	res, err := q.client.BRPop(ctx, timeout, waitingKey(queueName)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dequeue: %w", err)
	}

	var job Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}

	q.client.Incr(ctx, activeKey)
	return &job, nil
}

// promoteDue moves delayed jobs whose ready time has passed onto the
// waiting list.
func (q *RedisQueue) promoteDue(ctx context.Context, queueName string) error {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)

	due, err := q.client.ZRangeByScore(ctx, delayedKey(queueName), &redis.ZRangeBy{
		Min: "-inf",
		Max: now,
	}).Result()
	if err != nil {
		return fmt.Errorf("scan delayed jobs: %w", err)
	}

	for _, payload := range due {
		pipe := q.client.TxPipeline()
		pipe.ZRem(ctx, delayedKey(queueName), payload)
		pipe.LPush(ctx, waitingKey(queueName), payload)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("promote delayed job: %w", err)
		}
	}
	return nil
}

// Complete records a finished job in the bounded completed list.
func (q *RedisQueue) Complete(ctx context.Context, job *Job) error {
	q.client.Decr(ctx, activeKey)
	return q.record(ctx, completedKey(job.Queue), job, job.Opts.KeepCompleted)
}

// Retry re-enqueues a failed job with its backoff delay when attempts
// remain; otherwise it lands in the bounded failed list. Reports whether
// the job was retried.
func (q *RedisQueue) Retry(ctx context.Context, job *Job, cause error) (bool, error) {
	q.client.Decr(ctx, activeKey)

	job.Attempt++
	if cause != nil {
		job.LastError = cause.Error()
	}

	if job.Attempt >= job.Opts.Attempts {
		return false, q.record(ctx, failedKey(job.Queue), job, job.Opts.KeepFailed)
	}

	delay := job.Opts.Backoff.DelayFor(job.Attempt)
	return true, q.push(ctx, *job, delay)
}

func (q *RedisQueue) record(ctx context.Context, key string, job *Job, keep int) error {
	if keep <= 0 {
		keep = 100
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job record: %w", err)
	}
	pipe := q.client.Pipeline()
	pipe.LPush(ctx, key, payload)
	pipe.LTrim(ctx, key, 0, int64(keep)-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record job: %w", err)
	}
	return nil
}

func (q *RedisQueue) IsConnected(ctx context.Context) bool {
	return q.client.Ping(ctx).Err() == nil
}

func (q *RedisQueue) Stats(ctx context.Context) (QueueStats, error) {
	var stats QueueStats

	for _, name := range Queues() {
		waiting, err := q.client.LLen(ctx, waitingKey(name)).Result()
		if err != nil {
			return stats, fmt.Errorf("queue length %s: %w", name, err)
		}
		delayed, err := q.client.ZCard(ctx, delayedKey(name)).Result()
		if err != nil {
			return stats, fmt.Errorf("delayed length %s: %w", name, err)
		}
		completed, err := q.client.LLen(ctx, completedKey(name)).Result()
		if err != nil {
			return stats, fmt.Errorf("completed length %s: %w", name, err)
		}
		failed, err := q.client.LLen(ctx, failedKey(name)).Result()
		if err != nil {
			return stats, fmt.Errorf("failed length %s: %w", name, err)
		}
		stats.Waiting += waiting + delayed
		stats.Completed += completed
		stats.Failed += failed
	}

	active, err := q.client.Get(ctx, activeKey).Int64()
	if err != nil && err != redis.Nil {
		return stats, fmt.Errorf("active count: %w", err)
	}
	stats.Active = active

	return stats, nil
}

func (q *RedisQueue) Health(ctx context.Context) HealthStatus {
	if err := q.client.Ping(ctx).Err(); err != nil {
		return HealthStatus{Healthy: false, Details: err.Error()}
	}
	return HealthStatus{Healthy: true}
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}
