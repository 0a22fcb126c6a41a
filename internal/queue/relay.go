package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RelayQueue is the serverless Dispatcher: events are POSTed to an HTTP
// relay that redelivers them to the worker endpoint. There is no
// persistent queue here, so stats are zeros and the backend is always
// considered connected.
type RelayQueue struct {
	url    string
	token  string
	client *http.Client
}

// NewRelayQueue creates a relay dispatcher for the given endpoint.
func NewRelayQueue(url, token string) *RelayQueue {
	return &RelayQueue{
		url:    url,
		token:  token,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// relayEnvelope is the relay wire format: the event plus delivery hints
// the relay translates into its own retry configuration.
type relayEnvelope struct {
	JobID    string  `json:"jobId"`
	Event    Event   `json:"event"`
	Queue    string  `json:"queue"`
	Attempts int     `json:"attempts,omitempty"`
	DelayMs  int64   `json:"delayMs,omitempty"`
	Backoff  Backoff `json:"backoff,omitempty"`
}

func (r *RelayQueue) Send(ctx context.Context, event Event, opts JobOptions) (string, error) {
	env := relayEnvelope{
		JobID:    newJobID(),
		Event:    event,
		Queue:    QueueFor(event.Name),
		Attempts: opts.Attempts,
		DelayMs:  opts.Delay.Milliseconds(),
		Backoff:  opts.Backoff,
	}

	payload, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("marshal relay envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", r.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("relay send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("relay error (status %d): %s", resp.StatusCode, string(body))
	}

	return env.JobID, nil
}

func (r *RelayQueue) SendBatch(ctx context.Context, events []Event, opts JobOptions) ([]string, error) {
	ids := make([]string, 0, len(events))
	for _, event := range events {
		id, err := r.Send(ctx, event, opts)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// IsConnected always reports true: the relay holds no connection.
func (r *RelayQueue) IsConnected(ctx context.Context) bool { return true }

// Stats returns zeros: the relay keeps no queue state to count.
func (r *RelayQueue) Stats(ctx context.Context) (QueueStats, error) {
	return QueueStats{}, nil
}

func (r *RelayQueue) Health(ctx context.Context) HealthStatus {
	return HealthStatus{Healthy: true, Details: "relay backend (stateless)"}
}

func (r *RelayQueue) Close() error { return nil }
