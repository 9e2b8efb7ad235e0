package gatesim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/garage/pkg/logger"
)

// Submission outcomes.
const (
	outcomeAccepted  = "accepted"
	outcomeDuplicate = "duplicate"
	outcomeRejected  = "rejected"
	outcomeFailed    = "failed"
)

// HTTPClient wraps http.Client with a base URL.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with a JSON body.
func (c *HTTPClient) Post(ctx context.Context, path string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// getJSON decodes the body of GET path into v.
func (c *HTTPClient) getJSON(ctx context.Context, path string, v any) error {
	resp, err := c.Get(ctx, path)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// submitEvents posts events with a pool of workers and tallies the outcomes.
func submitEvents(ctx context.Context, client *HTTPClient, workers int, events []Event) Counts {
	var accepted, duplicate, rejected, failed atomic.Int64

	ch := make(chan Event, workers*2)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for e := range ch {
				switch submitSingleEvent(ctx, client, e) {
				case outcomeAccepted:
					accepted.Add(1)
				case outcomeDuplicate:
					duplicate.Add(1)
				case outcomeRejected:
					rejected.Add(1)
				default:
					failed.Add(1)
				}
			}
		}()
	}

	submitted := 0
loop:
	for _, e := range events {
		select {
		case <-ctx.Done():
			break loop
		case ch <- e:
			submitted++
		}
	}
	close(ch)
	wg.Wait()

	return Counts{
		Submitted: submitted,
		Accepted:  int(accepted.Load()),
		Duplicate: int(duplicate.Load()),
		Rejected:  int(rejected.Load()),
		Failed:    int(failed.Load()),
	}
}

// submitSingleEvent posts one event and classifies the answer.
func submitSingleEvent(ctx context.Context, client *HTTPClient, e Event) string {
	resp, err := client.Post(ctx, "/gate-events", e)
	if err != nil {
		logger.Get().Debug(ctx, "gate event failed", logger.String("event_id", e.EventID), logger.Error(err))
		return outcomeFailed
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return outcomeFailed
	}
	var ack AckResponse
	_ = json.Unmarshal(body, &ack)

	switch resp.StatusCode {
	case http.StatusAccepted:
		return outcomeAccepted
	case http.StatusOK:
		if ack.Duplicate {
			return outcomeDuplicate
		}
		return outcomeAccepted
	case http.StatusBadRequest, http.StatusTooManyRequests:
		logger.Get().Debug(ctx, "gate event rejected",
			logger.String("event_id", e.EventID),
			logger.Int("status", resp.StatusCode),
			logger.String("body", string(body)))
		return outcomeRejected
	default:
		return outcomeFailed
	}
}
