package testevents

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

	"github.com/okian/miniiso/internal/domain/model"
	"github.com/okian/miniiso/pkg/logger"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client *http.Client
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(ctx context.Context, url string, body any) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// submitOutcome classifies one submission.
type submitOutcome int

const (
	outcomeAccepted submitOutcome = iota
	outcomeDuplicate
	outcomeRejected
	outcomeFailed
)

// submitEvents submits events concurrently and returns the IDs the service
// accepted.
func submitEvents(ctx context.Context, config *Config, events []*model.Event, stats *Stats) []string {
	log := logger.Get()
	log.Info(ctx, "submitting events", logger.Int("events", len(events)), logger.Int("workers", config.Workers))

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/events"

	var accepted, duplicate, rejected, failed, submitted atomic.Int64

	var (
		idsMu sync.Mutex
		ids   = make([]string, 0, len(events))
	)

	eventChan := make(chan *model.Event, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for range config.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for event := range eventChan {
				id, outcome := submitSingleEvent(ctx, client, url, event)
				n := submitted.Add(1)
				switch outcome {
				case outcomeAccepted:
					accepted.Add(1)
					idsMu.Lock()
					ids = append(ids, id)
					idsMu.Unlock()
				case outcomeDuplicate:
					duplicate.Add(1)
				case outcomeRejected:
					rejected.Add(1)
				case outcomeFailed:
					failed.Add(1)
				}
				if config.Verbose && n%1000 == 0 {
					log.Info(ctx, "progress", logger.Int("submitted", int(n)), logger.Int("total", len(events)))
				}
			}
		}()
	}

	go func() {
		defer close(eventChan)
		for _, event := range events {
			select {
			case <-ctx.Done():
				return
			case eventChan <- event:
			}
		}
	}()

	wg.Wait()

	stats.EventsSubmitted = int(submitted.Load())
	stats.EventsAccepted = int(accepted.Load())
	stats.EventsDuplicate = int(duplicate.Load())
	stats.EventsRejected = int(rejected.Load())
	stats.EventsFailed = int(failed.Load())

	log.Info(ctx, "event submission completed",
		logger.Int("accepted", stats.EventsAccepted),
		logger.Int("duplicate", stats.EventsDuplicate),
		logger.Int("rejected", stats.EventsRejected),
		logger.Int("failed", stats.EventsFailed))
	return ids
}

// submitSingleEvent submits a single event and classifies the answer.
func submitSingleEvent(ctx context.Context, client *HTTPClient, url string, event *model.Event) (string, submitOutcome) {
	resp, err := client.Post(ctx, url, event)
	if err != nil {
		return "", outcomeFailed
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", outcomeFailed
	}

	switch resp.StatusCode {
	case http.StatusAccepted:
		var ack ackResponse
		if err := json.Unmarshal(body, &ack); err != nil || ack.EventID == "" {
			return event.ID, outcomeAccepted
		}
		return ack.EventID, outcomeAccepted
	case http.StatusConflict:
		return "", outcomeDuplicate
	case http.StatusTooManyRequests:
		return "", outcomeRejected
	default:
		return "", outcomeFailed
	}
}
