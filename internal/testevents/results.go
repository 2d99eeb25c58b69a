package testevents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/okian/miniiso/internal/adapters/repository"
	"github.com/okian/miniiso/internal/domain/model"
	"github.com/okian/miniiso/pkg/logger"
)

var errResultMismatch = errors.New("result does not match submitted event")

// retrieveResults fetches the result of every accepted event, polling each
// one until it leaves the pending state or WaitTimeout passes.
func retrieveResults(ctx context.Context, config *Config, ids []string) (map[string]repository.EventResult, error) {
	logger.Get().Info(ctx, "retrieving results", logger.Int("events", len(ids)))

	client := newHTTPClient(config.Timeout)
	deadline := time.Now().Add(config.WaitTimeout)

	var (
		mu       sync.Mutex
		results  = make(map[string]repository.EventResult, len(ids))
		firstErr error
	)

	idChan := make(chan string, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup
	for range config.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range idChan {
				res, err := pollResult(ctx, client, config.BaseURL, id, deadline)
				mu.Lock()
				if err != nil && firstErr == nil {
					firstErr = err
				}
				if err == nil {
					results[id] = res
				}
				mu.Unlock()
			}
		}()
	}

	for _, id := range ids {
		idChan <- id
	}
	close(idChan)
	wg.Wait()

	if firstErr != nil {
		return results, firstErr
	}
	return results, nil
}

func pollResult(ctx context.Context, client *HTTPClient, baseURL, id string, deadline time.Time) (repository.EventResult, error) {
	for {
		res, err := retrieveSingleResult(ctx, client, baseURL, id)
		if err != nil {
			return res, err
		}
		if res.Status != repository.StatusPending || time.Now().After(deadline) {
			return res, nil
		}
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		case <-time.After(resultPollInterval):
		}
	}
}

// retrieveSingleResult fetches GET /events/{id}.
func retrieveSingleResult(ctx context.Context, client *HTTPClient, baseURL, id string) (repository.EventResult, error) {
	resp, err := client.Get(ctx, baseURL+"/events/"+id)
	if err != nil {
		return repository.EventResult{}, fmt.Errorf("failed to get result %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return repository.EventResult{}, fmt.Errorf("result %s: unexpected status %d", id, resp.StatusCode)
	}
	var res repository.EventResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return repository.EventResult{}, fmt.Errorf("failed to decode result %s: %w", id, err)
	}
	return res, nil
}

// verifyResults checks that every finished result has one record per
// submitted candidate with the expected number of variables.
func verifyResults(ctx context.Context, events []*model.Event, results map[string]repository.EventResult, stats *Stats) error {
	byID := make(map[string]*model.Event, len(events))
	for _, ev := range events {
		byID[ev.ID] = ev
	}

	var errs []error
	for id, res := range results {
		switch res.Status {
		case repository.StatusPending:
			stats.ResultsPending++
			continue
		case repository.StatusFailed:
			stats.ResultsFailed++
			continue
		case repository.StatusDone:
			stats.ResultsDone++
		}

		ev, ok := byID[id]
		if !ok {
			errs = append(errs, fmt.Errorf("%w: unknown event %s", errResultMismatch, id))
			continue
		}
		if err := verifyCandidates(res.Electrons, len(ev.Electrons), electronVarCount); err != nil {
			errs = append(errs, fmt.Errorf("event %s electrons: %w", id, err))
		}
		if err := verifyCandidates(res.Muons, len(ev.Muons), muonVarCount); err != nil {
			errs = append(errs, fmt.Errorf("event %s muons: %w", id, err))
		}
		stats.CandidatesChecked += len(res.Electrons) + len(res.Muons)
	}

	logger.Get().Info(ctx, "results verified",
		logger.Int("done", stats.ResultsDone),
		logger.Int("failed", stats.ResultsFailed),
		logger.Int("pending", stats.ResultsPending),
		logger.Int("candidates", stats.CandidatesChecked),
		logger.Int("mismatches", len(errs)))
	return errors.Join(errs...)
}

func verifyCandidates(got []repository.CandidateResult, want, vars int) error {
	if len(got) != want {
		return fmt.Errorf("%w: %d candidates, want %d", errResultMismatch, len(got), want)
	}
	for i, c := range got {
		if c.Index != i {
			return fmt.Errorf("%w: candidate %d has index %d", errResultMismatch, i, c.Index)
		}
		n := 0
		if c.Vars != nil {
			n = c.Vars.Len()
		}
		if n != vars {
			return fmt.Errorf("%w: candidate %d has %d variables, want %d", errResultMismatch, i, n, vars)
		}
	}
	return nil
}
