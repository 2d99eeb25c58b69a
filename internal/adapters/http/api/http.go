// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/miniiso/internal/adapters/repository"
	service "github.com/okian/miniiso/internal/app"
	"github.com/okian/miniiso/internal/domain/model"
	"github.com/okian/miniiso/pkg/metrics"
)

// maxBodyBytes bounds a submitted event payload.
const maxBodyBytes = 8 << 20

// Dependencies required by HTTP handlers.
type Dependencies interface {
	// Submit queues an event for asynchronous evaluation.
	Submit(ctx context.Context, ev *model.Event) (string, error)
	// Evaluate evaluates an event synchronously.
	Evaluate(ctx context.Context, ev *model.Event) (repository.EventResult, error)
	// Result returns the result of a submitted event.
	Result(ctx context.Context, id string) (repository.EventResult, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	eventsHandler   *EventsHandler
	evaluateHandler *EvaluateHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		eventsHandler:   NewEventsHandler(deps),
		evaluateHandler: NewEvaluateHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /events", MetricsMiddleware(s.eventsHandler.HandlePostEvent, "events"))
	mux.HandleFunc("GET /events/{id}", MetricsMiddleware(s.eventsHandler.HandleGetEvent, "event"))
	mux.HandleFunc("POST /evaluate", MetricsMiddleware(s.evaluateHandler.HandleEvaluate, "evaluate"))
}

type ackResponse struct {
	Status  string `json:"status"`
	EventID string `json:"event_id"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		metrics.RecordErrorByComponent("http", "encode")
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse{Code: "internal", Message: err.Error()})
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// decodeEvent reads one event from the request body.
func decodeEvent(w http.ResponseWriter, r *http.Request) (*model.Event, error) {
	var ev model.Event
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&ev); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	if dec.More() {
		return nil, errors.New("trailing data after event")
	}
	return &ev, nil
}

// classify maps service errors onto an HTTP status, a response code and
// an API error kind.
func classify(err error) (int, string, error) {
	switch {
	case errors.Is(err, service.ErrInvalidEvent):
		return http.StatusBadRequest, "bad_request", ErrBadRequest
	case errors.Is(err, service.ErrDuplicate):
		return http.StatusConflict, "duplicate", ErrDuplicate
	case errors.Is(err, service.ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure", ErrBackpressure
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not_found", ErrNotFound
	case errors.Is(err, service.ErrEvaluateFailed):
		return http.StatusUnprocessableEntity, "evaluation_failed", ErrEvaluation
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable", ErrInternal
	default:
		return http.StatusInternalServerError, "internal_error", ErrInternal
	}
}
