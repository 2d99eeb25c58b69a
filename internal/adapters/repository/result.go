package repository

import (
	"time"

	"github.com/okian/miniiso/internal/domain/model"
	"github.com/okian/miniiso/internal/domain/record"
)

// Status is the processing state of a submitted event.
type Status string

// Event states.
const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// CandidateResult holds every variable evaluated for one lepton.
type CandidateResult struct {
	Kind  model.Kind     `json:"kind"`
	Index int            `json:"index"`
	Vars  *record.Record `json:"vars"`
}

// EventResult is the evaluation outcome of one event.
type EventResult struct {
	EventID     string            `json:"event_id"`
	Run         uint32            `json:"run"`
	Lumi        uint32            `json:"lumi"`
	Number      uint64            `json:"event"`
	Status      Status            `json:"status"`
	Error       string            `json:"error,omitempty"`
	Electrons   []CandidateResult `json:"electrons"`
	Muons       []CandidateResult `json:"muons"`
	ProcessedAt time.Time         `json:"processed_at,omitzero"`
}
