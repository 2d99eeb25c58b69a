// Package model contains domain models passed between layers.
package model

import (
	"strconv"

	"gonum.org/v1/gonum/spatial/r3"
)

// Kind names a lepton flavour.
type Kind string

// Lepton kinds.
const (
	KindElectron Kind = "electron"
	KindMuon     Kind = "muon"
)

// SuperCluster is the calorimeter cluster an electron was reconstructed from.
type SuperCluster struct {
	Eta    float64 `json:"eta"`
	Phi    float64 `json:"phi"`
	Energy float64 `json:"energy"`
}

// Track is a helix summarised at its reference point: the point of closest
// approach to the beam line and the momentum there (GeV).
type Track struct {
	Reference r3.Vec `json:"reference"`
	Momentum  r3.Vec `json:"momentum"`
}

// ImpactParameter is a 3D impact parameter and its uncertainty.
type ImpactParameter struct {
	Value float64 `json:"value"`
	Error float64 `json:"error"`
}

// Electron is a reconstructed electron candidate. A nil SuperCluster or
// GsfTrack means the reference is missing.
type Electron struct {
	Pt           float64         `json:"pt"`
	Eta          float64         `json:"eta"`
	Phi          float64         `json:"phi"`
	IsEB         bool            `json:"is_eb"` // barrel region
	SuperCluster *SuperCluster   `json:"super_cluster,omitempty"`
	GsfTrack     *Track          `json:"gsf_track,omitempty"`
	IP3D         ImpactParameter `json:"ip3d"`
}

// Muon is a reconstructed muon candidate. A nil BestTrack means the
// reference is missing.
type Muon struct {
	Pt        float64         `json:"pt"`
	Eta       float64         `json:"eta"`
	Phi       float64         `json:"phi"`
	BestTrack *Track          `json:"best_track,omitempty"`
	IP3D      ImpactParameter `json:"ip3d"`
}

// Vertex is a reconstructed primary vertex.
type Vertex struct {
	Position r3.Vec `json:"position"`
}

// ConeSums holds the cone sums an upstream isolation engine produced for one
// candidate in its mini-isolation cone. Electron sums use the photon and
// neutral-hadron split; muon sums use the combined neutral fields.
type ConeSums struct {
	Charged               float64 `json:"charged"`
	Pileup                float64 `json:"pileup"`
	PhotonRaw             float64 `json:"photon_raw"`
	NeutralHadronRaw      float64 `json:"neutral_hadron_raw"`
	PhotonWeighted        float64 `json:"photon_weighted"`
	NeutralHadronWeighted float64 `json:"neutral_hadron_weighted"`
	NeutralRaw            float64 `json:"neutral_raw"`
	NeutralWeighted       float64 `json:"neutral_weighted"`
}

// EventContext is the per-event information evaluators may read.
type EventContext interface {
	// PileupDensity returns rho, or 0 when unavailable.
	PileupDensity() float64
	// PrimaryVertex returns the selected primary vertex, if any.
	PrimaryVertex() (Vertex, bool)
}

// Event is one collision event as submitted for evaluation.
type Event struct {
	ID        string              `json:"event_id"`
	Run       uint32              `json:"run"`
	Lumi      uint32              `json:"lumi"`
	Number    uint64              `json:"event"`
	Rho       *float64            `json:"rho,omitempty"`
	PV        *Vertex             `json:"pv,omitempty"`
	Electrons []*Electron         `json:"electrons"`
	Muons     []*Muon             `json:"muons"`
	Sums      map[string]ConeSums `json:"sums,omitempty"`
}

// PileupDensity implements EventContext.
func (e *Event) PileupDensity() float64 {
	if e == nil || e.Rho == nil {
		return 0
	}
	return *e.Rho
}

// PrimaryVertex implements EventContext.
func (e *Event) PrimaryVertex() (Vertex, bool) {
	if e == nil || e.PV == nil {
		return Vertex{}, false
	}
	return *e.PV, true
}

// RecordedSums returns the upstream cone sums stored under key.
func (e *Event) RecordedSums(key string) (ConeSums, bool) {
	if e == nil {
		return ConeSums{}, false
	}
	s, ok := e.Sums[key]
	return s, ok
}

// CandidateKey builds the key candidates are addressed by within an event,
// e.g. "electron/0".
func CandidateKey(kind Kind, index int) string {
	return string(kind) + "/" + strconv.Itoa(index)
}
