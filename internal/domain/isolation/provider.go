package isolation

import (
	"github.com/okian/miniiso/internal/domain/cone"
	"github.com/okian/miniiso/internal/domain/model"
)

// EventBinder holds event-scoped state. SetCurrentEvent must be called once
// per event before any sum is requested for a candidate of that event, and
// queries for two events must not be interleaved without it.
type EventBinder interface {
	SetCurrentEvent(ev model.EventContext) error
}

// SumProvider returns cone sums around candidates of type C for the current
// event. Sums are transverse-momentum sums in GeV.
type SumProvider[C any] interface {
	EventBinder
	ChargedSum(cand C, g cone.Geometry) (float64, error)
	PileupSum(cand C, g cone.Geometry) (float64, error)
}

// ElectronSumProvider exposes the photon and neutral-hadron split, raw and
// weighted by per-particle pileup weights.
type ElectronSumProvider interface {
	SumProvider[*model.Electron]
	PhotonSumRaw(el *model.Electron, g cone.Geometry) (float64, error)
	NeutralHadronSumRaw(el *model.Electron, g cone.Geometry) (float64, error)
	PhotonSumWeighted(el *model.Electron, g cone.Geometry) (float64, error)
	NeutralHadronSumWeighted(el *model.Electron, g cone.Geometry) (float64, error)
}

// MuonSumProvider exposes only the combined neutral sums.
type MuonSumProvider interface {
	SumProvider[*model.Muon]
	NeutralSumRaw(mu *model.Muon, g cone.Geometry) (float64, error)
	NeutralSumWeighted(mu *model.Muon, g cone.Geometry) (float64, error)
}

// AreaTable maps pseudorapidity to an effective area.
type AreaTable interface {
	Lookup(eta float64) float64
}
