// Package cone holds the adaptive cone-size policy and the geometry of a
// single isolation-sum query.
package cone

// Radius policy constants. The radius shrinks as 1/pt between the two pt
// bounds and is constant outside them.
const (
	radiusScale = 10.0  // GeV
	minPt       = 50.0  // GeV; radius is 0.2 below
	maxPt       = 200.0 // GeV; radius is 0.05 above
)

// Radius returns the outer mini-isolation radius for a candidate of
// transverse momentum pt: 10/pt with pt clamped to [50, 200] GeV.
func Radius(pt float64) float64 {
	return radiusScale / min(max(pt, minPt), maxPt)
}

// SelfVeto selects how the candidate's own particles are kept out of its
// cone sum.
type SelfVeto int

// Self-veto policies understood by isolation-sum providers.
const (
	SelfVetoNone SelfVeto = iota
	SelfVetoAll
	SelfVetoFirst
	SelfVetoDaughters
)

func (v SelfVeto) String() string {
	switch v {
	case SelfVetoNone:
		return "none"
	case SelfVetoAll:
		return "all"
	case SelfVetoFirst:
		return "first"
	case SelfVetoDaughters:
		return "daughters"
	default:
		return "unknown"
	}
}

// Geometry describes one cone-sum query: particles with
// InnerVeto < ΔR < Outer and pt > Threshold.
type Geometry struct {
	Outer     float64
	InnerVeto float64
	Threshold float64 // GeV
	SelfVeto  SelfVeto
}
