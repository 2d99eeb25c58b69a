package isolation

import (
	"math"

	"github.com/okian/miniiso/internal/domain/record"
)

// Scheme names a pileup-correction scheme.
type Scheme string

// Pileup-correction schemes, in output order.
const (
	SchemeWeights   Scheme = "weights"
	SchemeRaw       Scheme = "raw"
	SchemeRhoArea   Scheme = "rhoArea"
	SchemeDeltaBeta Scheme = "deltaBeta"
)

// Schemes returns every scheme in output order.
func Schemes() []Scheme {
	return []Scheme{SchemeWeights, SchemeRaw, SchemeRhoArea, SchemeDeltaBeta}
}

const (
	// referenceRadius is the cone the effective areas are calibrated for.
	referenceRadius = 0.3
	// deltaBetaFactor approximates the neutral to charged pileup energy ratio.
	deltaBetaFactor = 0.5

	sentinel = -1.0
)

// Variable names shared by both lepton kinds.
const (
	VarRadius           = "miniIso_R"
	VarAbsCharged       = "miniIso_AbsCharged"
	VarAbsPhoton        = "miniIso_AbsPho"
	VarAbsNeutralHadron = "miniIso_AbsNHad"
	VarAbsPileup        = "miniIso_AbsPU"
)

// AbsNeutralVar names the neutral contribution under s.
func AbsNeutralVar(s Scheme) string { return "miniIso_AbsNeutral_" + string(s) }

// AbsVar names the absolute isolation under s.
func AbsVar(s Scheme) string { return "miniIso_Abs_" + string(s) }

// RelVar names the relative isolation under s.
func RelVar(s Scheme) string { return "miniIso_Rel_" + string(s) }

// Inputs are the quantities the corrections are computed from.
type Inputs struct {
	Pileup          float64 // charged pileup sum
	NeutralRaw      float64
	NeutralWeighted float64
	Rho             float64
	Area            float64 // effective area at the candidate eta
	Radius          float64
}

// Neutral holds the neutral contribution under each scheme.
type Neutral struct {
	Weights   float64
	Raw       float64
	RhoArea   float64
	DeltaBeta float64
}

// Of returns the contribution for s.
func (n Neutral) Of(s Scheme) float64 {
	switch s {
	case SchemeWeights:
		return n.Weights
	case SchemeRaw:
		return n.Raw
	case SchemeRhoArea:
		return n.RhoArea
	case SchemeDeltaBeta:
		return n.DeltaBeta
	default:
		return math.NaN()
	}
}

// sentinelNeutral is what candidates with a missing reference report.
var sentinelNeutral = Neutral{Weights: sentinel, Raw: sentinel, RhoArea: sentinel, DeltaBeta: sentinel}

// Correct computes the neutral contribution under every scheme.
func Correct(in Inputs) Neutral {
	return Neutral{
		Weights:   in.NeutralWeighted,
		Raw:       in.NeutralRaw,
		RhoArea:   RhoAreaNeutral(in.NeutralRaw, in.Rho, in.Area, in.Radius),
		DeltaBeta: DeltaBetaNeutral(in.NeutralRaw, in.Pileup),
	}
}

// RhoAreaNeutral subtracts the expected pileup energy rho*A, with A scaled
// from the reference cone to radius. The result is never negative.
func RhoAreaNeutral(neutralRaw, rho, area, radius float64) float64 {
	scale := radius / referenceRadius
	return math.Max(0, neutralRaw-rho*area*scale*scale)
}

// DeltaBetaNeutral subtracts half the charged pileup sum. The result is
// never negative.
func DeltaBetaNeutral(neutralRaw, pileup float64) float64 {
	return math.Max(0, neutralRaw-deltaBetaFactor*pileup)
}

// addSchemes appends the neutral, absolute and relative isolation of every
// scheme. pt is not checked: a non-positive pt yields a degenerate ratio.
func addSchemes(rec *record.Record, charged, pt float64, n Neutral) {
	for _, s := range Schemes() {
		neutral := n.Of(s)
		abs := charged + neutral
		rec.Add(AbsNeutralVar(s), neutral)
		rec.Add(AbsVar(s), abs)
		rec.Add(RelVar(s), abs/pt)
	}
}
