// Package isolation computes mini-isolation variables for electrons and
// muons.
//
// The outer cone radius follows cone.Radius. Raw cone sums are obtained from
// a SumProvider, an external collaborator that must be told the current
// event (SetCurrentEvent) before it is queried for any candidate of that
// event. The neutral part of the isolation is then corrected for pileup
// under four schemes:
//
//	weights   per-particle pileup weights, no rho
//	raw       no correction
//	rhoArea   max(0, raw - rho * A(eta) * (R/0.3)^2)
//	deltaBeta max(0, raw - 0.5 * pileup)
//
// For each scheme the record carries the neutral part, the absolute
// isolation (charged + neutral) and the relative isolation (absolute / pt).
//
// Candidates with a missing reference still produce every variable: the
// radius is 0, every sum and neutral part is -1 and pt is taken as -1, so
// the absolute isolations are -2 and the relative ones 2.
package isolation
