package isolation

import (
	"context"

	"github.com/okian/miniiso/internal/domain/cone"
	"github.com/okian/miniiso/internal/domain/model"
	"github.com/okian/miniiso/internal/domain/record"
	"github.com/okian/miniiso/pkg/logger"
)

// Electron inner veto radii outside the barrel, where showers are wider.
const (
	endcapChargedVeto = 0.015
	endcapPhotonVeto  = 0.08
)

const electronFieldCount = 17

// ElectronAggregator computes electron mini-isolation.
type ElectronAggregator struct {
	provider ElectronSumProvider
	areas    AreaTable
	logger   logger.Logger
}

var _ record.Evaluator[*model.Electron] = (*ElectronAggregator)(nil)

// NewElectronAggregator builds an aggregator reading sums from provider and
// effective areas, keyed by supercluster eta, from areas.
func NewElectronAggregator(provider ElectronSumProvider, areas AreaTable, opts ...Option) (*ElectronAggregator, error) {
	if provider == nil {
		return nil, ErrNilProvider
	}
	if areas == nil {
		return nil, ErrNilAreaTable
	}
	o := buildOptions("electron_miniiso", opts)
	return &ElectronAggregator{provider: provider, areas: areas, logger: o.logger}, nil
}

// electronSums are the raw provider outputs for one electron.
type electronSums struct {
	charged        float64
	pileup         float64
	photonRaw      float64
	hadronRaw      float64
	photonWeighted float64
	hadronWeighted float64
}

// Evaluate returns the 17 electron mini-isolation variables. The provider
// must already be bound to ev. Provider errors are returned as is.
func (a *ElectronAggregator) Evaluate(ctx context.Context, el *model.Electron, ev model.EventContext) (*record.Record, error) {
	valid := el != nil && el.SuperCluster != nil
	if !valid {
		a.logger.Debug(ctx, "null electron",
			logger.Bool("candidate_missing", el == nil),
			logger.Bool("supercluster_missing", el == nil || el.SuperCluster == nil),
		)
	}

	radius, pt := 0.0, sentinel
	sums := electronSums{sentinel, sentinel, sentinel, sentinel, sentinel, sentinel}
	neutral := sentinelNeutral
	if valid {
		radius = cone.Radius(el.Pt)
		pt = el.Pt

		var err error
		if sums, err = a.querySums(el, radius); err != nil {
			return nil, err
		}
		neutral = Correct(Inputs{
			Pileup:          sums.pileup,
			NeutralRaw:      sums.photonRaw + sums.hadronRaw,
			NeutralWeighted: sums.photonWeighted + sums.hadronWeighted,
			Rho:             pileupDensity(ev),
			Area:            a.areas.Lookup(el.SuperCluster.Eta),
			Radius:          radius,
		})
	}

	rec := record.New(electronFieldCount)
	rec.Add(VarRadius, radius)
	rec.Add(VarAbsCharged, sums.charged)
	rec.Add(VarAbsPhoton, sums.photonRaw)
	rec.Add(VarAbsNeutralHadron, sums.hadronRaw)
	rec.Add(VarAbsPileup, sums.pileup)
	addSchemes(rec, sums.charged, pt, neutral)
	return rec, nil
}

func (a *ElectronAggregator) querySums(el *model.Electron, radius float64) (electronSums, error) {
	var chargedVeto, photonVeto float64
	if !el.IsEB {
		chargedVeto, photonVeto = endcapChargedVeto, endcapPhotonVeto
	}
	charged := cone.Geometry{Outer: radius, InnerVeto: chargedVeto, SelfVeto: cone.SelfVetoNone}
	photon := cone.Geometry{Outer: radius, InnerVeto: photonVeto, SelfVeto: cone.SelfVetoNone}
	hadron := cone.Geometry{Outer: radius, SelfVeto: cone.SelfVetoNone}

	var s electronSums
	queries := []struct {
		dst *float64
		fn  func(*model.Electron, cone.Geometry) (float64, error)
		g   cone.Geometry
	}{
		{&s.charged, a.provider.ChargedSum, charged},
		{&s.pileup, a.provider.PileupSum, charged},
		{&s.photonRaw, a.provider.PhotonSumRaw, photon},
		{&s.hadronRaw, a.provider.NeutralHadronSumRaw, hadron},
		{&s.photonWeighted, a.provider.PhotonSumWeighted, photon},
		{&s.hadronWeighted, a.provider.NeutralHadronSumWeighted, hadron},
	}
	for _, q := range queries {
		v, err := q.fn(el, q.g)
		if err != nil {
			return electronSums{}, err
		}
		*q.dst = v
	}
	return s, nil
}

func pileupDensity(ev model.EventContext) float64 {
	if ev == nil {
		return 0
	}
	return ev.PileupDensity()
}
