package isolation

import (
	"context"

	"github.com/okian/miniiso/internal/domain/cone"
	"github.com/okian/miniiso/internal/domain/model"
	"github.com/okian/miniiso/internal/domain/record"
	"github.com/okian/miniiso/pkg/logger"
)

// Muon cone parameters.
const (
	muonChargedVeto      = 0.0001
	muonNeutralVeto      = 0.01
	muonNeutralThreshold = 0.5 // GeV, also applied to the pileup sum
)

const muonFieldCount = 15

// MuonAggregator computes muon mini-isolation.
type MuonAggregator struct {
	provider MuonSumProvider
	areas    AreaTable
	logger   logger.Logger
}

var _ record.Evaluator[*model.Muon] = (*MuonAggregator)(nil)

// NewMuonAggregator builds an aggregator reading sums from provider and
// effective areas, keyed by muon eta, from areas.
func NewMuonAggregator(provider MuonSumProvider, areas AreaTable, opts ...Option) (*MuonAggregator, error) {
	if provider == nil {
		return nil, ErrNilProvider
	}
	if areas == nil {
		return nil, ErrNilAreaTable
	}
	o := buildOptions("muon_miniiso", opts)
	return &MuonAggregator{provider: provider, areas: areas, logger: o.logger}, nil
}

// Evaluate returns the 15 muon mini-isolation variables. The provider must
// already be bound to ev. Provider errors are returned as is.
func (a *MuonAggregator) Evaluate(ctx context.Context, mu *model.Muon, ev model.EventContext) (*record.Record, error) {
	valid := mu != nil
	if !valid {
		a.logger.Debug(ctx, "null muon", logger.Bool("candidate_missing", true))
	}

	radius, pt := 0.0, sentinel
	charged, pileup := sentinel, sentinel
	neutral := sentinelNeutral
	if valid {
		radius = cone.Radius(mu.Pt)
		pt = mu.Pt

		chargedCone := cone.Geometry{Outer: radius, InnerVeto: muonChargedVeto, SelfVeto: cone.SelfVetoAll}
		neutralCone := cone.Geometry{Outer: radius, InnerVeto: muonNeutralVeto, Threshold: muonNeutralThreshold, SelfVeto: cone.SelfVetoAll}

		var err error
		if charged, err = a.provider.ChargedSum(mu, chargedCone); err != nil {
			return nil, err
		}
		if pileup, err = a.provider.PileupSum(mu, neutralCone); err != nil {
			return nil, err
		}
		raw, err := a.provider.NeutralSumRaw(mu, neutralCone)
		if err != nil {
			return nil, err
		}
		weighted, err := a.provider.NeutralSumWeighted(mu, neutralCone)
		if err != nil {
			return nil, err
		}
		neutral = Correct(Inputs{
			Pileup:          pileup,
			NeutralRaw:      raw,
			NeutralWeighted: weighted,
			Rho:             pileupDensity(ev),
			Area:            a.areas.Lookup(mu.Eta),
			Radius:          radius,
		})
	}

	rec := record.New(muonFieldCount)
	rec.Add(VarRadius, radius)
	rec.Add(VarAbsCharged, charged)
	rec.Add(VarAbsPileup, pileup)
	addSchemes(rec, charged, pt, neutral)
	return rec, nil
}
