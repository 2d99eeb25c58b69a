// Package impact computes track impact parameters with respect to the
// primary vertex of the event.
package impact

import (
	"context"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/okian/miniiso/internal/domain/model"
	"github.com/okian/miniiso/internal/domain/record"
)

// Variable names, in output order.
const (
	VarDxy = "dxy"
	VarDz  = "dz"
	VarDca = "dca"
)

const fieldCount = 3

// Transverse returns the signed transverse impact parameter of t with
// respect to pv.
func Transverse(t model.Track, pv r3.Vec) float64 {
	d := r3.Sub(t.Reference, pv)
	p := t.Momentum
	return (-d.X*p.Y + d.Y*p.X) / math.Hypot(p.X, p.Y)
}

// Longitudinal returns the longitudinal impact parameter of t with respect
// to pv.
func Longitudinal(t model.Track, pv r3.Vec) float64 {
	d := r3.Sub(t.Reference, pv)
	p := t.Momentum
	pt := math.Hypot(p.X, p.Y)
	return d.Z - (d.X*p.X+d.Y*p.Y)/pt*(p.Z/pt)
}

// Significance returns the 3D impact parameter over its uncertainty. A
// zero uncertainty is not trapped.
func Significance(ip model.ImpactParameter) float64 {
	return ip.Value / ip.Error
}

func build(track *model.Track, ip *model.ImpactParameter, ev model.EventContext) *record.Record {
	var dxy, dz, dca float64
	if track != nil && ev != nil {
		if pv, ok := ev.PrimaryVertex(); ok {
			dxy = Transverse(*track, pv.Position)
			dz = Longitudinal(*track, pv.Position)
		}
	}
	if ip != nil {
		dca = Significance(*ip)
	}

	rec := record.New(fieldCount)
	rec.Add(VarDxy, dxy)
	rec.Add(VarDz, dz)
	rec.Add(VarDca, dca)
	return rec
}

// ElectronTool evaluates electron impact parameters from the GSF track.
type ElectronTool struct{}

var _ record.Evaluator[*model.Electron] = ElectronTool{}

// Evaluate implements record.Evaluator. It never fails.
func (ElectronTool) Evaluate(_ context.Context, el *model.Electron, ev model.EventContext) (*record.Record, error) {
	if el == nil {
		return build(nil, nil, ev), nil
	}
	return build(el.GsfTrack, &el.IP3D, ev), nil
}

// MuonTool evaluates muon impact parameters from the best track.
type MuonTool struct{}

var _ record.Evaluator[*model.Muon] = MuonTool{}

// Evaluate implements record.Evaluator. It never fails.
func (MuonTool) Evaluate(_ context.Context, mu *model.Muon, ev model.EventContext) (*record.Record, error) {
	if mu == nil {
		return build(nil, nil, ev), nil
	}
	return build(mu.BestTrack, &mu.IP3D, ev), nil
}
