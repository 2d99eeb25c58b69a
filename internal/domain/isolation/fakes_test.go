package isolation_test

import (
	"sync"

	"github.com/okian/miniiso/internal/domain/cone"
	"github.com/okian/miniiso/internal/domain/model"
)

// Sum categories the fakes answer for.
const (
	catCharged        = "charged"
	catPileup         = "pileup"
	catPhotonRaw      = "photon_raw"
	catHadronRaw      = "hadron_raw"
	catPhotonWeighted = "photon_weighted"
	catHadronWeighted = "hadron_weighted"
	catNeutralRaw     = "neutral_raw"
	catNeutralWeight  = "neutral_weighted"
)

// fakeSums answers every query from a fixed table and records the
// geometries it was asked for.
type fakeSums struct {
	mu    sync.Mutex
	sums  map[string]float64
	errs  map[string]error
	calls map[string][]cone.Geometry
	bound model.EventContext
}

func newFakeSums(sums map[string]float64) *fakeSums {
	if sums == nil {
		sums = map[string]float64{}
	}
	return &fakeSums{
		sums:  sums,
		errs:  map[string]error{},
		calls: map[string][]cone.Geometry{},
	}
}

func (f *fakeSums) SetCurrentEvent(ev model.EventContext) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bound = ev
	return nil
}

func (f *fakeSums) query(cat string, g cone.Geometry) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[cat] = append(f.calls[cat], g)
	if err := f.errs[cat]; err != nil {
		return 0, err
	}
	return f.sums[cat], nil
}

func (f *fakeSums) geometries(cat string) []cone.Geometry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]cone.Geometry(nil), f.calls[cat]...)
}

func (f *fakeSums) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += len(c)
	}
	return n
}

type fakeElectronProvider struct{ *fakeSums }

func (p fakeElectronProvider) ChargedSum(_ *model.Electron, g cone.Geometry) (float64, error) {
	return p.query(catCharged, g)
}

func (p fakeElectronProvider) PileupSum(_ *model.Electron, g cone.Geometry) (float64, error) {
	return p.query(catPileup, g)
}

func (p fakeElectronProvider) PhotonSumRaw(_ *model.Electron, g cone.Geometry) (float64, error) {
	return p.query(catPhotonRaw, g)
}

func (p fakeElectronProvider) NeutralHadronSumRaw(_ *model.Electron, g cone.Geometry) (float64, error) {
	return p.query(catHadronRaw, g)
}

func (p fakeElectronProvider) PhotonSumWeighted(_ *model.Electron, g cone.Geometry) (float64, error) {
	return p.query(catPhotonWeighted, g)
}

func (p fakeElectronProvider) NeutralHadronSumWeighted(_ *model.Electron, g cone.Geometry) (float64, error) {
	return p.query(catHadronWeighted, g)
}

type fakeMuonProvider struct{ *fakeSums }

func (p fakeMuonProvider) ChargedSum(_ *model.Muon, g cone.Geometry) (float64, error) {
	return p.query(catCharged, g)
}

func (p fakeMuonProvider) PileupSum(_ *model.Muon, g cone.Geometry) (float64, error) {
	return p.query(catPileup, g)
}

func (p fakeMuonProvider) NeutralSumRaw(_ *model.Muon, g cone.Geometry) (float64, error) {
	return p.query(catNeutralRaw, g)
}

func (p fakeMuonProvider) NeutralSumWeighted(_ *model.Muon, g cone.Geometry) (float64, error) {
	return p.query(catNeutralWeight, g)
}

// fakeAreas returns a constant area and remembers the eta values it saw.
type fakeAreas struct {
	mu   sync.Mutex
	area float64
	etas []float64
}

func (a *fakeAreas) Lookup(eta float64) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.etas = append(a.etas, eta)
	return a.area
}

func (a *fakeAreas) seen() []float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]float64(nil), a.etas...)
}

func rho(v float64) *float64 { return &v }
