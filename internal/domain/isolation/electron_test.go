package isolation_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/okian/miniiso/internal/domain/cone"
	"github.com/okian/miniiso/internal/domain/isolation"
	"github.com/okian/miniiso/internal/domain/model"
	"github.com/okian/miniiso/internal/domain/record"
	. "github.com/smartystreets/goconvey/convey"
)

var electronKeys = []string{
	"miniIso_R",
	"miniIso_AbsCharged",
	"miniIso_AbsPho",
	"miniIso_AbsNHad",
	"miniIso_AbsPU",
	"miniIso_AbsNeutral_weights", "miniIso_Abs_weights", "miniIso_Rel_weights",
	"miniIso_AbsNeutral_raw", "miniIso_Abs_raw", "miniIso_Rel_raw",
	"miniIso_AbsNeutral_rhoArea", "miniIso_Abs_rhoArea", "miniIso_Rel_rhoArea",
	"miniIso_AbsNeutral_deltaBeta", "miniIso_Abs_deltaBeta", "miniIso_Rel_deltaBeta",
}

func mustGet(rec *record.Record, key string) float64 {
	v, ok := rec.Get(key)
	So(ok, ShouldBeTrue)
	return v
}

func TestNewElectronAggregator(t *testing.T) {
	Convey("Given missing collaborators", t, func() {
		p := fakeElectronProvider{newFakeSums(nil)}

		Convey("Then construction should fail with sentinel errors", func() {
			_, err := isolation.NewElectronAggregator(nil, &fakeAreas{})
			So(errors.Is(err, isolation.ErrNilProvider), ShouldBeTrue)

			_, err = isolation.NewElectronAggregator(p, nil)
			So(errors.Is(err, isolation.ErrNilAreaTable), ShouldBeTrue)
		})
	})
}

func TestElectronInvalidCandidates(t *testing.T) {
	Convey("Given an electron aggregator", t, func() {
		sums := newFakeSums(map[string]float64{catCharged: 3})
		agg, err := isolation.NewElectronAggregator(fakeElectronProvider{sums}, &fakeAreas{area: 0.1})
		So(err, ShouldBeNil)
		ev := &model.Event{Rho: rho(20)}

		cases := []struct {
			name string
			el   *model.Electron
		}{
			{"a nil candidate", nil},
			{"a missing supercluster", &model.Electron{Pt: 80, Eta: 0.4, IsEB: true}},
		}
		for _, tc := range cases {
			Convey("When evaluating "+tc.name, func() {
				rec, err := agg.Evaluate(context.Background(), tc.el, ev)
				So(err, ShouldBeNil)

				Convey("Then the provider should not be queried", func() {
					So(sums.totalCalls(), ShouldEqual, 0)
				})

				Convey("Then all 17 fields should carry the sentinels", func() {
					if diff := cmp.Diff(electronKeys, rec.Keys()); diff != "" {
						t.Errorf("keys mismatch (-want +got):\n%s", diff)
					}
					So(mustGet(rec, isolation.VarRadius), ShouldEqual, 0)
					So(mustGet(rec, isolation.VarAbsCharged), ShouldEqual, -1)
					So(mustGet(rec, isolation.VarAbsPhoton), ShouldEqual, -1)
					So(mustGet(rec, isolation.VarAbsNeutralHadron), ShouldEqual, -1)
					So(mustGet(rec, isolation.VarAbsPileup), ShouldEqual, -1)
					for _, s := range isolation.Schemes() {
						So(mustGet(rec, isolation.AbsNeutralVar(s)), ShouldEqual, -1)
						So(mustGet(rec, isolation.AbsVar(s)), ShouldEqual, -2)
						So(mustGet(rec, isolation.RelVar(s)), ShouldEqual, 2)
					}
				})
			})
		}
	})
}

func TestElectronValidCandidates(t *testing.T) {
	Convey("Given an electron aggregator", t, func() {
		ctx := context.Background()

		Convey("When a barrel electron of 100 GeV sees empty cones", func() {
			sums := newFakeSums(nil)
			agg, err := isolation.NewElectronAggregator(fakeElectronProvider{sums}, &fakeAreas{area: 0.2})
			So(err, ShouldBeNil)
			el := &model.Electron{Pt: 100, Eta: 0.5, IsEB: true, SuperCluster: &model.SuperCluster{Eta: 0.5}}

			rec, err := agg.Evaluate(ctx, el, &model.Event{})
			So(err, ShouldBeNil)

			Convey("Then R should be 0.1 and every other field zero", func() {
				So(rec.Len(), ShouldEqual, 17)
				So(mustGet(rec, isolation.VarRadius), ShouldEqual, 0.1)
				for _, k := range electronKeys[1:] {
					So(mustGet(rec, k), ShouldEqual, 0)
				}
			})

			Convey("Then barrel cones should have no inner veto", func() {
				for _, cat := range []string{catCharged, catPileup, catPhotonRaw, catHadronRaw, catPhotonWeighted, catHadronWeighted} {
					g := sums.geometries(cat)
					So(g, ShouldHaveLength, 1)
					So(g[0], ShouldResemble, cone.Geometry{Outer: 0.1, SelfVeto: cone.SelfVetoNone})
				}
			})
		})

		Convey("When an endcap electron is evaluated", func() {
			sums := newFakeSums(map[string]float64{
				catCharged:        1.0,
				catPileup:         2.0,
				catPhotonRaw:      0.5,
				catHadronRaw:      0.25,
				catPhotonWeighted: 0.3,
				catHadronWeighted: 0.1,
			})
			areas := &fakeAreas{area: 0.1}
			agg, err := isolation.NewElectronAggregator(fakeElectronProvider{sums}, areas)
			So(err, ShouldBeNil)
			el := &model.Electron{Pt: 100, Eta: 1.9, IsEB: false, SuperCluster: &model.SuperCluster{Eta: 1.7}}

			rec, err := agg.Evaluate(ctx, el, &model.Event{Rho: rho(1)})
			So(err, ShouldBeNil)

			Convey("Then charged and pileup should use the 0.015 veto", func() {
				want := cone.Geometry{Outer: 0.1, InnerVeto: 0.015, SelfVeto: cone.SelfVetoNone}
				So(sums.geometries(catCharged)[0], ShouldResemble, want)
				So(sums.geometries(catPileup)[0], ShouldResemble, want)
			})

			Convey("Then photons should use the 0.08 veto", func() {
				want := cone.Geometry{Outer: 0.1, InnerVeto: 0.08, SelfVeto: cone.SelfVetoNone}
				So(sums.geometries(catPhotonRaw)[0], ShouldResemble, want)
				So(sums.geometries(catPhotonWeighted)[0], ShouldResemble, want)
			})

			Convey("Then neutral hadrons should not be vetoed", func() {
				want := cone.Geometry{Outer: 0.1, SelfVeto: cone.SelfVetoNone}
				So(sums.geometries(catHadronRaw)[0], ShouldResemble, want)
				So(sums.geometries(catHadronWeighted)[0], ShouldResemble, want)
			})

			Convey("Then the effective area should be looked up at the supercluster eta", func() {
				So(areas.seen(), ShouldResemble, []float64{1.7})
			})

			Convey("Then the raw sums and corrections should be reported", func() {
				So(mustGet(rec, isolation.VarAbsCharged), ShouldEqual, 1.0)
				So(mustGet(rec, isolation.VarAbsPhoton), ShouldEqual, 0.5)
				So(mustGet(rec, isolation.VarAbsNeutralHadron), ShouldEqual, 0.25)
				So(mustGet(rec, isolation.VarAbsPileup), ShouldEqual, 2.0)

				So(mustGet(rec, isolation.AbsNeutralVar(isolation.SchemeWeights)), ShouldAlmostEqual, 0.4, 1e-12)
				So(mustGet(rec, isolation.AbsNeutralVar(isolation.SchemeRaw)), ShouldAlmostEqual, 0.75, 1e-12)
				So(mustGet(rec, isolation.AbsNeutralVar(isolation.SchemeRhoArea)), ShouldAlmostEqual, 0.75-0.1/9, 1e-12)
				So(mustGet(rec, isolation.AbsNeutralVar(isolation.SchemeDeltaBeta)), ShouldEqual, 0)

				So(mustGet(rec, isolation.AbsVar(isolation.SchemeRaw)), ShouldAlmostEqual, 1.75, 1e-12)
				So(mustGet(rec, isolation.RelVar(isolation.SchemeRaw)), ShouldAlmostEqual, 0.0175, 1e-12)
				So(mustGet(rec, isolation.AbsVar(isolation.SchemeDeltaBeta)), ShouldEqual, 1.0)
			})

			Convey("Then Abs should equal charged plus neutral for every scheme", func() {
				for _, s := range isolation.Schemes() {
					abs := mustGet(rec, isolation.AbsVar(s))
					So(abs, ShouldAlmostEqual, 1.0+mustGet(rec, isolation.AbsNeutralVar(s)), 1e-12)
					So(mustGet(rec, isolation.RelVar(s)), ShouldAlmostEqual, abs/100, 1e-12)
				}
			})
		})

		Convey("When no event context is available", func() {
			sums := newFakeSums(map[string]float64{catPhotonRaw: 1})
			agg, err := isolation.NewElectronAggregator(fakeElectronProvider{sums}, &fakeAreas{area: 0.3})
			So(err, ShouldBeNil)
			el := &model.Electron{Pt: 60, IsEB: true, SuperCluster: &model.SuperCluster{}}

			rec, err := agg.Evaluate(ctx, el, nil)
			So(err, ShouldBeNil)

			Convey("Then rho should be treated as zero", func() {
				So(mustGet(rec, isolation.AbsNeutralVar(isolation.SchemeRhoArea)), ShouldEqual, 1)
			})
		})
	})
}

func TestElectronProviderErrors(t *testing.T) {
	Convey("Given a provider failing on one category", t, func() {
		errBoom := errors.New("boom")
		sums := newFakeSums(nil)
		sums.errs[catPhotonRaw] = errBoom
		agg, err := isolation.NewElectronAggregator(fakeElectronProvider{sums}, &fakeAreas{})
		So(err, ShouldBeNil)

		Convey("When an electron is evaluated", func() {
			el := &model.Electron{Pt: 40, IsEB: true, SuperCluster: &model.SuperCluster{}}
			rec, err := agg.Evaluate(context.Background(), el, &model.Event{})

			Convey("Then the provider error should be returned unchanged", func() {
				So(rec, ShouldBeNil)
				So(errors.Is(err, errBoom), ShouldBeTrue)
			})
		})
	})
}

func TestElectronConcurrentEvaluation(t *testing.T) {
	Convey("Given one aggregator shared by many goroutines", t, func() {
		sums := newFakeSums(map[string]float64{catCharged: 2, catPhotonRaw: 1})
		agg, err := isolation.NewElectronAggregator(fakeElectronProvider{sums}, &fakeAreas{area: 0.1})
		So(err, ShouldBeNil)
		ev := &model.Event{Rho: rho(5)}
		So(sums.SetCurrentEvent(ev), ShouldBeNil)

		const n = 64
		results := make([]*record.Record, n)
		errs := make([]error, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				el := &model.Electron{Pt: 50 + float64(i), IsEB: i%2 == 0, SuperCluster: &model.SuperCluster{Eta: 0.1}}
				results[i], errs[i] = agg.Evaluate(context.Background(), el, ev)
			}(i)
		}
		wg.Wait()

		Convey("Then every candidate should get its own complete record", func() {
			for i := 0; i < n; i++ {
				So(errs[i], ShouldBeNil)
				So(results[i].Len(), ShouldEqual, 17)
				So(mustGet(results[i], isolation.VarRadius), ShouldAlmostEqual, cone.Radius(50+float64(i)), 1e-12)
			}
			So(sums.totalCalls(), ShouldEqual, 6*n)
		})
	})
}
