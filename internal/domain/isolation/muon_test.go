package isolation_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/okian/miniiso/internal/domain/cone"
	"github.com/okian/miniiso/internal/domain/isolation"
	"github.com/okian/miniiso/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var muonKeys = []string{
	"miniIso_R",
	"miniIso_AbsCharged",
	"miniIso_AbsPU",
	"miniIso_AbsNeutral_weights", "miniIso_Abs_weights", "miniIso_Rel_weights",
	"miniIso_AbsNeutral_raw", "miniIso_Abs_raw", "miniIso_Rel_raw",
	"miniIso_AbsNeutral_rhoArea", "miniIso_Abs_rhoArea", "miniIso_Rel_rhoArea",
	"miniIso_AbsNeutral_deltaBeta", "miniIso_Abs_deltaBeta", "miniIso_Rel_deltaBeta",
}

func TestNewMuonAggregator(t *testing.T) {
	Convey("Given missing collaborators", t, func() {
		_, err := isolation.NewMuonAggregator(nil, &fakeAreas{})
		So(errors.Is(err, isolation.ErrNilProvider), ShouldBeTrue)

		_, err = isolation.NewMuonAggregator(fakeMuonProvider{newFakeSums(nil)}, nil)
		So(errors.Is(err, isolation.ErrNilAreaTable), ShouldBeTrue)
	})
}

func TestMuonInvalidCandidate(t *testing.T) {
	Convey("Given a muon aggregator", t, func() {
		sums := newFakeSums(nil)
		agg, err := isolation.NewMuonAggregator(fakeMuonProvider{sums}, &fakeAreas{area: 0.05})
		So(err, ShouldBeNil)

		Convey("When evaluating a nil muon", func() {
			rec, err := agg.Evaluate(context.Background(), nil, &model.Event{Rho: rho(12)})
			So(err, ShouldBeNil)

			Convey("Then all 15 fields should carry the sentinels", func() {
				if diff := cmp.Diff(muonKeys, rec.Keys()); diff != "" {
					t.Errorf("keys mismatch (-want +got):\n%s", diff)
				}
				So(mustGet(rec, isolation.VarRadius), ShouldEqual, 0)
				So(mustGet(rec, isolation.VarAbsCharged), ShouldEqual, -1)
				So(mustGet(rec, isolation.VarAbsPileup), ShouldEqual, -1)
				for _, s := range isolation.Schemes() {
					So(mustGet(rec, isolation.AbsNeutralVar(s)), ShouldEqual, -1)
					So(mustGet(rec, isolation.AbsVar(s)), ShouldEqual, -2)
					So(mustGet(rec, isolation.RelVar(s)), ShouldEqual, 2)
				}
				So(sums.totalCalls(), ShouldEqual, 0)
			})
		})
	})
}

func TestMuonValidCandidate(t *testing.T) {
	Convey("Given a muon aggregator", t, func() {
		sums := newFakeSums(map[string]float64{
			catCharged:       0.8,
			catPileup:        1.0,
			catNeutralRaw:    1.5,
			catNeutralWeight: 0.9,
		})
		areas := &fakeAreas{area: 0.0433}
		agg, err := isolation.NewMuonAggregator(fakeMuonProvider{sums}, areas)
		So(err, ShouldBeNil)

		Convey("When a 25 GeV muon is evaluated", func() {
			mu := &model.Muon{Pt: 25, Eta: -1.8}
			rec, err := agg.Evaluate(context.Background(), mu, &model.Event{Rho: rho(9)})
			So(err, ShouldBeNil)

			Convey("Then the fields should come in order", func() {
				if diff := cmp.Diff(muonKeys, rec.Keys()); diff != "" {
					t.Errorf("keys mismatch (-want +got):\n%s", diff)
				}
			})

			Convey("Then the cone should saturate at 0.2", func() {
				So(mustGet(rec, isolation.VarRadius), ShouldEqual, 0.2)
			})

			Convey("Then the charged cone should use a tiny veto and no threshold", func() {
				So(sums.geometries(catCharged), ShouldResemble, []cone.Geometry{
					{Outer: 0.2, InnerVeto: 0.0001, SelfVeto: cone.SelfVetoAll},
				})
			})

			Convey("Then pileup and neutral cones should use the 0.01 veto and 0.5 GeV threshold", func() {
				want := []cone.Geometry{{Outer: 0.2, InnerVeto: 0.01, Threshold: 0.5, SelfVeto: cone.SelfVetoAll}}
				So(sums.geometries(catPileup), ShouldResemble, want)
				So(sums.geometries(catNeutralRaw), ShouldResemble, want)
				So(sums.geometries(catNeutralWeight), ShouldResemble, want)
			})

			Convey("Then the effective area should be looked up at the muon eta", func() {
				So(areas.seen(), ShouldResemble, []float64{-1.8})
			})

			Convey("Then the corrections should follow the formulas", func() {
				So(mustGet(rec, isolation.AbsNeutralVar(isolation.SchemeWeights)), ShouldEqual, 0.9)
				So(mustGet(rec, isolation.AbsNeutralVar(isolation.SchemeRaw)), ShouldEqual, 1.5)
				scale := (0.2 / 0.3) * (0.2 / 0.3)
				So(mustGet(rec, isolation.AbsNeutralVar(isolation.SchemeRhoArea)), ShouldAlmostEqual, 1.5-9*0.0433*scale, 1e-12)
				So(mustGet(rec, isolation.AbsNeutralVar(isolation.SchemeDeltaBeta)), ShouldAlmostEqual, 1.0, 1e-12)
				So(mustGet(rec, isolation.AbsVar(isolation.SchemeDeltaBeta)), ShouldAlmostEqual, 1.8, 1e-12)
				So(mustGet(rec, isolation.RelVar(isolation.SchemeDeltaBeta)), ShouldAlmostEqual, 1.8/25, 1e-12)
			})
		})

		Convey("When the provider fails", func() {
			errBoom := errors.New("no candidates collection")
			sums.errs[catNeutralWeight] = errBoom
			rec, err := agg.Evaluate(context.Background(), &model.Muon{Pt: 30}, &model.Event{})

			Convey("Then the error should be returned unchanged", func() {
				So(rec, ShouldBeNil)
				So(errors.Is(err, errBoom), ShouldBeTrue)
			})
		})
	})
}
