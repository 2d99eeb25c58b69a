package cone_test

import (
	"testing"

	"github.com/okian/miniiso/internal/domain/cone"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRadius(t *testing.T) {
	Convey("Given the adaptive cone policy", t, func() {
		Convey("When pt is inside [50, 200] GeV", func() {
			Convey("Then the radius should be 10/pt", func() {
				for _, pt := range []float64{50, 62.5, 100, 137, 199.9, 200} {
					So(cone.Radius(pt), ShouldAlmostEqual, 10.0/pt, 1e-12)
				}
			})
		})

		Convey("When pt is below 50 GeV", func() {
			Convey("Then the radius should saturate at 0.2", func() {
				for _, pt := range []float64{0, 5, 25, 49.99} {
					So(cone.Radius(pt), ShouldEqual, 0.2)
				}
			})
		})

		Convey("When pt is above 200 GeV", func() {
			Convey("Then the radius should saturate at 0.05", func() {
				for _, pt := range []float64{200.01, 500, 6500} {
					So(cone.Radius(pt), ShouldEqual, 0.05)
				}
			})
		})

		Convey("When pt is 100 GeV", func() {
			Convey("Then the radius should be 0.1", func() {
				So(cone.Radius(100), ShouldEqual, 0.1)
			})
		})
	})
}

func TestSelfVetoString(t *testing.T) {
	Convey("Given self-veto policies", t, func() {
		So(cone.SelfVetoNone.String(), ShouldEqual, "none")
		So(cone.SelfVetoAll.String(), ShouldEqual, "all")
		So(cone.SelfVetoFirst.String(), ShouldEqual, "first")
		So(cone.SelfVetoDaughters.String(), ShouldEqual, "daughters")
		So(cone.SelfVeto(42).String(), ShouldEqual, "unknown")
	})
}
