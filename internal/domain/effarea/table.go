// Package effarea provides effective-area tables used to subtract the
// expected pileup contribution from neutral isolation sums.
package effarea

import (
	"fmt"
	"math"
	"sort"
)

// maxArea bounds a physical effective area: the full calorimeter
// acceptance, |eta| < 2.5 over 2π in phi.
const maxArea = 31.4

// Bin is one |eta| range [EtaMin, EtaMax) and its effective area.
type Bin struct {
	EtaMin float64 `koanf:"eta_min" json:"eta_min"`
	EtaMax float64 `koanf:"eta_max" json:"eta_max"`
	Area   float64 `koanf:"area" json:"area"`
}

// Table maps |eta| to an effective area. It is immutable once built and
// safe for concurrent use.
type Table struct {
	source string
	bins   []Bin
}

// New validates bins and builds a table from them. source names the origin
// of the bins in error messages.
func New(source string, bins []Bin) (*Table, error) {
	if len(bins) == 0 {
		return nil, fmt.Errorf("%w: no effective area constants in %s", ErrInvalidTable, source)
	}
	for i, b := range bins {
		if !(b.EtaMin < b.EtaMax) {
			return nil, fmt.Errorf("%w: bin %d of %s has min >= max (%g, %g)", ErrInvalidTable, i, source, b.EtaMin, b.EtaMax)
		}
		if i > 0 && b.EtaMin != bins[i-1].EtaMax {
			return nil, fmt.Errorf("%w: bin %d of %s is disjoint from the previous one (%g != %g)", ErrInvalidTable, i, source, b.EtaMin, bins[i-1].EtaMax)
		}
		if !(b.Area >= 0 && b.Area < maxArea) {
			return nil, fmt.Errorf("%w: bin %d of %s has area %g outside [0, %g)", ErrInvalidTable, i, source, b.Area, maxArea)
		}
	}
	return &Table{source: source, bins: append([]Bin(nil), bins...)}, nil
}

// Lookup returns the effective area of the bin containing |eta|, or 0 when
// |eta| is outside every bin.
func (t *Table) Lookup(eta float64) float64 {
	abs := math.Abs(eta)
	i := sort.Search(len(t.bins), func(i int) bool { return t.bins[i].EtaMax > abs })
	if i < len(t.bins) && t.bins[i].EtaMin <= abs {
		return t.bins[i].Area
	}
	return 0
}

// Bins returns a copy of the table bins.
func (t *Table) Bins() []Bin {
	return append([]Bin(nil), t.bins...)
}

// Source names where the table was loaded from.
func (t *Table) Source() string {
	return t.source
}
