// Package scale builds the pure value-to-position and value-to-color
// mappings the views draw with.
package scale

import (
	"math"

	mscale "github.com/aclements/go-moremath/scale"
	"golang.org/x/exp/constraints"
)

// DefaultTicks is the tick budget used when rounding a domain.
const DefaultTicks = 10

// Linear maps a numeric domain onto an output range. A collapsed domain
// (min == max) maps every input to the middle of the range.
type Linear struct {
	dom    mscale.Linear
	r0, r1 float64
}

func NewLinear(d0, d1, r0, r1 float64) Linear {
	return Linear{dom: mscale.Linear{Min: d0, Max: d1}, r0: r0, r1: r1}
}

// Nice returns a copy whose domain is widened to round tick values.
func (l Linear) Nice(maxTicks int) Linear {
	if l.collapsed() || !finite(l.dom.Min) || !finite(l.dom.Max) {
		return l
	}
	l.dom.Nice(mscale.TickOptions{Max: maxTicks})
	return l
}

func (l Linear) collapsed() bool { return l.dom.Min == l.dom.Max }

// Map scales x. Inputs outside the domain extrapolate.
func (l Linear) Map(x float64) float64 {
	if l.collapsed() {
		return (l.r0 + l.r1) / 2
	}
	t := l.dom.Map(x)
	return l.r0 + t*(l.r1-l.r0)
}

func (l Linear) Domain() (float64, float64) { return l.dom.Min, l.dom.Max }

func (l Linear) Range() (float64, float64) { return l.r0, l.r1 }

// Ticks returns at most max major tick values inside the domain.
func (l Linear) Ticks(max int) []float64 {
	if l.collapsed() {
		return []float64{l.dom.Min}
	}
	major, _ := l.dom.Ticks(mscale.TickOptions{Max: max})
	return major
}

// Extent returns the smallest and largest of xs, skipping NaN. ok is
// false when nothing remains.
func Extent[T constraints.Integer | constraints.Float](xs []T) (lo, hi T, ok bool) {
	for _, x := range xs {
		if x != x {
			continue
		}
		if !ok {
			lo, hi, ok = x, x, true
			continue
		}
		lo = min(lo, x)
		hi = max(hi, x)
	}
	return lo, hi, ok
}

// Max returns the largest of xs, skipping NaN, or zero.
func Max[T constraints.Integer | constraints.Float](xs []T) T {
	_, hi, _ := Extent(xs)
	return hi
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// Point spreads an ordered list of names evenly across a range, first name
// at r0 and last at r1. A single name sits in the middle.
type Point struct {
	names  []string
	index  map[string]int
	r0, r1 float64
}

func NewPoint(names []string, r0, r1 float64) Point {
	idx := make(map[string]int, len(names))
	for i, n := range names {
		idx[n] = i
	}
	return Point{names: append([]string(nil), names...), index: idx, r0: r0, r1: r1}
}

// Map returns the position of name; ok is false for unknown names.
func (p Point) Map(name string) (float64, bool) {
	i, ok := p.index[name]
	if !ok {
		return 0, false
	}
	if len(p.names) == 1 {
		return (p.r0 + p.r1) / 2, true
	}
	return p.r0 + float64(i)*p.Step(), true
}

// Step is the distance between neighbouring names.
func (p Point) Step() float64 {
	if len(p.names) < 2 {
		return p.r1 - p.r0
	}
	return (p.r1 - p.r0) / float64(len(p.names)-1)
}

func (p Point) Names() []string { return append([]string(nil), p.names...) }
