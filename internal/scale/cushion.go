package scale

// Display bounds of a cushioned scale.
const (
	CushionLow  = 0.1
	CushionHigh = 0.9
)

// Cushioned maps values into [CushionLow, CushionHigh] after widening
// their extent by a tenth of its span on each side. NaN inputs, and every
// input when values has no numbers, map to CushionLow. A single distinct
// value maps to the middle of the band.
type Cushioned struct {
	lin Linear
	ok  bool
}

func NewCushioned(values []float64) Cushioned {
	lo, hi, ok := Extent(values)
	if !ok {
		return Cushioned{}
	}
	pad := (hi - lo) * 0.1
	return Cushioned{lin: NewLinear(lo-pad, hi+pad, CushionLow, CushionHigh), ok: true}
}

func (c Cushioned) Map(v float64) float64 {
	if !c.ok || v != v {
		return CushionLow
	}
	return c.lin.Map(v)
}
