package scale

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
)

// Category10 is the ten-color categorical palette.
var Category10 = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

// Ordinal assigns palette colors to names. Names from the initial domain
// keep their position; unseen names are appended on first lookup, so an
// Ordinal must stay on one goroutine.
type Ordinal struct {
	palette []string
	index   map[string]int
}

func NewOrdinal(palette []string, domain ...string) *Ordinal {
	o := &Ordinal{palette: palette, index: make(map[string]int, len(domain))}
	for _, d := range domain {
		o.Color(d)
	}
	return o
}

// Color returns the color of name, cycling through the palette.
func (o *Ordinal) Color(name string) string {
	i, ok := o.index[name]
	if !ok {
		i = len(o.index)
		o.index[name] = i
	}
	return o.palette[i%len(o.palette)]
}

// Sequential is a continuous ramp between two colors over a linear domain,
// interpolated in RGB.
type Sequential struct {
	lin      Linear
	from, to colorful.Color
}

// NewSequential builds a ramp mapping d0 to from and d1 to to. Colors are
// hex strings.
func NewSequential(d0, d1 float64, from, to string) (Sequential, error) {
	a, err := colorful.Hex(from)
	if err != nil {
		return Sequential{}, fmt.Errorf("ramp start %q: %w", from, err)
	}
	b, err := colorful.Hex(to)
	if err != nil {
		return Sequential{}, fmt.Errorf("ramp end %q: %w", to, err)
	}
	return Sequential{lin: NewLinear(d0, d1, 0, 1), from: a, to: b}, nil
}

// Color returns the hex color of v. Values outside the domain clamp to the
// nearest end.
func (s Sequential) Color(v float64) string {
	t := min(max(s.lin.Map(v), 0), 1)
	return s.from.BlendRgb(s.to, t).Clamped().Hex()
}

func (s Sequential) Domain() (float64, float64) { return s.lin.Domain() }
