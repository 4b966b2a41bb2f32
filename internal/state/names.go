package state

import (
	"sort"

	"github.com/goccy/go-json"
)

// Names is an unordered set of country or region names.
type Names map[string]struct{}

// NewNames builds a set from names.
func NewNames(names ...string) Names {
	n := make(Names, len(names))
	for _, s := range names {
		n[s] = struct{}{}
	}
	return n
}

func (n Names) Has(name string) bool {
	_, ok := n[name]
	return ok
}

func (n Names) Len() int { return len(n) }

// Clone returns an independent copy; a nil set clones to an empty one.
func (n Names) Clone() Names {
	c := make(Names, len(n))
	for s := range n {
		c[s] = struct{}{}
	}
	return c
}

// Sorted returns the members in ascending order.
func (n Names) Sorted() []string {
	out := make([]string, 0, len(n))
	for s := range n {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func (n Names) Equal(o Names) bool {
	if len(n) != len(o) {
		return false
	}
	for s := range n {
		if !o.Has(s) {
			return false
		}
	}
	return true
}

// Union returns a new set holding the members of both.
func (n Names) Union(o Names) Names {
	u := n.Clone()
	for s := range o {
		u[s] = struct{}{}
	}
	return u
}

func (n Names) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.Sorted())
}

func (n *Names) UnmarshalJSON(b []byte) error {
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return err
	}
	*n = NewNames(list...)
	return nil
}
