// Package state holds the shared selection of one dashboard session.
//
// A Store is not safe for concurrent use. Every read and write happens on
// the session's coordination loop, which serializes them.
package state

import (
	"errors"
	"fmt"
	"strings"

	"worldstats/internal/models"
)

// ErrInvalidColumn is returned when a column is not in the discovered set.
var ErrInvalidColumn = errors.New("invalid column")

// Field identifies one piece of observable session state: the four
// selection fields plus the dataset slots owned by the cache.
type Field uint16

const (
	ActiveColumn Field = 1 << iota
	ClickedCountries
	ActiveRegions
	HighlightedCountries
	MapData
	ScatterData
	PieData
	PCPData
	RadarData

	SelectionFields = ActiveColumn | ClickedCountries | ActiveRegions | HighlightedCountries
	DataFields      = MapData | ScatterData | PieData | PCPData | RadarData
	AllFields       = SelectionFields | DataFields
)

var fieldNames = []string{
	"activeColumn", "clickedCountries", "activeRegions", "highlightedCountries",
	"mapData", "scatterData", "pieData", "pcpData", "radarData",
}

// Has reports whether f and g share any field.
func (f Field) Has(g Field) bool { return f&g != 0 }

func (f Field) String() string {
	if f == 0 {
		return "none"
	}
	var parts []string
	for i, name := range fieldNames {
		if f&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, "|")
}

// Snapshot is an immutable copy of the selection tuple.
type Snapshot struct {
	ActiveColumn         string `json:"activeColumn"`
	ClickedCountries     Names  `json:"clickedCountries"`
	ActiveRegions        Names  `json:"activeRegions"`
	HighlightedCountries Names  `json:"highlightedCountries"`
}

// Store is the single source of truth for the selection. Mutators are the
// only write path and each one marks its field dirty.
type Store struct {
	columns    []string
	columnSet  Names
	column     string
	clicked    Names
	regions    Names
	highlights Names
	dirty      Field
}

// NewStore starts a session with the discovered columns and every known
// region active. The active column defaults to models.DefaultColumn, or
// the first discovered column when that one is absent.
func NewStore(columns []string, regions []string) *Store {
	s := &Store{
		columns:    append([]string(nil), columns...),
		columnSet:  NewNames(columns...),
		column:     models.DefaultColumn,
		clicked:    Names{},
		regions:    NewNames(regions...),
		highlights: Names{},
	}
	if !s.columnSet.Has(s.column) && len(columns) > 0 {
		s.column = columns[0]
	}
	return s
}

// Columns returns the discovered column set in discovery order.
func (s *Store) Columns() []string {
	return append([]string(nil), s.columns...)
}

func (s *Store) ActiveColumn() string { return s.column }

func (s *Store) ClickedCountries() Names { return s.clicked.Clone() }

func (s *Store) ActiveRegions() Names { return s.regions.Clone() }

func (s *Store) HighlightedCountries() Names { return s.highlights.Clone() }

// SetActiveColumn switches the active indicator. Unknown columns are
// rejected and leave the store untouched.
func (s *Store) SetActiveColumn(col string) error {
	if !s.columnSet.Has(col) {
		return fmt.Errorf("%q: %w", col, ErrInvalidColumn)
	}
	s.column = col
	s.dirty |= ActiveColumn
	return nil
}

// ToggleClickedCountry flips the membership of one country.
func (s *Store) ToggleClickedCountry(name string) {
	next := s.clicked.Clone()
	if next.Has(name) {
		delete(next, name)
	} else {
		next[name] = struct{}{}
	}
	s.clicked = next
	s.dirty |= ClickedCountries
}

// SetClickedCountries replaces the click selection wholesale.
func (s *Store) SetClickedCountries(names Names) {
	s.clicked = names.Clone()
	s.dirty |= ClickedCountries
}

// SetActiveRegions replaces the region filter. An empty set means no
// region passes, not all regions.
func (s *Store) SetActiveRegions(regions Names) {
	s.regions = regions.Clone()
	s.dirty |= ActiveRegions
}

// SetHighlightedCountries replaces the brush highlight. An empty set
// clears highlighting.
func (s *Store) SetHighlightedCountries(names Names) {
	s.highlights = names.Clone()
	s.dirty |= HighlightedCountries
}

// TakeDirty returns the fields mutated since the last call and clears them.
func (s *Store) TakeDirty() Field {
	d := s.dirty
	s.dirty = 0
	return d
}

// Snapshot copies the current tuple.
func (s *Store) Snapshot() Snapshot {
	return Snapshot{
		ActiveColumn:         s.column,
		ClickedCountries:     s.clicked.Clone(),
		ActiveRegions:        s.regions.Clone(),
		HighlightedCountries: s.highlights.Clone(),
	}
}
