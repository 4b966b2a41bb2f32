package engine

import (
	"bytes"
	stdcsv "encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/csv"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"golang.org/x/sync/errgroup"

	"worldstats/internal/models"
)

// --- 1. CELL CLEANING ---

// cleanNumber keeps digits, '-' and '.' and parses the rest.
// "65.4%" -> 65.4, "" -> NaN, "n/a" -> NaN
func cleanNumber(s string) float64 {
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= '0' && c <= '9') || c == '-' || c == '.' {
			b = append(b, c)
		}
	}
	if len(b) == 0 {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// encode dictionary-encodes values in first-appearance order.
func encode(values []string) ([]int32, []string) {
	ids := make([]int32, len(values))
	idx := make(map[string]int32)
	dict := make([]string, 0, 16)
	for i, s := range values {
		id, ok := idx[s]
		if !ok {
			id = int32(len(dict))
			dict = append(dict, s)
			idx[s] = id
		}
		ids[i] = id
	}
	return ids, dict
}

// --- 2. MAIN LOADER ---

// LoadColumnar reads the CSV at path.
func LoadColumnar(path string) (*ColumnStore, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ReadColumnar(bytes.NewReader(content))
}

// ReadColumnar parses a header-first CSV into a ColumnStore. Every column
// is read as nullable text through arrow, then categorical columns are
// dictionary encoded and the rest cleaned into numbers.
func ReadColumnar(r io.Reader) (*ColumnStore, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	// A. Header (schema is all-utf8 so no type inference surprises)
	header, err := stdcsv.NewReader(bytes.NewReader(content)).Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	fields := make([]arrow.Field, len(header))
	for i, name := range header {
		fields[i] = arrow.Field{Name: name, Type: arrow.BinaryTypes.String, Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	// B. Read Records
	rd := csv.NewReader(bytes.NewReader(content), schema,
		csv.WithHeader(true),
		csv.WithChunk(512),
		csv.WithNullReader(true, ""),
		csv.WithAllocator(memory.NewGoAllocator()),
	)
	defer rd.Release()

	cells := make([][]string, len(header))
	for rd.Next() {
		rec := rd.Record()
		for c := 0; c < int(rec.NumCols()); c++ {
			col, ok := rec.Column(c).(*array.String)
			if !ok {
				return nil, fmt.Errorf("column %q: unexpected type %s", header[c], rec.Column(c).DataType())
			}
			for i := 0; i < col.Len(); i++ {
				if col.IsNull(i) {
					cells[c] = append(cells[c], "")
					continue
				}
				cells[c] = append(cells[c], strings.Clone(col.Value(i)))
			}
		}
	}
	if err := rd.Err(); err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}

	// C. Convert Columns (Parallel)
	store := &ColumnStore{
		Numbers: make(map[string][]float64),
		Text:    make(map[string][]string),
	}
	numbers := make([][]float64, len(header))

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for c, name := range header {
		if models.IsCategorical(name) {
			continue
		}
		g.Go(func() error {
			vals := make([]float64, len(cells[c]))
			for i, s := range cells[c] {
				vals[i] = cleanNumber(s)
			}
			numbers[c] = vals
			return nil
		})
	}
	_ = g.Wait()

	found := map[string]bool{}
	for c, name := range header {
		switch name {
		case models.ColCountry:
			store.CountryIDs, store.CountryDict = encode(cells[c])
		case models.ColRegion:
			store.RegionIDs, store.RegionDict = encode(cells[c])
		case models.ColIncome:
			store.IncomeIDs, store.IncomeDict = encode(cells[c])
		default:
			store.Columns = append(store.Columns, name)
			store.Numbers[name] = numbers[c]
			store.Text[name] = cells[c]
		}
		found[name] = true
	}
	if !found[models.ColCountry] {
		return nil, fmt.Errorf("missing %q column", models.ColCountry)
	}

	// Optional label columns still need one ID per row
	n := len(store.CountryIDs)
	if store.RegionIDs == nil {
		store.RegionIDs, store.RegionDict = encode(make([]string, n))
	}
	if store.IncomeIDs == nil {
		store.IncomeIDs, store.IncomeDict = encode(make([]string, n))
	}
	return store, nil
}
