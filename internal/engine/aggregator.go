package engine

import (
	"runtime"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"worldstats/internal/models"
)

// Aggregate computes every payload the backend serves.
func (cs *ColumnStore) Aggregate() *models.DashboardData {
	data := &models.DashboardData{
		Columns:   append([]string(nil), cs.Columns...),
		Rows:      make(map[string][]models.Row, len(cs.Columns)),
		Scatter:   make(map[string]models.ScatterPayload, len(cs.Columns)),
		Countries: make(map[string]models.CountryInfo, cs.Len()),
	}

	for _, col := range cs.Columns {
		data.Rows[col] = cs.rows(col)
		data.Scatter[col] = cs.scatter(col)
	}
	data.Pie = cs.regionMeans()
	data.PCP = cs.pcp()

	for i, cid := range cs.CountryIDs {
		name := cs.CountryDict[cid]
		info := models.CountryInfo{Name: name, Fields: make(map[string]any, len(cs.Columns)+3)}
		info.Fields[models.ColCountry] = name
		info.Fields[models.ColRegion] = cs.RegionDict[cs.RegionIDs[i]]
		info.Fields[models.ColIncome] = cs.IncomeDict[cs.IncomeIDs[i]]
		for _, col := range cs.Columns {
			info.Fields[col] = rawCell(cs.Text[col][i])
		}
		// First occurrence wins, like a positional lookup
		if _, dup := data.Countries[models.FoldName(name)]; !dup {
			data.Countries[models.FoldName(name)] = info
		}
	}
	return data
}

// rawCell keeps plain numbers as numbers and anything else as text.
func rawCell(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

func (cs *ColumnStore) rows(col string) []models.Row {
	out := make([]models.Row, cs.Len())
	for i, cid := range cs.CountryIDs {
		out[i] = models.Row{
			Country: cs.CountryDict[cid],
			Region:  cs.RegionDict[cs.RegionIDs[i]],
			Income:  cs.IncomeDict[cs.IncomeIDs[i]],
			Values:  map[string]models.Value{col: models.Num(cs.number(col, i))},
		}
	}
	return out
}

// scatter keeps only rows where both the score and col are numeric.
func (cs *ColumnStore) scatter(col string) models.ScatterPayload {
	p := models.ScatterPayload{
		Column:    col,
		Ladder:    make([]models.Value, 0, cs.Len()),
		Values:    make([]models.Value, 0, cs.Len()),
		Countries: make([]string, 0, cs.Len()),
	}
	for i, cid := range cs.CountryIDs {
		score := models.Num(cs.number(models.ColLadder, i))
		v := models.Num(cs.number(col, i))
		if !score.OK || !v.OK {
			continue
		}
		p.Ladder = append(p.Ladder, score)
		p.Values = append(p.Values, v)
		p.Countries = append(p.Countries, cs.CountryDict[cid])
	}
	return p
}

func (cs *ColumnStore) pcp() models.PCPPayload {
	p := models.PCPPayload{
		Data: make([]models.PCPRow, cs.Len()),
		Mappings: map[string]map[string]string{
			models.ColCountry: dictMapping(cs.CountryDict),
			models.ColRegion:  dictMapping(cs.RegionDict),
			models.ColIncome:  dictMapping(cs.IncomeDict),
		},
	}
	for i := range p.Data {
		vals := make(map[string]models.Value, len(models.PCPDimensions))
		for _, dim := range models.PCPDimensions {
			vals[dim] = models.Num(cs.number(dim, i))
		}
		p.Data[i] = models.PCPRow{
			Country: int(cs.CountryIDs[i]),
			Region:  int(cs.RegionIDs[i]),
			Income:  int(cs.IncomeIDs[i]),
			Values:  vals,
		}
	}
	return p
}

func dictMapping(dict []string) map[string]string {
	m := make(map[string]string, len(dict))
	for id, s := range dict {
		m[strconv.Itoa(id)] = s
	}
	return m
}

// regionMeans averages the happiness score per region, sorted by region
// name. Regions without a single numeric score are left out.
func (cs *ColumnStore) regionMeans() []models.PieSlice {
	numRegs := len(cs.RegionDict)
	scores := cs.Numbers[models.ColLadder]
	if numRegs == 0 || len(scores) == 0 {
		return []models.PieSlice{}
	}

	// 1. Setup Workers
	numWorkers := runtime.NumCPU()
	chunkSize := (len(scores) + numWorkers - 1) / numWorkers

	type partialAgg struct {
		sum []float64
		cnt []int
	}
	parts := make([]*partialAgg, numWorkers)

	// 2. Parallel Loop
	var g errgroup.Group
	for w := 0; w < numWorkers; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, len(scores))
		if start >= end {
			continue
		}
		g.Go(func() error {
			p := &partialAgg{sum: make([]float64, numRegs), cnt: make([]int, numRegs)}
			ids := cs.RegionIDs
			for j := start; j < end; j++ {
				v := scores[j]
				if v != v { // NaN
					continue
				}
				p.sum[ids[j]] += v
				p.cnt[ids[j]]++
			}
			parts[w] = p
			return nil
		})
	}
	_ = g.Wait()

	// 3. Merge Phase
	sum := make([]float64, numRegs)
	cnt := make([]int, numRegs)
	for _, p := range parts {
		if p == nil {
			continue
		}
		for i := 0; i < numRegs; i++ {
			sum[i] += p.sum[i]
			cnt[i] += p.cnt[i]
		}
	}

	out := make([]models.PieSlice, 0, numRegs)
	for i, name := range cs.RegionDict {
		if cnt[i] > 0 {
			out = append(out, models.PieSlice{Region: name, Score: sum[i] / float64(cnt[i])})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Region < out[j].Region })
	return out
}
