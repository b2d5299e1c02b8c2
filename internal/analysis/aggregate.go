package analysis

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/tract-equity/internal/table"
)

// CountySummary holds county-wide sums of the tracked columns.
type CountySummary struct {
	County  string           `json:"county"`
	Columns []string         `json:"columns"`
	Totals  map[string]int64 `json:"totals"`
}

// Get returns the sum for column; untracked columns read as zero.
func (s CountySummary) Get(column string) int64 {
	return s.Totals[column]
}

// Values returns the sums of columns in the given order.
func (s CountySummary) Values(columns []string) []int64 {
	out := make([]int64, len(columns))
	for i, c := range columns {
		out[i] = s.Totals[c]
	}
	return out
}

// Aggregate sums each column over every row of t, treating null cells as 0.
// t is expected to hold one county's tracts. An empty or nil table yields a
// zero for every column.
func Aggregate(t *table.Table, county string, columns []string) (CountySummary, error) {
	s := CountySummary{
		County:  county,
		Columns: append([]string(nil), columns...),
		Totals:  make(map[string]int64, len(columns)),
	}
	for _, c := range columns {
		s.Totals[c] = 0
	}
	if t == nil || t.Len() == 0 {
		return s, nil
	}

	for _, c := range columns {
		if !t.Has(c) {
			return CountySummary{}, stageError(KindSchema, "aggregate",
				eris.Wrapf(table.ErrMissingColumn, "aggregate: %q", c))
		}
	}

	for i := range t.Len() {
		r := t.Record(i)
		for _, c := range columns {
			v := r.Get(c)
			if v == nil {
				continue
			}
			n, ok := table.AsInt(v)
			if !ok {
				return CountySummary{}, stageError(KindSchema, "aggregate",
					eris.Errorf("aggregate: row %d column %q holds %T, not a count", i, c, v))
			}
			s.Totals[c] += n
		}
	}
	return s, nil
}

// AggregateByCounty restricts t to each county label in turn and aggregates
// columns. Summaries are returned in the order of counties.
func AggregateByCounty(t *table.Table, labelColumn string, counties, columns []string) ([]CountySummary, error) {
	out := make([]CountySummary, 0, len(counties))
	for _, county := range counties {
		sub, err := t.Where(labelColumn, county)
		if err != nil {
			return nil, stageError(KindSchema, "aggregate", err)
		}
		s, err := Aggregate(sub, county, columns)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
