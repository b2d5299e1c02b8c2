package analysis

import (
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/sells-group/tract-equity/internal/table"
)

// Distribution summarizes the non-null values of a column.
type Distribution struct {
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	P90    float64 `json:"p90"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Describe computes the distribution of column over t. Null and non-numeric
// cells are skipped; a column with no values yields the zero Distribution.
func Describe(t *table.Table, column string) Distribution {
	values := make([]float64, 0, t.Len())
	for i := range t.Len() {
		if v, ok := table.AsFloat(t.Record(i).Get(column)); ok {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return Distribution{}
	}
	slices.Sort(values)

	return Distribution{
		N:      len(values),
		Mean:   stat.Mean(values, nil),
		Median: stat.Quantile(0.5, stat.Empirical, values, nil),
		P90:    stat.Quantile(0.9, stat.Empirical, values, nil),
		Min:    floats.Min(values),
		Max:    floats.Max(values),
	}
}
