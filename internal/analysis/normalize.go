package analysis

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/tract-equity/internal/table"
)

// ColumnPercentage is the default name of the derived share column.
const ColumnPercentage = "percentage"

// NormalizeSpec names the columns Normalize reads and writes.
type NormalizeSpec struct {
	Total      string
	Count      string
	Percentage string
}

// Normalize drops tracts whose total is null or not positive, then derives
// percentage = round(count / total * 100) with ties rounded to even. A null
// count gives a null percentage. Out-of-range results are kept as computed.
func Normalize(t *table.Table, spec NormalizeSpec) (*table.Table, error) {
	if spec.Total == "" {
		spec.Total = ColumnTotal
	}
	if spec.Percentage == "" {
		spec.Percentage = ColumnPercentage
	}
	for _, c := range []string{spec.Total, spec.Count} {
		if !t.Has(c) {
			return nil, stageError(KindSchema, "normalize",
				eris.Wrapf(table.ErrMissingColumn, "normalize: %q", c))
		}
	}

	populated := t.Filter(func(r table.Record) bool {
		total, ok := r.Int(spec.Total)
		return ok && total > 0
	})

	return populated.WithColumn(spec.Percentage, func(r table.Record) any {
		total, _ := r.Int(spec.Total)
		count, ok := table.AsFloat(r.Get(spec.Count))
		if !ok {
			return nil
		}
		return int64(math.RoundToEven(count / float64(total) * 100))
	}), nil
}
