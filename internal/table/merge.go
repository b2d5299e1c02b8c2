package table

import (
	"slices"

	"github.com/rotisserie/eris"
)

// Labeled pairs a table with the label stamped on each of its rows when merged.
type Labeled struct {
	Label string
	Table *Table
}

// Merge stamps labelColumn on every row of each part and unions the rows in
// argument order. All parts must share identical columns. If a part already
// carries labelColumn its values are overwritten; otherwise the column is
// appended.
func Merge(labelColumn string, parts ...Labeled) (*Table, error) {
	if len(parts) == 0 {
		return nil, eris.New("table: merge: no inputs")
	}

	base := parts[0].Table.Columns()
	for i, p := range parts[1:] {
		if !slices.Equal(base, p.Table.Columns()) {
			return nil, eris.Wrapf(ErrSchemaMismatch,
				"table: merge: part %d (%s) columns %v differ from %v",
				i+1, p.Label, p.Table.Columns(), base)
		}
	}

	columns := base
	labelIdx := slices.Index(columns, labelColumn)
	if labelIdx < 0 {
		labelIdx = len(columns)
		columns = append(columns, labelColumn)
	}

	total := 0
	for _, p := range parts {
		total += p.Table.Len()
	}

	rows := make([]Row, 0, total)
	for _, p := range parts {
		for _, r := range p.Table.rows {
			nr := make(Row, len(columns))
			copy(nr, r)
			nr[labelIdx] = p.Label
			rows = append(rows, nr)
		}
	}

	return New(columns, rows)
}
