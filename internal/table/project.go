package table

import "github.com/rotisserie/eris"

// Rename maps a source column to its display name.
type Rename struct {
	From string `yaml:"source" json:"source"`
	To   string `yaml:"label" json:"label"`
}

// Project keeps exactly the listed columns, in list order, renamed to their
// display names. Row order and count are preserved. The first source column
// missing from t is reported as ErrMissingColumn.
func Project(t *Table, renames []Rename) (*Table, error) {
	idx := make([]int, len(renames))
	columns := make([]string, len(renames))
	for i, rn := range renames {
		j, ok := t.index[rn.From]
		if !ok {
			return nil, eris.Wrapf(ErrMissingColumn, "table: project: source column %q", rn.From)
		}
		idx[i] = j
		columns[i] = rn.To
	}

	rows := make([]Row, len(t.rows))
	for i, r := range t.rows {
		nr := make(Row, len(idx))
		for k, j := range idx {
			nr[k] = r[j]
		}
		rows[i] = nr
	}

	return New(columns, rows)
}
