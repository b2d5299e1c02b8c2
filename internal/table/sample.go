package table

import "math/rand/v2"

// Sample returns min(n, Len) rows chosen uniformly without replacement,
// kept in their original order.
func (t *Table) Sample(n int, rng *rand.Rand) *Table {
	if n <= 0 {
		return &Table{columns: t.columns, index: t.index}
	}
	if n >= len(t.rows) {
		return &Table{columns: t.columns, index: t.index, rows: t.rows}
	}

	picked := make([]bool, len(t.rows))
	for _, i := range rng.Perm(len(t.rows))[:n] {
		picked[i] = true
	}

	out := &Table{columns: t.columns, index: t.index, rows: make([]Row, 0, n)}
	for i, r := range t.rows {
		if picked[i] {
			out.rows = append(out.rows, r)
		}
	}
	return out
}
