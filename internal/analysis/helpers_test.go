package analysis

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/tract-equity/internal/table"
)

func mustTable(t *testing.T, columns []string, rows ...table.Row) *table.Table {
	t.Helper()
	tbl, err := table.New(columns, rows)
	require.NoError(t, err)
	return tbl
}
