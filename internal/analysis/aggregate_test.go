package analysis

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/tract-equity/internal/table"
)

func TestAggregate_NullsCountAsZero(t *testing.T) {
	tbl := mustTable(t, []string{"total", "a", "b"},
		table.Row{int64(10), int64(2), nil},
		table.Row{int64(5), nil, int64(3)},
	)

	s, err := Aggregate(tbl, "kings", []string{"total", "a", "b"})
	require.NoError(t, err)
	assert.Equal(t, "kings", s.County)
	assert.Equal(t, map[string]int64{"total": 15, "a": 2, "b": 3}, s.Totals)
	assert.Equal(t, []int64{2, 3}, s.Values([]string{"a", "b"}))
}

func TestAggregate_EmptyTableYieldsZeros(t *testing.T) {
	tbl := mustTable(t, []string{"total", "a"})

	s, err := Aggregate(tbl, "nassau", []string{"total", "a", "b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"total": 0, "a": 0, "b": 0}, s.Totals)
	assert.Equal(t, []string{"total", "a", "b"}, s.Columns)

	s, err = Aggregate(nil, "nassau", []string{"total"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), s.Get("total"))
}

func TestAggregate_MatchesArithmeticSum(t *testing.T) {
	var rows []table.Row
	var want int64
	for i := range 200 {
		if i%7 == 0 {
			rows = append(rows, table.Row{nil})
			continue
		}
		rows = append(rows, table.Row{int64(i * 13)})
		want += int64(i * 13)
	}

	s, err := Aggregate(mustTable(t, []string{"walked"}, rows...), "kings", []string{"walked"})
	require.NoError(t, err)
	assert.Equal(t, want, s.Get("walked"))
}

func TestAggregate_MissingColumn(t *testing.T) {
	tbl := mustTable(t, []string{"total"}, table.Row{int64(1)})

	_, err := Aggregate(tbl, "kings", []string{"total", "walked"})
	require.Error(t, err)
	assert.Equal(t, KindSchema, KindOf(err))
	assert.True(t, eris.Is(err, table.ErrMissingColumn))
}

func TestAggregate_NonNumericCell(t *testing.T) {
	tbl := mustTable(t, []string{"total"}, table.Row{"ten"})

	_, err := Aggregate(tbl, "kings", []string{"total"})
	require.Error(t, err)
	assert.Equal(t, KindSchema, KindOf(err))
}

func TestAggregateByCounty(t *testing.T) {
	tbl := mustTable(t, []string{"county", "total"},
		table.Row{"nassau", int64(4)},
		table.Row{"kings", int64(10)},
		table.Row{"nassau", nil},
		table.Row{"kings", int64(1)},
	)

	got, err := AggregateByCounty(tbl, "county", []string{"nassau", "kings", "queens"}, []string{"total"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, int64(4), got[0].Get("total"))
	assert.Equal(t, int64(11), got[1].Get("total"))
	assert.Equal(t, "queens", got[2].County)
	assert.Equal(t, int64(0), got[2].Get("total"))
}

func TestAggregateByCounty_MissingLabelColumn(t *testing.T) {
	tbl := mustTable(t, []string{"total"}, table.Row{int64(1)})

	_, err := AggregateByCounty(tbl, "county", []string{"kings"}, []string{"total"})
	assert.Equal(t, KindSchema, KindOf(err))
}
