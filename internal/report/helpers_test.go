package report

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/tract-equity/internal/analysis"
	"github.com/sells-group/tract-equity/internal/table"
)

func square(x, y float64) *geom.MultiPolygon {
	return geom.NewMultiPolygon(geom.XY).MustSetCoords([][][]geom.Coord{{{
		{x, y}, {x, y + 0.01}, {x + 0.01, y + 0.01}, {x + 0.01, y}, {x, y},
	}}}).SetSRID(4326)
}

func mustTable(t *testing.T, columns []string, rows ...table.Row) *table.Table {
	t.Helper()
	tbl, err := table.New(columns, rows)
	require.NoError(t, err)
	return tbl
}

func testStudy(t *testing.T) *analysis.Study {
	t.Helper()
	s, err := analysis.DefaultStudy()
	require.NoError(t, err)
	return s
}

func testPresenter(t *testing.T) *Presenter {
	t.Helper()
	p, err := NewPresenter(Options{Dir: t.TempDir()})
	require.NoError(t, err)
	return p
}

func shareTracts(t *testing.T) *table.Table {
	return mustTable(t, []string{"geoid", "county", "total", "Public Transportation", "geometry", "percentage"},
		table.Row{"36047000100", "kings", int64(100), int64(40), square(-73.99, 40.70), int64(40)},
		table.Row{"36047000200", "kings", int64(300), int64(150), square(-73.97, 40.72), int64(50)},
		table.Row{"36059000100", "nassau", int64(1000), int64(100), square(-73.60, 40.75), int64(10)},
		table.Row{"36059000200", "nassau", int64(50), nil, nil, nil},
	)
}

// testResult is a two-group run result with one share map.
func testResult(t *testing.T) *analysis.Result {
	t.Helper()
	s := testStudy(t)
	transit, _ := s.Group("transit")
	demo, _ := s.Group("demographics")

	tracts := shareTracts(t)
	return &analysis.Result{
		RunID: "4a7f0c2e-0000-4000-8000-000000000001",
		Groups: []analysis.GroupResult{
			{
				Group:  transit,
				Tracts: tracts,
				Summaries: []analysis.CountySummary{
					{County: "nassau", Columns: transit.MeasureLabels(), Totals: map[string]int64{"total": 1050, "Public Transportation": 100, "Car Truck or Van": 812345}},
					{County: "kings", Columns: transit.MeasureLabels(), Totals: map[string]int64{"total": 400, "Public Transportation": 190, "Walked": 60}},
				},
			},
			{
				Group:  demo,
				Tracts: tracts,
				Summaries: []analysis.CountySummary{
					{County: "nassau", Columns: demo.MeasureLabels(), Totals: map[string]int64{"total": 2000}},
					{County: "kings", Columns: demo.MeasureLabels(), Totals: map[string]int64{"total": 400, "Black or African American": 250}},
				},
			},
		},
		Maps: []analysis.MapResult{
			{Spec: s.Maps[0], Tracts: tracts, ValueColumn: "percentage", Stats: analysis.Distribution{N: 3, Mean: 33.3}},
		},
		Anomalies: []analysis.Anomaly{{Stage: "project", GEOID: "36047000100", Column: "Walked", Reason: analysis.ReasonNegative, Value: -1}},
	}
}
