package census

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/tract-equity/internal/fetcher"
)

const b08141Data = `[
  ["GEO_ID","NAME","B08141_001E","B08141_001M","B08141_002E","B08141_006E","B08141_016E","B08141_021E","ucgid"],
  ["1400000US36047000100","Census Tract 1; Kings County; New York","1200","150","300","400","450","50","1400000US36047000100"],
  ["1400000US36047000200","Census Tract 2; Kings County; New York","0","12","-666666666","0","0",null,"1400000US36047000200"],
  ["1400000US36047000300","Census Tract 3; Kings County; New York","800","90","","100","500","200","1400000US36047000300"]
]`

type stubBoundaries struct {
	tracts map[string]*geom.MultiPolygon
	err    error
	calls  atomic.Int32
}

func (s *stubBoundaries) Tracts(_ context.Context, _ Scope) (map[string]*geom.MultiPolygon, error) {
	s.calls.Add(1)
	return s.tracts, s.err
}

func square() *geom.MultiPolygon {
	return geom.NewMultiPolygon(geom.XY).MustSetCoords([][][]geom.Coord{{{
		{-73.99, 40.70}, {-73.98, 40.70}, {-73.98, 40.71}, {-73.99, 40.71}, {-73.99, 40.70},
	}}})
}

func newCensusServer(t *testing.T, data string, metaHits *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/meta/groups/B08141.json", func(w http.ResponseWriter, _ *http.Request) {
		if metaHits != nil {
			metaHits.Add(1)
		}
		_, _ = io.WriteString(w, b08141Group)
	})
	mux.HandleFunc("/data", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("get") != "group(B08141)" {
			http.Error(w, "bad get", http.StatusBadRequest)
			return
		}
		if data == "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		_, _ = io.WriteString(w, data)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientFetch(t *testing.T) {
	srv := newCensusServer(t, b08141Data, nil)
	bounds := &stubBoundaries{tracts: map[string]*geom.MultiPolygon{
		"36047000100": square(),
		"36047000300": square(),
	}}

	c := NewClient(fetcher.NewHTTPFetcher(fetcher.HTTPOptions{}), bounds, Options{BaseURL: srv.URL + "/data"})
	tbl, err := c.Fetch(context.Background(), "B08141", Scope{StateFIPS: "36", CountyFIPS: "047"}, srv.URL+"/meta")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"geoid", "name", "total", "no_vehicle_available", "car_truck_or_van_drove_alone",
		"public_transportation_excluding_taxicab", "walked", "geometry",
	}, tbl.Columns())
	require.Equal(t, 3, tbl.Len())

	r0 := tbl.Record(0)
	assert.Equal(t, "36047000100", r0.Get("geoid"))
	assert.Equal(t, "Census Tract 1; Kings County; New York", r0.Get("name"))
	assert.Equal(t, int64(1200), r0.Get("total"))
	assert.Equal(t, int64(450), r0.Get("public_transportation_excluding_taxicab"))
	assert.NotNil(t, r0.Get("geometry"))

	r1 := tbl.Record(1)
	assert.Equal(t, int64(0), r1.Get("total"))
	assert.Nil(t, r1.Get("no_vehicle_available"), "jam value becomes null")
	assert.Nil(t, r1.Get("walked"), "JSON null stays null")
	assert.Nil(t, r1.Get("geometry"))

	r2 := tbl.Record(2)
	assert.Nil(t, r2.Get("no_vehicle_available"), "empty cell becomes null")
	assert.Equal(t, int64(200), r2.Get("walked"))
	assert.Equal(t, int32(1), bounds.calls.Load())
}

func TestClientFetch_MetadataMemoized(t *testing.T) {
	var hits atomic.Int32
	srv := newCensusServer(t, b08141Data, &hits)

	c := NewClient(fetcher.NewHTTPFetcher(fetcher.HTTPOptions{}), nil, Options{BaseURL: srv.URL + "/data"})
	for _, county := range []string{"047", "059"} {
		_, err := c.Fetch(context.Background(), "B08141", Scope{StateFIPS: "36", CountyFIPS: county}, srv.URL+"/meta")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestClientFetch_EmptyResponse(t *testing.T) {
	srv := newCensusServer(t, "", nil)
	bounds := &stubBoundaries{}

	c := NewClient(fetcher.NewHTTPFetcher(fetcher.HTTPOptions{}), bounds, Options{BaseURL: srv.URL + "/data"})
	tbl, err := c.Fetch(context.Background(), "B08141", Scope{StateFIPS: "36", CountyFIPS: "047"}, srv.URL+"/meta")
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())
	assert.True(t, tbl.Has("total"))
	assert.True(t, tbl.Has("geometry"))
	assert.Equal(t, int32(0), bounds.calls.Load())
}

func TestClientFetch_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(fetcher.NewHTTPFetcher(fetcher.HTTPOptions{}), nil, Options{BaseURL: srv.URL + "/data"})
	_, err := c.Fetch(context.Background(), "B08141", Scope{StateFIPS: "36", CountyFIPS: "047"}, srv.URL+"/meta")
	assert.Error(t, err)
}

func TestClientFetch_BoundaryError(t *testing.T) {
	srv := newCensusServer(t, b08141Data, nil)
	bounds := &stubBoundaries{err: eris.New("tiger unavailable")}

	c := NewClient(fetcher.NewHTTPFetcher(fetcher.HTTPOptions{}), bounds, Options{BaseURL: srv.URL + "/data"})
	_, err := c.Fetch(context.Background(), "B08141", Scope{StateFIPS: "36", CountyFIPS: "047"}, srv.URL+"/meta")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tiger unavailable")
}

func TestBuildTable_BadGEOID(t *testing.T) {
	g := &Group{Table: "T1", Variables: []Variable{{Code: "T1_001E", Name: "total"}}}
	_, _, err := buildTable(g, [][]any{{"GEO_ID", "T1_001E"}, {"0500000US36047", "5"}}, nil)
	assert.Error(t, err)
}

func TestBuildTable_NoKnownVariables(t *testing.T) {
	g := &Group{Table: "T1", Variables: []Variable{{Code: "T1_001E", Name: "total"}}}
	_, _, err := buildTable(g, [][]any{{"GEO_ID", "OTHER"}, {"1400000US36047000100", "5"}}, nil)
	assert.Error(t, err)
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		in   any
		want any
	}{
		{nil, nil},
		{"", nil},
		{"null", nil},
		{"42", int64(42)},
		{float64(7), int64(7)},
		{"-999999999", nil},
		{float64(-222222222), nil},
		{"12.5", 12.5},
	}
	for _, tt := range tests {
		got, err := parseCount(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%v", tt.in)
	}

	_, err := parseCount("abc")
	assert.Error(t, err)
	_, err = parseCount(true)
	assert.Error(t, err)
}
