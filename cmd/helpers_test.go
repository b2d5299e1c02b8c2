package main

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sells-group/tract-equity/internal/config"
)

var groupFixtures = map[string]string{
	"B08141": `{"variables": {
		"B08141_001E": {"label": "Estimate!!Total:", "concept": "Means of Transportation to Work"},
		"B08141_002E": {"label": "Estimate!!Total:!!No vehicle available", "concept": "Means of Transportation to Work"},
		"B08141_006E": {"label": "Estimate!!Total:!!Car, truck, or van - drove alone:", "concept": "Means of Transportation to Work"},
		"B08141_016E": {"label": "Estimate!!Total:!!Public transportation (excluding taxicab):", "concept": "Means of Transportation to Work"},
		"B08141_021E": {"label": "Estimate!!Total:!!Walked:", "concept": "Means of Transportation to Work"}
	}}`,
	"B03002": `{"variables": {
		"B03002_001E": {"label": "Estimate!!Total:", "concept": "Hispanic or Latino Origin by Race"},
		"B03002_003E": {"label": "Estimate!!Total:!!Not Hispanic or Latino:!!White alone", "concept": "Hispanic or Latino Origin by Race"},
		"B03002_004E": {"label": "Estimate!!Total:!!Not Hispanic or Latino:!!Black or African American alone", "concept": "Hispanic or Latino Origin by Race"},
		"B03002_005E": {"label": "Estimate!!Total:!!Not Hispanic or Latino:!!American Indian and Alaska Native alone", "concept": "Hispanic or Latino Origin by Race"},
		"B03002_006E": {"label": "Estimate!!Total:!!Not Hispanic or Latino:!!Asian alone", "concept": "Hispanic or Latino Origin by Race"}
	}}`,
}

// dataFixtures holds the value cells of each tract, keyed by table and
// county GEOID.
var dataFixtures = map[string][][]string{
	"B08141/36059": {
		{"36059000100", "1000", "20", "800", "100", "30"},
		{"36059000200", "0", "0", "0", "0", "0"},
	},
	"B08141/36047": {
		{"36047000100", "100", "50", "10", "40", ""},
		{"36047000200", "300", "-666666666", "30", "150", "60"},
	},
	"B03002/36059": {
		{"36059000100", "2000", "1500", "200", "5", "150"},
	},
	"B03002/36047": {
		{"36047000100", "400", "100", "250", "", "20"},
	},
}

var dataCodes = map[string][]string{
	"B08141": {"B08141_001E", "B08141_002E", "B08141_006E", "B08141_016E", "B08141_021E"},
	"B03002": {"B03002_001E", "B03002_003E", "B03002_004E", "B03002_005E", "B03002_006E"},
}

// newCensusFixture serves group metadata under /meta and tract data under
// /data for the built-in study's tables and counties.
func newCensusFixture(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/meta/groups/", func(w http.ResponseWriter, r *http.Request) {
		tableID := strings.TrimSuffix(filepath.Base(r.URL.Path), ".json")
		body, ok := groupFixtures[tableID]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, body)
	})
	mux.HandleFunc("/data", func(w http.ResponseWriter, r *http.Request) {
		tableID := strings.TrimSuffix(strings.TrimPrefix(r.URL.Query().Get("get"), "group("), ")")
		ucgid := r.URL.Query().Get("ucgid")
		county := strings.TrimPrefix(strings.SplitN(ucgid, "$", 2)[0], "pseudo(0500000US")

		rows, ok := dataFixtures[tableID+"/"+county]
		if !ok {
			http.Error(w, "unknown query", http.StatusBadRequest)
			return
		}

		header := append([]string{"GEO_ID", "NAME"}, dataCodes[tableID]...)
		var b strings.Builder
		b.WriteString("[[" + quoteAll(header) + "]")
		for _, row := range rows {
			cells := append([]string{"1400000US" + row[0], fmt.Sprintf("Census Tract %s", row[0][5:])}, row[1:]...)
			b.WriteString(",[" + quoteAll(cells) + "]")
		}
		b.WriteString("]")
		_, _ = io.WriteString(w, b.String())
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func quoteAll(cells []string) string {
	quoted := make([]string, len(cells))
	for i, c := range cells {
		quoted[i] = fmt.Sprintf("%q", c)
	}
	return strings.Join(quoted, ",")
}

// useConfig installs a config pointing at srv with boundaries disabled and
// restores the previous one after the test.
func useConfig(t *testing.T, srv *httptest.Server) *config.Config {
	t.Helper()
	prev := cfg
	t.Cleanup(func() { cfg = prev })

	c := &config.Config{}
	c.Census.BaseURL = srv.URL + "/data"
	c.Census.MetadataURL = srv.URL + "/meta"
	c.Census.TimeoutSecs = 5
	c.Census.MaxAttempts = 1
	c.Census.UserAgent = "tract-equity-test"
	c.Output.Dir = t.TempDir()
	c.Output.Concurrency = 2
	c.Cache.Path = filepath.Join(t.TempDir(), "cache.db")
	c.Cache.TTLHours = 1
	c.Postgres.MaxConns = 1
	c.Server.Port = 8080
	c.Server.CORSOrigins = []string{"*"}
	c.Validation.Policy = "warn"
	cfg = c
	return c
}
