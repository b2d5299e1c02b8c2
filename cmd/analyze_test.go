package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/tract-equity/internal/report"
)

func resetAnalyzeFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		analyzeStudy, analyzeOut, analyzeSample, analyzeSeed = "", "", 0, 0
	})
}

func TestRunAnalyze(t *testing.T) {
	srv := newCensusFixture(t)
	c := useConfig(t, srv)
	resetAnalyzeFlags(t)

	var out bytes.Buffer
	m, err := runAnalyze(context.Background(), &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "Public Transportation")
	assert.Contains(t, out.String(), "1,000")

	require.NotNil(t, m)
	assert.NotEmpty(t, m.RunID)
	assert.Equal(t, []string{"nassau", "kings"}, m.Counties)

	for _, name := range []string{report.ManifestFile, report.WorkbookFile, "bar_nassau.html", "bar_kings.html"} {
		_, err := os.Stat(filepath.Join(c.Output.Dir, name))
		assert.NoError(t, err, "expected %s", name)
	}

	read, err := report.ReadManifest(c.Output.Dir)
	require.NoError(t, err)
	assert.Equal(t, m.RunID, read.RunID)
}

func TestRunAnalyze_Sample(t *testing.T) {
	srv := newCensusFixture(t)
	useConfig(t, srv)
	resetAnalyzeFlags(t)
	analyzeSample = 1
	analyzeSeed = 7

	var out bytes.Buffer
	_, err := runAnalyze(context.Background(), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Transportation sample (Nassau)")
	assert.Contains(t, out.String(), "Transportation sample (Kings)")
}

func TestRunAnalyze_WithCache(t *testing.T) {
	srv := newCensusFixture(t)
	c := useConfig(t, srv)
	c.Cache.Enabled = true
	resetAnalyzeFlags(t)

	_, err := runAnalyze(context.Background(), &bytes.Buffer{})
	require.NoError(t, err)

	cache, err := openCache(context.Background())
	require.NoError(t, err)
	defer cache.Close() //nolint:errcheck

	n, err := cache.Count(context.Background())
	require.NoError(t, err)
	// two metadata documents plus one data response per table and county
	assert.Equal(t, 6, n)
}

func TestRunAnalyze_StrictPolicyAborts(t *testing.T) {
	srv := newCensusFixture(t)
	c := useConfig(t, srv)
	c.Validation.Policy = "strict"
	resetAnalyzeFlags(t)

	orig := dataFixtures["B08141/36047"]
	dataFixtures["B08141/36047"] = [][]string{{"36047000100", "100", "150", "10", "40", "0"}}
	t.Cleanup(func() { dataFixtures["B08141/36047"] = orig })

	_, err := runAnalyze(context.Background(), &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds_total")
}

func TestRunAnalyze_InvalidConfig(t *testing.T) {
	srv := newCensusFixture(t)
	c := useConfig(t, srv)
	c.Census.BaseURL = ""
	resetAnalyzeFlags(t)

	_, err := runAnalyze(context.Background(), &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "census.base_url is required")
}

func TestRunAnalyze_StudyFile(t *testing.T) {
	srv := newCensusFixture(t)
	useConfig(t, srv)
	resetAnalyzeFlags(t)

	study := `
label_column: county
counties:
  - { label: kings, name: Kings, geoid: "36047" }
groups:
  - name: transit
    table: B08141
    title: Transportation
    chart: true
    measures:
      - { source: total, label: total }
      - { source: public_transportation_excluding_taxicab, label: Public Transportation }
`
	path := filepath.Join(t.TempDir(), "study.yaml")
	require.NoError(t, os.WriteFile(path, []byte(study), 0o644))
	analyzeStudy = path

	m, err := runAnalyze(context.Background(), &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, []string{"kings"}, m.Counties)
}
