package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/tract-equity/internal/analysis"
)

// ManifestFile is the manifest's name inside the output directory.
const ManifestFile = "manifest.json"

// WorkbookFile is the summary workbook's name inside the output directory.
const WorkbookFile = "summary.xlsx"

// Artifact kinds.
const (
	KindBar      = "bar"
	KindMap      = "map"
	KindGeoJSON  = "geojson"
	KindWorkbook = "workbook"
)

// Artifact is one file written by a run, relative to the output directory.
type Artifact struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
	File string `json:"file"`
}

// MapSummary records one map layer's coverage and value distribution.
type MapSummary struct {
	Name   string                `json:"name"`
	Group  string                `json:"group"`
	Value  string                `json:"value"`
	Tracts int                   `json:"tracts"`
	Stats  analysis.Distribution `json:"stats"`
}

// Manifest describes a completed run.
type Manifest struct {
	RunID      string                              `json:"run_id"`
	StartedAt  time.Time                           `json:"started_at"`
	FinishedAt time.Time                           `json:"finished_at"`
	Counties   []string                            `json:"counties"`
	Summaries  map[string][]analysis.CountySummary `json:"summaries"`
	Maps       []MapSummary                        `json:"maps"`
	Anomalies  []analysis.Anomaly                  `json:"anomalies"`
	Artifacts  []Artifact                          `json:"artifacts"`
}

func newManifest(study *analysis.Study, res *analysis.Result) *Manifest {
	m := &Manifest{
		RunID:     res.RunID,
		StartedAt: res.StartedAt,
		Counties:  study.CountyLabels(),
		Summaries: make(map[string][]analysis.CountySummary, len(res.Groups)),
		Anomalies: res.Anomalies,
	}
	if m.Anomalies == nil {
		m.Anomalies = []analysis.Anomaly{}
	}
	for _, g := range res.Groups {
		m.Summaries[g.Group.Name] = g.Summaries
	}
	for _, l := range res.Maps {
		m.Maps = append(m.Maps, MapSummary{
			Name:   l.Spec.Name,
			Group:  l.Spec.Group,
			Value:  l.ValueColumn,
			Tracts: l.Tracts.Len(),
			Stats:  l.Stats,
		})
	}
	return m
}

func (m *Manifest) sortArtifacts() {
	sort.Slice(m.Artifacts, func(i, j int) bool {
		if m.Artifacts[i].Kind != m.Artifacts[j].Kind {
			return m.Artifacts[i].Kind < m.Artifacts[j].Kind
		}
		return m.Artifacts[i].Name < m.Artifacts[j].Name
	})
}

// WriteManifest writes m as indented JSON to dir/manifest.json.
func WriteManifest(dir string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return eris.Wrap(err, "report: encode manifest")
	}
	path := filepath.Join(dir, ManifestFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "report: write %s", path)
	}
	return nil
}

// ReadManifest loads dir/manifest.json.
func ReadManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "report: read %s", path)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrapf(err, "report: decode %s", path)
	}
	return &m, nil
}
