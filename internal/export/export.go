// Package export loads a run's projected tracts and county totals into
// PostGIS.
package export

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/tract-equity/internal/analysis"
	"github.com/sells-group/tract-equity/internal/db"
	"github.com/sells-group/tract-equity/internal/tiger"
)

// Target tables.
const (
	TractsTable    = "tract_equity.tracts"
	SummariesTable = "tract_equity.county_summaries"
)

var migrations = []string{
	`CREATE EXTENSION IF NOT EXISTS postgis`,
	`CREATE SCHEMA IF NOT EXISTS tract_equity`,
	`CREATE TABLE IF NOT EXISTS tract_equity.tracts (
		group_name  TEXT NOT NULL,
		geoid       CHAR(11) NOT NULL,
		run_id      UUID NOT NULL,
		county      TEXT NOT NULL,
		measures    JSONB NOT NULL,
		geom        GEOMETRY(MultiPolygon, 4326),
		exported_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (group_name, geoid)
	)`,
	`CREATE INDEX IF NOT EXISTS tracts_geom_idx ON tract_equity.tracts USING GIST (geom)`,
	`CREATE TABLE IF NOT EXISTS tract_equity.county_summaries (
		run_id      UUID NOT NULL,
		group_name  TEXT NOT NULL,
		county      TEXT NOT NULL,
		measure     TEXT NOT NULL,
		total       BIGINT NOT NULL,
		exported_at TIMESTAMPTZ NOT NULL
	)`,
}

var (
	tractColumns   = []string{"group_name", "geoid", "run_id", "county", "measures", "geom", "exported_at"}
	summaryColumns = []string{"run_id", "group_name", "county", "measure", "total", "exported_at"}

	tractMerge = db.Merge{Table: TractsTable, Columns: tractColumns, Keys: []string{"group_name", "geoid"}}
)

// Stats counts the rows a Run wrote.
type Stats struct {
	Tracts    int64
	Summaries int64
}

// Exporter writes pipeline results to Postgres.
type Exporter struct {
	pool db.Pool
	now  func() time.Time
}

// New creates an Exporter.
func New(pool db.Pool) *Exporter {
	return &Exporter{pool: pool, now: time.Now}
}

// Migrate creates the schema and tables if they do not exist.
func (e *Exporter) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := e.pool.Exec(ctx, stmt); err != nil {
			return eris.Wrap(err, "export: migrate")
		}
	}
	return nil
}

// Run exports every group of res. Tracts are upserted on (group, geoid) so a
// rerun replaces the previous values; county totals are appended per run.
func (e *Exporter) Run(ctx context.Context, study *analysis.Study, res *analysis.Result) (Stats, error) {
	log := zap.L().With(
		zap.String("component", "export"),
		zap.String("run_id", res.RunID),
	)

	var st Stats
	for _, gr := range res.Groups {
		tracts, err := e.ExportTracts(ctx, res.RunID, study.LabelColumn, gr)
		if err != nil {
			return st, err
		}
		summaries, err := e.ExportSummaries(ctx, res.RunID, gr)
		if err != nil {
			return st, err
		}
		st.Tracts += tracts
		st.Summaries += summaries
		log.Info("group exported",
			zap.String("group", gr.Group.Name),
			zap.Int64("tracts", tracts),
			zap.Int64("summaries", summaries),
		)
	}
	return st, nil
}

// ExportTracts upserts one group's tracts on (group_name, geoid).
func (e *Exporter) ExportTracts(ctx context.Context, runID, labelColumn string, gr analysis.GroupResult) (int64, error) {
	rows, err := TractRows(runID, labelColumn, gr, e.now().UTC())
	if err != nil {
		return 0, err
	}
	n, err := tractMerge.Load(ctx, e.pool, rows)
	if err != nil {
		return 0, eris.Wrapf(err, "export: tracts for %s", gr.Group.Name)
	}
	return n, nil
}

// ExportSummaries appends one row per county and measure.
func (e *Exporter) ExportSummaries(ctx context.Context, runID string, gr analysis.GroupResult) (int64, error) {
	at := e.now().UTC()
	var rows [][]any
	for _, s := range gr.Summaries {
		for _, c := range s.Columns {
			rows = append(rows, []any{runID, gr.Group.Name, s.County, c, s.Get(c), at})
		}
	}
	n, err := db.CopyFrom(ctx, e.pool, SummariesTable, summaryColumns, rows)
	if err != nil {
		return 0, eris.Wrapf(err, "export: county totals for %s", gr.Group.Name)
	}
	return n, nil
}

// TractRows converts a group's projected tracts into rows matching the
// tracts table. Measures are stored as a JSON object keyed by display name;
// null counts stay null.
func TractRows(runID, labelColumn string, gr analysis.GroupResult, at time.Time) ([][]any, error) {
	t := gr.Tracts
	if t == nil {
		return nil, nil
	}
	measures := gr.Group.MeasureLabels()

	rows := make([][]any, 0, t.Len())
	for i := range t.Len() {
		r := t.Record(i)

		geoid, _ := r.Get(analysis.ColumnGEOID).(string)
		if geoid == "" {
			return nil, eris.Errorf("export: %s row %d has no geoid", gr.Group.Name, i)
		}
		county, _ := r.Get(labelColumn).(string)

		values := make(map[string]any, len(measures))
		for _, m := range measures {
			values[m] = r.Get(m)
		}

		var wkb []byte
		if g, ok := r.Get(analysis.ColumnGeometry).(*geom.MultiPolygon); ok {
			b, err := tiger.EncodeWKB(g)
			if err != nil {
				return nil, eris.Wrapf(err, "export: %s tract %s", gr.Group.Name, geoid)
			}
			wkb = b
		}

		rows = append(rows, []any{gr.Group.Name, geoid, runID, county, values, wkb, at})
	}
	return rows, nil
}
