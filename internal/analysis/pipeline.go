// Package analysis runs the tract study: fetch each group per county, merge
// the counties, project the measures, then aggregate county totals and derive
// the per-tract map layers.
package analysis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/tract-equity/internal/census"
	"github.com/sells-group/tract-equity/internal/table"
)

// Source fetches one ACS table for the tracts of one county.
type Source interface {
	Fetch(ctx context.Context, tableID string, scope census.Scope, metadataURL string) (*table.Table, error)
}

// Options configures a Pipeline.
type Options struct {
	MetadataURL string
	Policy      Policy
}

// GroupResult is one group's merged, projected tracts and county totals.
type GroupResult struct {
	Group     Group
	Tracts    *table.Table
	Summaries []CountySummary
}

// MapResult is one choropleth layer: populated tracts plus the value column.
type MapResult struct {
	Spec        MapSpec
	Tracts      *table.Table
	ValueColumn string
	Stats       Distribution
}

// Result is everything a run produced.
type Result struct {
	RunID     string
	StartedAt time.Time
	Groups    []GroupResult
	Maps      []MapResult
	Anomalies []Anomaly
}

// Group returns the result of the named group.
func (r *Result) Group(name string) (GroupResult, bool) {
	for _, g := range r.Groups {
		if g.Group.Name == name {
			return g, true
		}
	}
	return GroupResult{}, false
}

// Pipeline runs a Study against a Source.
type Pipeline struct {
	src   Source
	study *Study
	opts  Options
	now   func() time.Time
}

// NewPipeline creates a Pipeline. An empty policy means PolicyWarn.
func NewPipeline(src Source, study *Study, opts Options) *Pipeline {
	if opts.Policy == "" {
		opts.Policy = PolicyWarn
	}
	return &Pipeline{src: src, study: study, opts: opts, now: time.Now}
}

// Run executes every group and map of the study. Any stage failure aborts
// the run with an *Error.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	res := &Result{RunID: uuid.NewString(), StartedAt: p.now().UTC()}
	log := zap.L().With(
		zap.String("component", "analysis.pipeline"),
		zap.String("run_id", res.RunID),
	)

	for _, g := range p.study.Groups {
		tracts, err := p.Collect(ctx, g)
		if err != nil {
			return nil, err
		}

		found := CheckCounts(tracts, "project", ColumnTotal, g.MeasureLabels())
		recorded, err := p.opts.Policy.Apply("validate:"+g.Name, found)
		if err != nil {
			return nil, err
		}
		res.Anomalies = append(res.Anomalies, recorded...)

		summaries, err := AggregateByCounty(tracts, p.study.LabelColumn, p.study.CountyLabels(), g.MeasureLabels())
		if err != nil {
			return nil, err
		}

		res.Groups = append(res.Groups, GroupResult{Group: g, Tracts: tracts, Summaries: summaries})
		log.Info("group complete", zap.String("group", g.Name), zap.Int("tracts", tracts.Len()))
	}

	for _, m := range p.study.Maps {
		layer, anomalies, err := p.mapLayer(res, m)
		if err != nil {
			return nil, err
		}
		res.Anomalies = append(res.Anomalies, anomalies...)
		res.Maps = append(res.Maps, layer)
		log.Info("map layer ready",
			zap.String("map", m.Name),
			zap.Int("tracts", layer.Tracts.Len()),
			zap.Float64("mean", layer.Stats.Mean),
		)
	}

	return res, nil
}

// Collect fetches group g for every county in study order, merges the
// county tables under the label column and projects the group's columns.
func (p *Pipeline) Collect(ctx context.Context, g Group) (*table.Table, error) {
	parts := make([]table.Labeled, 0, len(p.study.Counties))
	for _, c := range p.study.Counties {
		scope, err := c.Scope()
		if err != nil {
			return nil, stageError(KindFetch, "fetch", err)
		}

		t, err := p.src.Fetch(ctx, g.Table, scope, p.opts.MetadataURL)
		if err != nil {
			return nil, stageError(KindFetch, "fetch", eris.Wrapf(err, "%s for %s", g.Table, c.Label))
		}
		if t == nil || t.Len() == 0 {
			return nil, stageError(KindEmpty, "fetch", eris.Errorf("%s returned no tracts for %s", g.Table, c.Label))
		}
		parts = append(parts, table.Labeled{Label: c.Label, Table: t})
	}

	merged, err := table.Merge(p.study.LabelColumn, parts...)
	if err != nil {
		return nil, stageError(KindSchema, "merge", err)
	}

	projected, err := table.Project(merged, g.Projection(p.study.LabelColumn))
	if err != nil {
		return nil, stageError(KindSchema, "project", eris.Wrapf(err, "group %s", g.Name))
	}
	return projected, nil
}

func (p *Pipeline) mapLayer(res *Result, m MapSpec) (MapResult, []Anomaly, error) {
	gr, ok := res.Group(m.Group)
	if !ok {
		return MapResult{}, nil, stageError(KindSchema, "map", eris.Errorf("map %s: group %q was not run", m.Name, m.Group))
	}

	populated, err := Normalize(gr.Tracts, NormalizeSpec{Count: m.Count})
	if err != nil {
		return MapResult{}, nil, err
	}

	value := m.Count
	var recorded []Anomaly
	if m.Share {
		value = ColumnPercentage
		recorded, err = p.opts.Policy.Apply("normalize:"+m.Name, CheckPercentages(populated, "normalize", value))
		if err != nil {
			return MapResult{}, nil, err
		}
	}

	return MapResult{
		Spec:        m,
		Tracts:      populated,
		ValueColumn: value,
		Stats:       Describe(populated, value),
	}, recorded, nil
}
