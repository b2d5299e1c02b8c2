// Package report renders a run's results: plotly bar charts and choropleth
// maps as standalone HTML, GeoJSON tract layers, an XLSX workbook, console
// tables and the run manifest.
package report

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/tract-equity/internal/analysis"
)

// Options configures a Presenter.
type Options struct {
	Dir         string  // output directory (default "out")
	Concurrency int     // artifacts rendered at once (default 4)
	MapStyle    string  // mapbox base style (default "open-street-map")
	MapZoom     float64 // initial map zoom (default 9)
}

// Presenter writes artifacts into one output directory.
type Presenter struct {
	opts Options
	now  func() time.Time
}

// NewPresenter creates the output directory and returns a Presenter.
func NewPresenter(opts Options) (*Presenter, error) {
	if opts.Dir == "" {
		opts.Dir = "out"
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.MapStyle == "" {
		opts.MapStyle = "open-street-map"
	}
	if opts.MapZoom == 0 {
		opts.MapZoom = 9
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "report: create %s", opts.Dir)
	}
	return &Presenter{opts: opts, now: time.Now}, nil
}

// Dir returns the output directory.
func (p *Presenter) Dir() string { return p.opts.Dir }

func (p *Presenter) path(name string) string {
	return filepath.Join(p.opts.Dir, name)
}

// Render writes every artifact of res and then the manifest describing them.
// Charts, maps and the workbook are independent and rendered concurrently.
func (p *Presenter) Render(ctx context.Context, study *analysis.Study, res *analysis.Result) (*Manifest, error) {
	log := zap.L().With(
		zap.String("component", "report.presenter"),
		zap.String("run_id", res.RunID),
	)

	m := newManifest(study, res)

	var mu sync.Mutex
	add := func(a Artifact) {
		mu.Lock()
		defer mu.Unlock()
		m.Artifacts = append(m.Artifacts, a)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)

	for _, gr := range res.Groups {
		if !gr.Group.Chart {
			continue
		}
		for _, s := range gr.Summaries {
			county, _ := study.County(s.County)
			title := gr.Group.Title + ", " + countyName(county) + " County"
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				path, err := p.RenderBar(s, title)
				if err != nil {
					return err
				}
				add(Artifact{Kind: KindBar, Name: s.County, File: filepath.Base(path)})
				return nil
			})
		}
	}

	for _, layer := range res.Maps {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			art, err := p.RenderMap(layer.Tracts, layer.ValueColumn, MapOptions{
				Name:        layer.Spec.Name,
				Title:       layer.Spec.Title,
				Colorscale:  layer.Spec.Colorscale,
				LabelColumn: study.LabelColumn,
			})
			if eris.Is(err, ErrEmptyLayer) {
				log.Warn("map skipped, no tract geometry", zap.String("map", layer.Spec.Name))
				return nil
			}
			if err != nil {
				return err
			}
			add(Artifact{Kind: KindMap, Name: art.Name, File: filepath.Base(art.HTMLPath)})
			add(Artifact{Kind: KindGeoJSON, Name: art.Name, File: filepath.Base(art.GeoJSONPath)})
			return nil
		})
	}

	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		path := p.path(WorkbookFile)
		if err := WriteWorkbook(path, res); err != nil {
			return err
		}
		add(Artifact{Kind: KindWorkbook, Name: "summary", File: WorkbookFile})
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "report: render")
	}

	m.sortArtifacts()
	m.FinishedAt = p.now().UTC()
	if err := WriteManifest(p.opts.Dir, m); err != nil {
		return nil, err
	}

	log.Info("artifacts written", zap.String("dir", p.opts.Dir), zap.Int("artifacts", len(m.Artifacts)))
	return m, nil
}

func countyName(c analysis.County) string {
	if c.Name != "" {
		return c.Name
	}
	return c.Label
}
