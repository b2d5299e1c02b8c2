package report

import (
	"encoding/json"
	"fmt"
	"os"

	grob "github.com/MetalBlueberry/go-plotly/graph_objects"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/tract-equity/internal/analysis"
	"github.com/sells-group/tract-equity/internal/table"
)

// MapOptions names and styles one choropleth layer.
type MapOptions struct {
	Name       string
	Title      string
	Colorscale string
	// LabelColumn, when present in the table, is copied into each feature.
	LabelColumn string
}

// MapArtifact describes the files written for one map layer.
type MapArtifact struct {
	Name        string
	HTMLPath    string
	GeoJSONPath string
	Tracts      int
	Skipped     int
	CenterLat   float64
	CenterLon   float64
}

// Layer is a map layer ready to render: tract features plus the parallel
// arrays plotly reads.
type Layer struct {
	Features  *geojson.FeatureCollection
	Locations []string
	Values    []float64
	Hover     []string
	Bounds    *geom.Bounds
	Skipped   int
}

// ErrEmptyLayer is returned when no tract has both a geometry and a value.
var ErrEmptyLayer = eris.New("no tract has both geometry and value")

// BuildLayer collects tracts that have both a geometry and a value in
// valueColumn. Features are keyed by GEOID.
func BuildLayer(t *table.Table, valueColumn, labelColumn string) (*Layer, error) {
	for _, c := range []string{analysis.ColumnGEOID, analysis.ColumnGeometry, valueColumn} {
		if !t.Has(c) {
			return nil, eris.Wrapf(table.ErrMissingColumn, "report: map %q", c)
		}
	}

	l := &Layer{
		Features: &geojson.FeatureCollection{},
		Bounds:   geom.NewBounds(geom.XY),
	}
	for i := range t.Len() {
		r := t.Record(i)
		geoid, _ := r.Get(analysis.ColumnGEOID).(string)
		g, _ := r.Get(analysis.ColumnGeometry).(*geom.MultiPolygon)
		v, ok := table.AsFloat(r.Get(valueColumn))
		if geoid == "" || g == nil || !ok {
			l.Skipped++
			continue
		}

		props := map[string]any{
			analysis.ColumnGEOID: geoid,
			valueColumn:          v,
		}
		if labelColumn != "" {
			if label := r.Get(labelColumn); label != nil {
				props[labelColumn] = label
			}
		}

		l.Features.Features = append(l.Features.Features, &geojson.Feature{
			ID:         geoid,
			Geometry:   g,
			Properties: props,
		})
		l.Locations = append(l.Locations, geoid)
		l.Values = append(l.Values, v)
		l.Hover = append(l.Hover, fmt.Sprintf("%s: %s %g", geoid, valueColumn, v))
		l.Bounds.Extend(g)
	}

	if len(l.Locations) == 0 {
		return nil, eris.Wrapf(ErrEmptyLayer, "report: %q", valueColumn)
	}
	return l, nil
}

// Center returns the midpoint of the layer's bounding box as (lat, lon).
func (l *Layer) Center() (float64, float64) {
	return (l.Bounds.Min(1) + l.Bounds.Max(1)) / 2, (l.Bounds.Min(0) + l.Bounds.Max(0)) / 2
}

// MapFigure builds a choropleth-mapbox figure of the layer.
func MapFigure(l *Layer, valueColumn string, opts MapOptions, style string, zoom float64) *grob.Fig {
	lat, lon := l.Center()
	fig := &grob.Fig{
		Layout: &grob.Layout{
			Title: &grob.LayoutTitle{Text: opts.Title},
			Mapbox: &grob.LayoutMapbox{
				Style:  style,
				Zoom:   zoom,
				Center: &grob.LayoutMapboxCenter{Lat: lat, Lon: lon},
			},
		},
	}
	fig.AddTraces(&grob.Choroplethmapbox{
		Type:       grob.TraceTypeChoroplethmapbox,
		Name:       valueColumn,
		Geojson:    l.Features,
		Locations:  l.Locations,
		Z:          l.Values,
		Text:       l.Hover,
		Colorscale: opts.Colorscale,
	})
	return fig
}

// RenderMap writes map_<name>.html and map_<name>.geojson for the tracts of t
// shaded by valueColumn.
func (p *Presenter) RenderMap(t *table.Table, valueColumn string, opts MapOptions) (MapArtifact, error) {
	if opts.Name == "" {
		opts.Name = valueColumn
	}
	if opts.Title == "" {
		opts.Title = valueColumn
	}
	if opts.Colorscale == "" {
		opts.Colorscale = "Blues"
	}

	l, err := BuildLayer(t, valueColumn, opts.LabelColumn)
	if err != nil {
		return MapArtifact{}, err
	}
	if l.Skipped > 0 {
		zap.L().Warn("tracts left off map",
			zap.String("component", "report.choropleth"),
			zap.String("map", opts.Name),
			zap.Int("skipped", l.Skipped),
		)
	}

	base := "map_" + fileSlug(opts.Name)
	art := MapArtifact{
		Name:        opts.Name,
		HTMLPath:    p.path(base + ".html"),
		GeoJSONPath: p.path(base + ".geojson"),
		Tracts:      len(l.Locations),
		Skipped:     l.Skipped,
	}
	art.CenterLat, art.CenterLon = l.Center()

	data, err := json.Marshal(l.Features)
	if err != nil {
		return MapArtifact{}, eris.Wrapf(err, "report: encode %s", art.GeoJSONPath)
	}
	if err := os.WriteFile(art.GeoJSONPath, data, 0o644); err != nil {
		return MapArtifact{}, eris.Wrapf(err, "report: write %s", art.GeoJSONPath)
	}

	if err := writeHTML(MapFigure(l, valueColumn, opts, p.opts.MapStyle, p.opts.MapZoom), art.HTMLPath); err != nil {
		return MapArtifact{}, err
	}
	return art, nil
}
