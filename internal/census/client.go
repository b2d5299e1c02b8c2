package census

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/tract-equity/internal/fetcher"
	"github.com/sells-group/tract-equity/internal/table"
)

// Column names every fetched table carries besides the resolved variables.
const (
	ColumnGEOID     = "geoid"
	ColumnTractName = "name"
	ColumnGeometry  = "geometry"
)

// Annotation values the API substitutes for suppressed or unavailable estimates.
var jamValues = map[int64]bool{
	-999999999: true,
	-888888888: true,
	-666666666: true,
	-555555555: true,
	-333333333: true,
	-222222222: true,
}

// Boundaries supplies tract geometries keyed by 11-digit tract GEOID.
type Boundaries interface {
	Tracts(ctx context.Context, scope Scope) (map[string]*geom.MultiPolygon, error)
}

// Options configures the Census client.
type Options struct {
	// BaseURL is the dataset endpoint, e.g. https://api.census.gov/data/2022/acs/acs5.
	BaseURL string
	APIKey  string
}

// Client fetches tract tables and resolves their variables to named columns.
type Client struct {
	f          fetcher.Fetcher
	boundaries Boundaries
	opts       Options
	groups     map[string]*Group
}

// NewClient creates a Client. boundaries may be nil, in which case the
// geometry column is left empty.
func NewClient(f fetcher.Fetcher, boundaries Boundaries, opts Options) *Client {
	return &Client{
		f:          f,
		boundaries: boundaries,
		opts:       opts,
		groups:     make(map[string]*Group),
	}
}

// Group fetches (once per metadata endpoint and table) the variable metadata.
func (c *Client) Group(ctx context.Context, metadataURL, tableID string) (*Group, error) {
	u, err := GroupURL(metadataURL, tableID)
	if err != nil {
		return nil, err
	}
	if g, ok := c.groups[u]; ok {
		return g, nil
	}

	body, err := c.f.Download(ctx, u)
	if err != nil {
		return nil, eris.Wrapf(err, "census: fetch metadata for %s", tableID)
	}
	defer body.Close() //nolint:errcheck

	g, err := ParseGroup(tableID, body)
	if err != nil {
		return nil, err
	}
	c.groups[u] = g
	return g, nil
}

// Fetch returns every tract of scope for tableID, with estimate columns named
// through the metadata at metadataURL and tract geometry attached.
func (c *Client) Fetch(ctx context.Context, tableID string, scope Scope, metadataURL string) (*table.Table, error) {
	log := zap.L().With(
		zap.String("component", "census.client"),
		zap.String("table", tableID),
		zap.String("scope", scope.GEOID()),
	)

	group, err := c.Group(ctx, metadataURL, tableID)
	if err != nil {
		return nil, err
	}

	dataURL, err := DataURL(c.opts.BaseURL, tableID, scope, c.opts.APIKey)
	if err != nil {
		return nil, err
	}

	body, err := c.f.Download(ctx, dataURL)
	if err != nil {
		return nil, eris.Wrapf(err, "census: fetch %s for %s", tableID, scope)
	}
	defer body.Close() //nolint:errcheck

	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, eris.Wrapf(err, "census: read %s for %s", tableID, scope)
	}

	var rows [][]any
	if len(bytes.TrimSpace(raw)) > 0 {
		decoded, err := fetcher.DecodeJSONObject[[][]any](bytes.NewReader(raw))
		if err != nil {
			return nil, eris.Wrapf(err, "census: decode %s for %s", tableID, scope)
		}
		rows = *decoded
	}

	var geoms map[string]*geom.MultiPolygon
	if c.boundaries != nil && len(rows) > 1 {
		geoms, err = c.boundaries.Tracts(ctx, scope)
		if err != nil {
			return nil, eris.Wrapf(err, "census: tract boundaries for %s", scope)
		}
	}

	t, missing, err := buildTable(group, rows, geoms)
	if err != nil {
		return nil, eris.Wrapf(err, "census: %s for %s", tableID, scope)
	}
	if c.boundaries != nil && missing > 0 {
		log.Warn("tracts without boundary", zap.Int("count", missing))
	}

	log.Info("fetched tracts", zap.Int("rows", t.Len()), zap.Int("variables", len(group.Variables)))
	return t, nil
}

// buildTable converts the API's header-first row array into a table. It
// returns the number of rows that found no geometry.
func buildTable(group *Group, rows [][]any, geoms map[string]*geom.MultiPolygon) (*table.Table, int, error) {
	var vars []Variable
	columns := []string{ColumnGEOID, ColumnTractName}

	if len(rows) == 0 {
		for _, v := range group.Variables {
			columns = append(columns, v.Name)
		}
		columns = append(columns, ColumnGeometry)
		t, err := table.New(columns, nil)
		return t, 0, err
	}

	header := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		s, _ := h.(string)
		header[s] = i
	}

	geoIdx, ok := header["GEO_ID"]
	if !ok {
		return nil, 0, eris.New("response has no GEO_ID column")
	}
	nameIdx, hasName := header["NAME"]

	varIdx := make([]int, 0, len(group.Variables))
	for _, v := range group.Variables {
		idx, ok := header[v.Code]
		if !ok {
			continue
		}
		vars = append(vars, v)
		varIdx = append(varIdx, idx)
		columns = append(columns, v.Name)
	}
	if len(vars) == 0 {
		return nil, 0, eris.Errorf("response carries none of the %d %s variables", len(group.Variables), group.Table)
	}
	columns = append(columns, ColumnGeometry)

	missing := 0
	out := make([]table.Row, 0, len(rows)-1)
	for n, r := range rows[1:] {
		if len(r) != len(rows[0]) {
			return nil, 0, eris.Errorf("row %d has %d cells, header has %d", n+1, len(r), len(rows[0]))
		}

		rawID, _ := r[geoIdx].(string)
		geoid, ok := TractGEOID(rawID)
		if !ok {
			return nil, 0, eris.Errorf("row %d: unexpected GEO_ID %q", n+1, rawID)
		}

		row := make(table.Row, 0, len(columns))
		row = append(row, geoid)
		if hasName {
			row = append(row, r[nameIdx])
		} else {
			row = append(row, nil)
		}

		for k, idx := range varIdx {
			v, err := parseCount(r[idx])
			if err != nil {
				return nil, 0, eris.Wrapf(err, "row %d: %s", n+1, vars[k].Code)
			}
			row = append(row, v)
		}

		if g, ok := geoms[geoid]; ok && g != nil {
			row = append(row, g)
		} else {
			missing++
			row = append(row, nil)
		}
		out = append(out, row)
	}

	t, err := table.New(columns, out)
	return t, missing, err
}

// parseCount converts an API cell to an int64 count; empty cells and jam
// values become nil.
func parseCount(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case float64:
		n, ok := table.AsInt(x)
		if !ok {
			return x, nil
		}
		if jamValues[n] {
			return nil, nil
		}
		return n, nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" || strings.EqualFold(s, "null") {
			return nil, nil
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			if jamValues[n] {
				return nil, nil
			}
			return n, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, eris.Errorf("unparseable value %q", s)
		}
		return parseCount(f)
	default:
		return nil, eris.Errorf("unexpected value type %T", v)
	}
}
