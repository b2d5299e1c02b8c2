package tiger

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// ReadTracts reads a tract shapefile and returns geometries keyed by 11-digit
// GEOID. When countyGEOID is non-empty only tracts of that county are kept.
func ReadTracts(shpPath, countyGEOID string) (map[string]*geom.MultiPolygon, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "tiger: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	fieldIdx := make(map[string]int)
	for i, f := range reader.Fields() {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}

	attr := func(name string) string {
		idx, ok := fieldIdx[name]
		if !ok {
			return ""
		}
		return strings.TrimSpace(strings.TrimRight(reader.Attribute(idx), "\x00"))
	}

	_, hasGEOID := fieldIdx["geoid"]
	_, hasParts := fieldIdx["tractce"]
	if !hasGEOID && !hasParts {
		return nil, eris.Errorf("tiger: %s has neither GEOID nor TRACTCE", shpPath)
	}

	out := make(map[string]*geom.MultiPolygon)
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()

		geoid := attr("geoid")
		if geoid == "" {
			geoid = attr("statefp") + attr("countyfp") + attr("tractce")
		}
		if countyGEOID != "" && !strings.HasPrefix(geoid, countyGEOID) {
			continue
		}

		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}
		mp := ToMultiPolygon(poly)
		if mp == nil || len(geoid) != 11 {
			skipped++
			continue
		}
		out[geoid] = mp
	}

	if skipped > 0 {
		zap.L().Debug("tiger: skipped shapefile records",
			zap.String("path", shpPath),
			zap.Int("skipped", skipped),
		)
	}

	return out, nil
}
