// Package tiger downloads Census TIGER/Line tract shapefiles and turns them
// into tract geometries keyed by GEOID.
package tiger

import (
	"fmt"
	"strings"
)

// DefaultBaseURL is the TIGER/Line root on the Census file server.
const DefaultBaseURL = "https://www2.census.gov/geo/tiger"

// DefaultYear is the TIGER/Line vintage matching the 2022 ACS tract set.
const DefaultYear = 2022

// TractURL returns the URL of a state's tract archive, e.g.
// .../TIGER2022/TRACT/tl_2022_36_tract.zip.
func TractURL(base string, year int, stateFIPS string) string {
	return fmt.Sprintf("%s/TIGER%d/TRACT/tl_%d_%s_tract.zip",
		strings.TrimRight(base, "/"), year, year, stateFIPS)
}
