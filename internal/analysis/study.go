package analysis

import (
	_ "embed"
	"os"
	"slices"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/tract-equity/internal/census"
	"github.com/sells-group/tract-equity/internal/table"
)

//go:embed study.yaml
var defaultStudy []byte

// Columns every projected group carries besides its measures.
const (
	ColumnGEOID    = census.ColumnGEOID
	ColumnGeometry = census.ColumnGeometry
	ColumnTotal    = "total"
)

// County is one geographic scope of the study.
type County struct {
	Label string `yaml:"label"`
	Name  string `yaml:"name"`
	GEOID string `yaml:"geoid"`
}

// Scope returns the Census scope selecting the county's tracts.
func (c County) Scope() (census.Scope, error) {
	return census.ParseScope(c.GEOID)
}

// Group is one ACS table and the measures projected from it.
type Group struct {
	Name     string         `yaml:"name"`
	Table    string         `yaml:"table"`
	Title    string         `yaml:"title"`
	Chart    bool           `yaml:"chart"`
	Measures []table.Rename `yaml:"measures"`
}

// MeasureLabels returns the display names of the group's measures.
func (g Group) MeasureLabels() []string {
	out := make([]string, len(g.Measures))
	for i, m := range g.Measures {
		out[i] = m.To
	}
	return out
}

// Projection returns the full projection: key, county label, measures, geometry.
func (g Group) Projection(labelColumn string) []table.Rename {
	out := make([]table.Rename, 0, len(g.Measures)+3)
	out = append(out,
		table.Rename{From: ColumnGEOID, To: ColumnGEOID},
		table.Rename{From: labelColumn, To: labelColumn},
	)
	out = append(out, g.Measures...)
	return append(out, table.Rename{From: ColumnGeometry, To: ColumnGeometry})
}

// MapSpec describes one choropleth layer.
type MapSpec struct {
	Name  string `yaml:"name"`
	Group string `yaml:"group"`
	Count string `yaml:"count"`
	// Share maps count/total as a percentage instead of the raw count.
	Share      bool   `yaml:"share"`
	Title      string `yaml:"title"`
	Colorscale string `yaml:"colorscale"`
}

// Study is the full analysis definition.
type Study struct {
	LabelColumn string    `yaml:"label_column"`
	Counties    []County  `yaml:"counties"`
	Groups      []Group   `yaml:"groups"`
	Maps        []MapSpec `yaml:"maps"`
}

// DefaultStudy returns the built-in Nassau/Kings transportation study.
func DefaultStudy() (*Study, error) {
	return ParseStudy(defaultStudy)
}

// LoadStudy reads a study definition from path.
func LoadStudy(path string) (*Study, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "analysis: read study %s", path)
	}
	return ParseStudy(data)
}

// ParseStudy decodes and validates a YAML study definition.
func ParseStudy(data []byte) (*Study, error) {
	var s Study
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, eris.Wrap(err, "analysis: parse study")
	}
	if s.LabelColumn == "" {
		s.LabelColumn = "county"
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// CountyLabels returns the county labels in study order.
func (s *Study) CountyLabels() []string {
	out := make([]string, len(s.Counties))
	for i, c := range s.Counties {
		out[i] = c.Label
	}
	return out
}

// County returns the county with the given label.
func (s *Study) County(label string) (County, bool) {
	i := slices.IndexFunc(s.Counties, func(c County) bool { return c.Label == label })
	if i < 0 {
		return County{}, false
	}
	return s.Counties[i], true
}

// Group returns the named group.
func (s *Study) Group(name string) (Group, bool) {
	i := slices.IndexFunc(s.Groups, func(g Group) bool { return g.Name == name })
	if i < 0 {
		return Group{}, false
	}
	return s.Groups[i], true
}

// Validate checks references between counties, groups and maps.
func (s *Study) Validate() error {
	if len(s.Counties) == 0 {
		return eris.New("analysis: study has no counties")
	}
	seen := make(map[string]bool, len(s.Counties))
	for _, c := range s.Counties {
		if c.Label == "" {
			return eris.Errorf("analysis: county %s has no label", c.GEOID)
		}
		if seen[c.Label] {
			return eris.Errorf("analysis: duplicate county label %q", c.Label)
		}
		seen[c.Label] = true
		if _, err := c.Scope(); err != nil {
			return eris.Wrapf(err, "analysis: county %s", c.Label)
		}
	}

	if len(s.Groups) == 0 {
		return eris.New("analysis: study has no groups")
	}
	for _, g := range s.Groups {
		if g.Name == "" || g.Table == "" {
			return eris.Errorf("analysis: group %q needs a name and a table", g.Name)
		}
		labels := g.MeasureLabels()
		if !slices.Contains(labels, ColumnTotal) {
			return eris.Errorf("analysis: group %s has no %q measure", g.Name, ColumnTotal)
		}
		for _, reserved := range []string{ColumnGEOID, ColumnGeometry, s.LabelColumn} {
			if slices.Contains(labels, reserved) {
				return eris.Errorf("analysis: group %s uses reserved column %q", g.Name, reserved)
			}
		}
	}

	for _, m := range s.Maps {
		g, ok := s.Group(m.Group)
		if !ok {
			return eris.Errorf("analysis: map %s references unknown group %q", m.Name, m.Group)
		}
		if !slices.Contains(g.MeasureLabels(), m.Count) {
			return eris.Errorf("analysis: map %s: group %s has no measure %q", m.Name, g.Name, m.Count)
		}
	}
	return nil
}
