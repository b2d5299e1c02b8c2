// Package census queries the Census Bureau data API for tract-level ACS tables
// and resolves variable codes to column names through the group metadata.
package census

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
)

const (
	countySummaryLevel = "0500000"
	tractSummaryLevel  = "1400000"
)

// Scope selects every tract within one county.
type Scope struct {
	StateFIPS  string `yaml:"state" mapstructure:"state" json:"state"`
	CountyFIPS string `yaml:"county" mapstructure:"county" json:"county"`
}

// ParseScope parses a 5-digit state+county FIPS code such as "36047".
func ParseScope(geoid string) (Scope, error) {
	s := Scope{}
	if len(geoid) == 5 {
		s = Scope{StateFIPS: geoid[:2], CountyFIPS: geoid[2:]}
	}
	if err := s.Validate(); err != nil {
		return Scope{}, eris.Wrapf(err, "census: parse scope %q", geoid)
	}
	return s, nil
}

// Validate checks that the state and county codes are all digits of the right width.
func (s Scope) Validate() error {
	if len(s.StateFIPS) != 2 || !digits(s.StateFIPS) {
		return eris.Errorf("census: invalid state FIPS %q", s.StateFIPS)
	}
	if len(s.CountyFIPS) != 3 || !digits(s.CountyFIPS) {
		return eris.Errorf("census: invalid county FIPS %q", s.CountyFIPS)
	}
	return nil
}

// GEOID returns the 5-digit county GEOID.
func (s Scope) GEOID() string { return s.StateFIPS + s.CountyFIPS }

// UCGID returns the ucgid predicate selecting the county's tracts.
func (s Scope) UCGID() string {
	return fmt.Sprintf("pseudo(%sUS%s$%s)", countySummaryLevel, s.GEOID(), tractSummaryLevel)
}

func (s Scope) String() string { return s.GEOID() }

// DataURL builds the group query for a table within scope. apiKey is optional.
func DataURL(base, tableID string, scope Scope, apiKey string) (string, error) {
	if err := validTableID(tableID); err != nil {
		return "", err
	}
	if err := scope.Validate(); err != nil {
		return "", err
	}
	q := url.Values{}
	q.Set("get", "group("+tableID+")")
	q.Set("ucgid", scope.UCGID())
	if apiKey != "" {
		q.Set("key", apiKey)
	}
	return strings.TrimRight(base, "/") + "?" + q.Encode(), nil
}

// GroupURL builds the metadata URL describing a table's variables.
func GroupURL(metadataBase, tableID string) (string, error) {
	if err := validTableID(tableID); err != nil {
		return "", err
	}
	return strings.TrimRight(metadataBase, "/") + "/groups/" + tableID + ".json", nil
}

// TractGEOID extracts the 11-digit tract GEOID from a GEO_ID such as
// "1400000US36047000100".
func TractGEOID(geoID string) (string, bool) {
	prefix := tractSummaryLevel + "US"
	if !strings.HasPrefix(geoID, prefix) {
		return "", false
	}
	id := strings.TrimPrefix(geoID, prefix)
	if len(id) != 11 || !digits(id) {
		return "", false
	}
	return id, true
}

func validTableID(tableID string) error {
	if tableID == "" {
		return eris.New("census: empty table id")
	}
	for _, r := range tableID {
		if !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') {
			return eris.Errorf("census: invalid table id %q", tableID)
		}
	}
	return nil
}

func digits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
