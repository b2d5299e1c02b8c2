package census

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const b08141Group = `{
  "variables": {
    "B08141_001E": {"label": "Estimate!!Total:", "concept": "Means of Transportation to Work by Vehicles Available"},
    "B08141_001M": {"label": "Margin of Error!!Total:", "concept": "Means of Transportation to Work by Vehicles Available"},
    "B08141_002E": {"label": "Estimate!!Total:!!No vehicle available", "concept": "Means of Transportation to Work by Vehicles Available"},
    "B08141_006E": {"label": "Estimate!!Total:!!Car, truck, or van - drove alone:", "concept": "Means of Transportation to Work by Vehicles Available"},
    "B08141_016E": {"label": "Estimate!!Total:!!Public transportation (excluding taxicab):", "concept": "Means of Transportation to Work by Vehicles Available"},
    "B08141_021E": {"label": "Estimate!!Total:!!Walked:", "concept": "Means of Transportation to Work by Vehicles Available"},
    "B08141_001EA": {"label": "Annotation of Estimate!!Total:", "concept": "Means of Transportation to Work by Vehicles Available"},
    "GEO_ID": {"label": "Geography", "concept": ""}
  }
}`

func TestColumnName(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"Estimate!!Total:", "total"},
		{"Estimate!!Total:!!No vehicle available", "no_vehicle_available"},
		{"Estimate!!Total:!!Car, truck, or van - drove alone:", "car_truck_or_van_drove_alone"},
		{"Estimate!!Total:!!Public transportation (excluding taxicab):", "public_transportation_excluding_taxicab"},
		{"Estimate!!Total:!!Walked:", "walked"},
		{"Estimate!!Total:!!Not Hispanic or Latino:!!White alone", "not_hispanic_or_latino_white_alone"},
		{"Estimate!!Total:!!Not Hispanic or Latino:!!Black or African American alone", "not_hispanic_or_latino_black_or_african_american_alone"},
		{"Estimate!!Total:!!Not Hispanic or Latino:!!Asian alone", "not_hispanic_or_latino_asian_alone"},
		{"Estimate!!Total:!!Año único", "ano_unico"},
		{"Estimate", ""},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, ColumnName(tt.label))
		})
	}
}

func TestParseGroup(t *testing.T) {
	g, err := ParseGroup("B08141", strings.NewReader(b08141Group))
	require.NoError(t, err)

	assert.Equal(t, "B08141", g.Table)
	assert.Equal(t, "Means of Transportation to Work by Vehicles Available", g.Concept)

	var codes, names []string
	for _, v := range g.Variables {
		codes = append(codes, v.Code)
		names = append(names, v.Name)
	}
	assert.Equal(t, []string{"B08141_001E", "B08141_002E", "B08141_006E", "B08141_016E", "B08141_021E"}, codes)
	assert.Equal(t, []string{
		"total",
		"no_vehicle_available",
		"car_truck_or_van_drove_alone",
		"public_transportation_excluding_taxicab",
		"walked",
	}, names)

	byCode := g.ByCode()
	assert.Equal(t, "walked", byCode["B08141_021E"].Name)
}

func TestParseGroup_DuplicateNameKeepsLowestCode(t *testing.T) {
	doc := `{"variables": {
		"T1_003E": {"label": "Estimate!!Total:!!Walked"},
		"T1_002E": {"label": "Estimate!!Total:!!Walked:"},
		"T1_001E": {"label": "Estimate!!Total:"}
	}}`
	g, err := ParseGroup("T1", strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, g.Variables, 2)
	assert.Equal(t, "T1_002E", g.Variables[1].Code)
}

func TestParseGroup_Errors(t *testing.T) {
	_, err := ParseGroup("B08141", strings.NewReader(""))
	assert.Error(t, err)

	_, err = ParseGroup("B08141", strings.NewReader(`{"variables": {}}`))
	assert.Error(t, err)

	_, err = ParseGroup("B08141", strings.NewReader(`{"variables": {"B08141_001M": {"label": "Margin of Error!!Total:"}}}`))
	assert.Error(t, err)
}
