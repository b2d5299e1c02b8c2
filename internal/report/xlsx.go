package report

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/tract-equity/internal/analysis"
)

const anomalySheet = "anomalies"

// WriteWorkbook writes one sheet per group with a row per county summary, and
// an anomalies sheet when the run recorded any.
func WriteWorkbook(path string, res *analysis.Result) error {
	f := xlsx.NewFile()

	for _, g := range res.Groups {
		sheet, err := f.AddSheet(sheetName(g.Group.Name))
		if err != nil {
			return eris.Wrapf(err, "report: add sheet %s", g.Group.Name)
		}

		columns := g.Group.MeasureLabels()
		header := sheet.AddRow()
		header.AddCell().SetString("county")
		for _, c := range columns {
			header.AddCell().SetString(c)
		}

		for _, s := range g.Summaries {
			row := sheet.AddRow()
			row.AddCell().SetString(s.County)
			for _, v := range s.Values(columns) {
				row.AddCell().SetInt64(v)
			}
		}
	}

	if len(res.Anomalies) > 0 {
		sheet, err := f.AddSheet(anomalySheet)
		if err != nil {
			return eris.Wrap(err, "report: add anomalies sheet")
		}
		header := sheet.AddRow()
		for _, h := range []string{"stage", "geoid", "column", "reason", "value"} {
			header.AddCell().SetString(h)
		}
		for _, a := range res.Anomalies {
			row := sheet.AddRow()
			row.AddCell().SetString(a.Stage)
			row.AddCell().SetString(a.GEOID)
			row.AddCell().SetString(a.Column)
			row.AddCell().SetString(a.Reason)
			row.AddCell().SetInt64(a.Value)
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save %s", path)
	}
	return nil
}

// sheetName trims a name to the 31 characters a sheet name allows.
func sheetName(name string) string {
	if len(name) > 31 {
		return name[:31]
	}
	return name
}
