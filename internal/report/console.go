package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/twpayne/go-geom"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/tract-equity/internal/analysis"
	"github.com/sells-group/tract-equity/internal/table"
)

var printer = message.NewPrinter(language.English)

// WriteSummaries prints one table per county for each group, with counts
// grouped by thousands.
func WriteSummaries(w io.Writer, study *analysis.Study, groups []analysis.GroupResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	for _, g := range groups {
		columns := g.Group.MeasureLabels()
		for _, s := range g.Summaries {
			county, _ := study.County(s.County)
			if _, err := fmt.Fprintf(tw, "%s, %s County\t\n", g.Group.Title, countyName(county)); err != nil {
				return err
			}
			if _, err := fmt.Fprintln(tw, strings.Join(columns, "\t")+"\t"); err != nil {
				return err
			}
			values := make([]string, len(columns))
			for i, v := range s.Values(columns) {
				values[i] = printer.Sprintf("%d", v)
			}
			if _, err := fmt.Fprintln(tw, strings.Join(values, "\t")+"\t\n"); err != nil {
				return err
			}
		}
	}
	return tw.Flush()
}

// WriteSample prints the rows of t, one tract per line.
func WriteSample(w io.Writer, t *table.Table) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, strings.Join(t.Columns(), "\t")); err != nil {
		return err
	}
	for i := range t.Len() {
		row := t.Row(i)
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = formatCell(v)
		}
		if _, err := fmt.Fprintln(tw, strings.Join(cells, "\t")); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case int64:
		return printer.Sprintf("%d", x)
	case float64:
		return printer.Sprintf("%.1f", x)
	case *geom.MultiPolygon:
		if x == nil {
			return "-"
		}
		return fmt.Sprintf("MULTIPOLYGON(%d)", x.NumPolygons())
	default:
		return fmt.Sprint(x)
	}
}
