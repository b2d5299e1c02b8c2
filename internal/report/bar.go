package report

import (
	"os"

	grob "github.com/MetalBlueberry/go-plotly/graph_objects"
	"github.com/MetalBlueberry/go-plotly/offline"
	"github.com/rotisserie/eris"

	"github.com/sells-group/tract-equity/internal/analysis"
)

// Axis titles of the county bar charts.
const (
	BarXTitle = "Mode of Transportation"
	BarYTitle = "Total People"
)

// BarCategories returns the summary columns charted as bars: every column
// except the total.
func BarCategories(s analysis.CountySummary) []string {
	out := make([]string, 0, len(s.Columns))
	for _, c := range s.Columns {
		if c != analysis.ColumnTotal {
			out = append(out, c)
		}
	}
	return out
}

// BarFigure builds the bar chart of one county summary.
func BarFigure(s analysis.CountySummary, title string) *grob.Fig {
	categories := BarCategories(s)

	fig := &grob.Fig{
		Layout: &grob.Layout{
			Title:      &grob.LayoutTitle{Text: title},
			Showlegend: grob.False,
			Xaxis: &grob.LayoutXaxis{
				Title: &grob.LayoutXaxisTitle{Text: BarXTitle},
			},
			Yaxis: &grob.LayoutYaxis{
				Title:      &grob.LayoutYaxisTitle{Text: BarYTitle},
				Tickformat: ",",
			},
		},
	}
	fig.AddTraces(&grob.Bar{
		Type: grob.TraceTypeBar,
		Name: s.County,
		X:    categories,
		Y:    s.Values(categories),
	})
	return fig
}

// RenderBar writes bar_<county>.html and returns its path.
func (p *Presenter) RenderBar(s analysis.CountySummary, title string) (string, error) {
	path := p.path("bar_" + fileSlug(s.County) + ".html")
	if err := writeHTML(BarFigure(s, title), path); err != nil {
		return "", err
	}
	return path, nil
}

// writeHTML renders fig with offline.ToHtml, which reports no errors, so the
// file is checked afterwards.
func writeHTML(fig *grob.Fig, path string) error {
	_ = os.Remove(path)
	offline.ToHtml(fig, path)
	info, err := os.Stat(path)
	if err != nil {
		return eris.Wrapf(err, "report: render %s", path)
	}
	if info.Size() == 0 {
		return eris.Errorf("report: render %s: empty file", path)
	}
	return nil
}

func fileSlug(s string) string {
	b := make([]byte, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b = append(b, byte(r))
		case r >= 'A' && r <= 'Z':
			b = append(b, byte(r-'A'+'a'))
		default:
			if len(b) > 0 && b[len(b)-1] != '_' {
				b = append(b, '_')
			}
		}
	}
	if len(b) > 0 && b[len(b)-1] == '_' {
		b = b[:len(b)-1]
	}
	if len(b) == 0 {
		return "unnamed"
	}
	return string(b)
}
