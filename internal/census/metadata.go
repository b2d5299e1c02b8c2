package census

import (
	"io"
	"sort"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/tract-equity/internal/fetcher"
)

// Variable is one estimate cell of a table group.
type Variable struct {
	Code  string `json:"code"`
	Label string `json:"label"`
	Name  string `json:"name"`
}

// Group describes the estimate variables of a table, ordered by code.
type Group struct {
	Table     string
	Concept   string
	Variables []Variable
}

// ByCode indexes the group's variables by code.
func (g *Group) ByCode() map[string]Variable {
	m := make(map[string]Variable, len(g.Variables))
	for _, v := range g.Variables {
		m[v.Code] = v
	}
	return m
}

type groupResponse struct {
	Variables map[string]struct {
		Label   string `json:"label"`
		Concept string `json:"concept"`
	} `json:"variables"`
}

// ParseGroup decodes a groups/<TABLE>.json document. Only estimate variables
// (<TABLE>_<NNN>E) are kept; margins and annotations are dropped. When two
// labels map to the same name the lowest code wins.
func ParseGroup(tableID string, r io.Reader) (*Group, error) {
	resp, err := fetcher.DecodeJSONObject[groupResponse](r)
	if err != nil {
		return nil, eris.Wrapf(err, "census: decode group %s", tableID)
	}
	if len(resp.Variables) == 0 {
		return nil, eris.Errorf("census: group %s has no variables", tableID)
	}

	codes := make([]string, 0, len(resp.Variables))
	for code := range resp.Variables {
		if isEstimate(tableID, code) {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)

	g := &Group{Table: tableID}
	seen := make(map[string]string, len(codes))
	for _, code := range codes {
		v := resp.Variables[code]
		if g.Concept == "" {
			g.Concept = v.Concept
		}
		name := ColumnName(v.Label)
		if name == "" {
			continue
		}
		if prev, dup := seen[name]; dup {
			zap.L().Debug("census: duplicate variable name",
				zap.String("name", name),
				zap.String("kept", prev),
				zap.String("dropped", code),
			)
			continue
		}
		seen[name] = code
		g.Variables = append(g.Variables, Variable{Code: code, Label: v.Label, Name: name})
	}

	if len(g.Variables) == 0 {
		return nil, eris.Errorf("census: group %s has no estimate variables", tableID)
	}
	return g, nil
}

// ColumnName derives a snake_case column name from a variable label such as
// "Estimate!!Total:!!Public transportation (excluding taxicab):". The leading
// "Estimate" segment and the "Total" root are dropped unless the root is the
// only segment left.
func ColumnName(label string) string {
	var segments []string
	for _, s := range strings.Split(label, "!!") {
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), ":"))
		if s != "" {
			segments = append(segments, s)
		}
	}
	if len(segments) > 0 && strings.EqualFold(segments[0], "Estimate") {
		segments = segments[1:]
	}
	if len(segments) > 1 && strings.EqualFold(segments[0], "Total") {
		segments = segments[1:]
	}
	return slug(strings.Join(segments, " "))
}

func slug(s string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(fold, s); err == nil {
		s = folded
	}

	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}

func isEstimate(tableID, code string) bool {
	rest, ok := strings.CutPrefix(code, tableID+"_")
	if !ok {
		return false
	}
	num, ok := strings.CutSuffix(rest, "E")
	return ok && len(num) == 3 && digits(num)
}
