package analysis

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/tract-equity/internal/table"
)

// Policy decides what happens when tract values are inconsistent.
type Policy string

const (
	// PolicyIgnore passes data through unchecked.
	PolicyIgnore Policy = "ignore"
	// PolicyWarn logs anomalies and records them in the run result.
	PolicyWarn Policy = "warn"
	// PolicyStrict aborts the run on the first batch of anomalies.
	PolicyStrict Policy = "strict"
)

// ParsePolicy parses a policy name; the empty string means PolicyWarn.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyWarn, nil
	case PolicyIgnore, PolicyWarn, PolicyStrict:
		return p, nil
	default:
		return "", eris.Errorf("analysis: unknown validation policy %q (want ignore, warn or strict)", s)
	}
}

// Anomaly reasons.
const (
	ReasonNegative     = "negative"
	ReasonExceedsTotal = "exceeds_total"
	ReasonOutOfRange   = "percentage_out_of_range"
)

// Anomaly is one suspicious cell.
type Anomaly struct {
	Stage  string `json:"stage"`
	GEOID  string `json:"geoid"`
	Column string `json:"column"`
	Reason string `json:"reason"`
	Value  int64  `json:"value"`
}

func (a Anomaly) String() string {
	return fmt.Sprintf("%s %s=%d (%s)", a.GEOID, a.Column, a.Value, a.Reason)
}

// CheckCounts reports negative counts and counts greater than the total.
// Null cells are not anomalies.
func CheckCounts(t *table.Table, stage, totalColumn string, columns []string) []Anomaly {
	var out []Anomaly
	for i := range t.Len() {
		r := t.Record(i)
		geoid, _ := r.Get(ColumnGEOID).(string)
		total, hasTotal := r.Int(totalColumn)
		for _, c := range columns {
			n, ok := r.Int(c)
			if !ok {
				continue
			}
			switch {
			case n < 0:
				out = append(out, Anomaly{Stage: stage, GEOID: geoid, Column: c, Reason: ReasonNegative, Value: n})
			case c != totalColumn && hasTotal && n > total:
				out = append(out, Anomaly{Stage: stage, GEOID: geoid, Column: c, Reason: ReasonExceedsTotal, Value: n})
			}
		}
	}
	return out
}

// CheckPercentages reports percentages outside [0, 100].
func CheckPercentages(t *table.Table, stage, column string) []Anomaly {
	var out []Anomaly
	for i := range t.Len() {
		r := t.Record(i)
		p, ok := r.Int(column)
		if !ok || (p >= 0 && p <= 100) {
			continue
		}
		geoid, _ := r.Get(ColumnGEOID).(string)
		out = append(out, Anomaly{Stage: stage, GEOID: geoid, Column: column, Reason: ReasonOutOfRange, Value: p})
	}
	return out
}

const maxLoggedAnomalies = 5

// Apply enforces the policy on anomalies found at stage. It returns the
// anomalies to record, or a KindValidation error under PolicyStrict.
func (p Policy) Apply(stage string, anomalies []Anomaly) ([]Anomaly, error) {
	if len(anomalies) == 0 || p == PolicyIgnore {
		return nil, nil
	}

	examples := make([]string, 0, maxLoggedAnomalies)
	for _, a := range anomalies[:min(len(anomalies), maxLoggedAnomalies)] {
		examples = append(examples, a.String())
	}

	if p == PolicyStrict {
		return nil, stageError(KindValidation, stage,
			eris.Errorf("%d anomalies, e.g. %s", len(anomalies), strings.Join(examples, "; ")))
	}

	zap.L().Warn("inconsistent tract values",
		zap.String("component", "analysis.validate"),
		zap.String("stage", stage),
		zap.Int("count", len(anomalies)),
		zap.Strings("examples", examples),
	)
	return anomalies, nil
}
