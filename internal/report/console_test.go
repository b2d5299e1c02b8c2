package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteSummaries(t *testing.T) {
	res := testResult(t)

	var buf bytes.Buffer
	require.NoError(t, WriteSummaries(&buf, testStudy(t), res.Groups[:1]))

	out := buf.String()
	assert.Contains(t, out, "Transportation, Nassau County")
	assert.Contains(t, out, "Transportation, Kings County")
	assert.Contains(t, out, "No Vehicle Available")
	assert.Contains(t, out, "812,345")
	assert.Contains(t, out, "1,050")
}

func TestWriteSample(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSample(&buf, shareTracts(t)))

	out := buf.String()
	assert.Contains(t, out, "geoid")
	assert.Contains(t, out, "36059000200")
	assert.Contains(t, out, "MULTIPOLYGON(1)")
	assert.Contains(t, out, "1,000")
}
