//go:build basic

// Package integration contains integration tests for cgmlens.
// These tests are excluded from normal test runs due to build tags.
// To run these tests: go test -tags basic ./integration
package integration

import (
	"encoding/json"
	"testing"

	"github.com/huangsam/cgmlens/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noStores keeps the binary away from the user's database files.
var noStores = []string{"CGMLENS_CACHE_BACKEND=none", "CGMLENS_HISTORY_BACKEND=none"}

// TestMetricsVerification checks the metrics of a triangular response against closed-form values.
func TestMetricsVerification(t *testing.T) {
	seriesPath, eventsPath, _ := writeFixtures(t)

	out, err := runCommand(t, noStores, "metrics", "--series", seriesPath, "--events", eventsPath, "--output", "json")
	require.NoError(t, err)

	var report schema.MetricsReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Events, 1)
	em := report.Events[0]
	assert.Equal(t, "lunch", em.EventID)

	expected := map[schema.MetricName]float64{
		schema.MetricBaseline:   100,
		schema.MetricDeltaPeak:  60,
		schema.MetricTimeToPeak: 30,
		schema.MetricIAUC:       0.5 * 90 * 60,
	}
	for name, want := range expected {
		t.Run(string(name), func(t *testing.T) {
			m, ok := em.Get(name)
			require.True(t, ok, "metric %s missing", name)
			assert.InDelta(t, want, m.Value, 1e-6)
		})
	}
}

// TestEvaluateSingleEvent checks that a verdict comes back for the question with a bounded confidence.
func TestEvaluateSingleEvent(t *testing.T) {
	seriesPath, eventsPath, questionPath := writeFixtures(t)

	out, err := runCommand(t, noStores, "evaluate", "-s", seriesPath, "-e", eventsPath, "-q", questionPath, "--output", "json")
	require.NoError(t, err)

	var report schema.EvaluationReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Outcomes, 1)
	v := report.Outcomes[0].Verdict
	require.NotNil(t, v)
	assert.Equal(t, "meal-peak", v.QuestionID)
	assert.Contains(t, schema.AllVerdictStatuses, v.Status)
	assert.GreaterOrEqual(t, v.Confidence, 0.0)
	assert.LessOrEqual(t, v.Confidence, 1.0)
}

// TestFormulasText checks the static formula display.
func TestFormulasText(t *testing.T) {
	out, err := runCommand(t, noStores, "formulas")
	require.NoError(t, err)
	assert.Contains(t, out, "delta_peak")
	assert.Contains(t, out, "Confidence")
}

// TestInvalidOutputFormat checks that validation failures exit non-zero.
func TestInvalidOutputFormat(t *testing.T) {
	seriesPath, _, _ := writeFixtures(t)
	_, err := runCommand(t, noStores, "quality", "--series", seriesPath, "--output", "yaml")
	assert.Error(t, err)
}
