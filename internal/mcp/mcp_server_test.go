package mcp_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/huangsam/cgmlens/internal/contract"
	mcp_internal "github.com/huangsam/cgmlens/internal/mcp"
	"github.com/huangsam/cgmlens/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFixtures writes a three-hour series at 5-minute steps and one meal event an hour in.
func writeFixtures(t *testing.T) (seriesPath, eventsPath string) {
	t.Helper()
	dir := t.TempDir()
	start := time.Date(2024, 3, 4, 11, 0, 0, 0, time.UTC)

	var samples []string
	for i := 0; i <= 48; i++ {
		value := 95.0
		if i >= 12 && i < 24 {
			value = 95 + float64(i-12)*5
		} else if i >= 24 {
			value = 110
		}
		ts := start.Add(time.Duration(i*5) * time.Minute).Format(time.RFC3339)
		samples = append(samples, fmt.Sprintf(`{"timestamp":%q,"glucose_value":%.1f}`, ts, value))
	}
	series := fmt.Sprintf(`{"series_id":"mcp","unit":"mg/dL","sampling_interval_minutes":5,"samples":[%s]}`, strings.Join(samples, ","))
	events := fmt.Sprintf(`{"events":[{"event_id":"e1","event_type":"meal","start_time":%q,"annotation_quality":0.9}]}`,
		start.Add(time.Hour).Format(time.RFC3339))

	seriesPath = filepath.Join(dir, "series.json")
	eventsPath = filepath.Join(dir, "events.json")
	require.NoError(t, os.WriteFile(seriesPath, []byte(series), 0o644))
	require.NoError(t, os.WriteFile(eventsPath, []byte(events), 0o644))
	return seriesPath, eventsPath
}

func newTestServerConfig() *contract.Config {
	return &contract.Config{
		Engine:         schema.DefaultEngineConfig(schema.UnitMgDL),
		Workers:        2,
		CacheBackend:   schema.NoneBackend,
		HistoryBackend: schema.NoneBackend,
	}
}

func callTool(t *testing.T, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	s := mcp_internal.NewMCPServer(newTestServerConfig(), nil)
	tool := s.GetTool(name)
	require.NotNil(t, tool, "Tool %s should exist", name)

	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
	res, err := tool.Handler(context.Background(), req)
	require.NoError(t, err, "The MCP handler should not return a raw error for tool logic failures")
	require.NotNil(t, res)
	return res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestMCPServerHandlers_ValidationErrors(t *testing.T) {
	seriesPath, eventsPath := writeFixtures(t)

	tests := []struct {
		name     string
		tool     string
		args     map[string]any
		contains string
	}{
		{"analyze_signal missing series", "analyze_signal", map[string]any{}, "--series is required"},
		{"compute_metrics missing events", "compute_metrics", map[string]any{"series": seriesPath}, "--events is required"},
		{"compute_metrics invalid window", "compute_metrics", map[string]any{
			"series": seriesPath, "events": eventsPath, "baseline_window": "soon",
		}, "invalid baseline window"},
		{"event_signals reversed window", "event_signals", map[string]any{
			"series": seriesPath, "events": eventsPath, "response_window": "120,0",
		}, "invalid response window"},
		{"evaluate_question missing question", "evaluate_question", map[string]any{
			"series": seriesPath, "events": eventsPath,
		}, "--question is required"},
		{"evaluate_question negative min events", "evaluate_question", map[string]any{
			"series": seriesPath, "events": eventsPath, "question": "q.yaml", "min_events": -2.0,
		}, "min-events must be positive"},
		{"analyze_signal missing file", "analyze_signal", map[string]any{"series": "/nonexistent/series.json"}, "signal analysis failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := callTool(t, tt.tool, tt.args)
			assert.True(t, res.IsError, "The response should indicate an error state")
			assert.Contains(t, resultText(t, res), tt.contains)
		})
	}
}

func TestMCPServerHandlers_Success(t *testing.T) {
	seriesPath, eventsPath := writeFixtures(t)

	t.Run("analyze_signal", func(t *testing.T) {
		res := callTool(t, "analyze_signal", map[string]any{"series": seriesPath})
		require.False(t, res.IsError, resultText(t, res))

		var quality schema.SignalQuality
		require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &quality))
		assert.Equal(t, "mcp", quality.SeriesID)
		assert.Equal(t, 49, quality.TotalSamples)
	})

	t.Run("compute_metrics", func(t *testing.T) {
		res := callTool(t, "compute_metrics", map[string]any{
			"series": seriesPath, "events": eventsPath, "response_window": "0,90",
		})
		require.False(t, res.IsError, resultText(t, res))

		var report schema.MetricsReport
		require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &report))
		assert.Equal(t, "mcp", report.SeriesID)
		assert.Len(t, report.Events, 1)
	})

	t.Run("event_signals", func(t *testing.T) {
		res := callTool(t, "event_signals", map[string]any{"series": seriesPath, "events": eventsPath})
		require.False(t, res.IsError, resultText(t, res))

		var report schema.SignalsReport
		require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &report))
		assert.Len(t, report.Signals, 1)
	})

	t.Run("describe_formulas", func(t *testing.T) {
		res := callTool(t, "describe_formulas", map[string]any{})
		require.False(t, res.IsError)

		var model schema.FormulasRenderModel
		require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &model))
		assert.NotEmpty(t, model.Metrics)
		assert.Len(t, model.Confidence, 4)
	})
}
