// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/cgmlens/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the cgmlens MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.CacheManager) *server.MCPServer {
	s := server.NewMCPServer(
		"CGM Lens Answerability Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
	}

	s.AddTool(mcp.NewTool("analyze_signal",
		mcp.WithDescription("Assess the signal quality of a CGM series: coverage, gaps, artifacts and flags."),
		mcp.WithString("series", mcp.Description("Path to the glucose series JSON file."), mcp.Required()),
	), h.handleAnalyzeSignal)

	s.AddTool(mcp.NewTool("compute_metrics",
		mcp.WithDescription("Compute per-event glycemic response metrics (baseline, peak, iAUC, recovery)."),
		mcp.WithString("series", mcp.Description("Path to the glucose series JSON file."), mcp.Required()),
		mcp.WithString("events", mcp.Description("Path to the events JSON file."), mcp.Required()),
		mcp.WithString("baseline_window", mcp.Description("Baseline window as minute offsets, e.g. '-30,0'.")),
		mcp.WithString("response_window", mcp.Description("Response window as minute offsets, e.g. '0,180'.")),
	), h.handleComputeMetrics)

	s.AddTool(mcp.NewTool("event_signals",
		mcp.WithDescription("Classify each event response as red, yellow, green or gray against the prior events."),
		mcp.WithString("series", mcp.Description("Path to the glucose series JSON file."), mcp.Required()),
		mcp.WithString("events", mcp.Description("Path to the events JSON file."), mcp.Required()),
		mcp.WithString("response_window", mcp.Description("Response window as minute offsets, e.g. '0,180'.")),
	), h.handleEventSignals)

	s.AddTool(mcp.NewTool("evaluate_question",
		mcp.WithDescription("Decide whether questions about the data are answerable, with confidence and limitations."),
		mcp.WithString("series", mcp.Description("Path to the glucose series JSON file."), mcp.Required()),
		mcp.WithString("events", mcp.Description("Path to the events JSON file."), mcp.Required()),
		mcp.WithString("question", mcp.Description("Path to the question YAML or JSON file."), mcp.Required()),
		mcp.WithNumber("min_events", mcp.Description("Minimum qualifying events per comparison group.")),
	), h.handleEvaluateQuestion)

	s.AddTool(mcp.NewTool("describe_formulas",
		mcp.WithDescription("Describe the metric formulas, confidence weights and status rules in effect."),
	), h.handleDescribeFormulas)

	return s
}

// StartMCPServer starts the cgmlens MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.CacheManager) error {
	s := NewMCPServer(baseCfg, mgr)
	return server.ServeStdio(s)
}
