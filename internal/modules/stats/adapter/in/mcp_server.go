package in

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	sessiondto "recall/internal/modules/session/dto"
	sessionin "recall/internal/modules/session/port/in"
	statsdto "recall/internal/modules/stats/dto"
	statsin "recall/internal/modules/stats/port/in"
)

// MCPServer exposes stats and session records as MCP tools over stdio so
// assistants can read progress and log sessions.
type MCPServer struct {
	stats    statsin.Usecase
	sessions sessionin.Usecase
	loc      *time.Location
	server   *server.MCPServer
}

func NewMCPServer(version string, stats statsin.Usecase, sessions sessionin.Usecase, loc *time.Location) *MCPServer {
	if loc == nil {
		loc = time.Local
	}
	s := &MCPServer{stats: stats, sessions: sessions, loc: loc}
	s.server = server.NewMCPServer("recall", version, server.WithToolCapabilities(false))

	s.server.AddTool(mcp.NewTool("stats_show",
		mcp.WithDescription("Aggregated quiz accuracy and timing for a period, with per-category series."),
		mcp.WithString("period", mcp.Description("today, week, month, all, custom or last7"), mcp.Enum("today", "week", "month", "all", "custom", "last7")),
		mcp.WithString("start", mcp.Description("custom range start, YYYY-MM-DD")),
		mcp.WithString("end", mcp.Description("custom range end, YYYY-MM-DD")),
	), s.ShowStats)

	s.server.AddTool(mcp.NewTool("session_record",
		mcp.WithDescription("Record one completed quiz session."),
		mcp.WithString("category", mcp.Required(), mcp.Description("quiz category, e.g. people or places")),
		mcp.WithNumber("total", mcp.Required(), mcp.Description("questions asked")),
		mcp.WithNumber("correct", mcp.Required(), mcp.Description("correct answers")),
		mcp.WithNumber("skipped", mcp.Description("skipped questions")),
		mcp.WithNumber("seconds", mcp.Description("total session time in seconds")),
	), s.RecordSession)

	s.server.AddTool(mcp.NewTool("session_list",
		mcp.WithDescription("List stored quiz sessions and the tier they were read from."),
	), s.ListSessions)
	return s
}

func (s *MCPServer) ServeStdio() error {
	return server.ServeStdio(s.server)
}

func (s *MCPServer) ShowStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input := statsdto.PeriodInput{Period: req.GetString("period", "last7")}
	var err error
	if input.Start, err = s.parseDay(req.GetString("start", "")); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if input.End, err = s.parseDay(req.GetString("end", "")); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := s.stats.Compute(ctx, input)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(out)
}

func (s *MCPServer) RecordSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, err := s.sessions.Record(ctx, sessiondto.RecordInput{
		Category:       req.GetString("category", ""),
		TotalQuestions: req.GetInt("total", 0),
		CorrectAnswers: req.GetInt("correct", 0),
		Skipped:        req.GetInt("skipped", 0),
		TotalTime:      req.GetFloat("seconds", 0),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(out)
}

func (s *MCPServer) ListSessions(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, err := s.sessions.Fetch(ctx, sessiondto.FetchInput{})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(out)
}

func (s *MCPServer) parseDay(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation("2006-01-02", value, s.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", value)
	}
	return t, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}
