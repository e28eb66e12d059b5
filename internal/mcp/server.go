package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/rebuttal/internal/check"
	"github.com/joescharf/rebuttal/internal/judge"
	"github.com/joescharf/rebuttal/internal/reconcile"
)

// JudgeFactory builds a judge that runs the given number of trials per comment.
type JudgeFactory func(ctx context.Context, trials int) (*judge.Judge, error)

// Server exposes reconciliation and judging as MCP tools.
type Server struct {
	newJudge JudgeFactory
	match    reconcile.MatchMode
	version  string
}

// NewServer creates the MCP server wrapper. newJudge may be nil, in which case
// the judge tool reports that no model is configured.
func NewServer(newJudge JudgeFactory, match reconcile.MatchMode, version string) *Server {
	return &Server{newJudge: newJudge, match: match, version: version}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("rebuttal", s.version, server.WithToolCapabilities(true))

	srv.AddTool(s.reconcileTool())
	srv.AddTool(s.judgeTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// rebuttal_reconcile
func (s *Server) reconcileTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("rebuttal_reconcile",
		mcp.WithDescription("Check that every review file has a response file with the same name. Returns JSON with matched, missing, and extra keys."),
		mcp.WithString("reviews", mcp.Required(), mcp.Description("Directory of review files")),
		mcp.WithString("responses", mcp.Required(), mcp.Description("Directory of response files")),
		mcp.WithString("match", mcp.Description("Key matching: exact (full file name) or stem (ignore extension)")),
	)
	return tool, s.handleReconcile
}

func (s *Server) handleReconcile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	opts, errResult := s.options(request)
	if errResult != nil {
		return errResult, nil
	}

	rep, err := check.Reconcile(opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to reconcile: %v", err)), nil
	}

	result := map[string]any{
		"ok":      rep.OK(),
		"matched": rep.Reconcile.Matched,
		"missing": rep.Reconcile.Missing,
		"extra":   rep.Reconcile.Extra,
	}
	return jsonResult(result)
}

// rebuttal_judge
func (s *Server) judgeTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("rebuttal_judge",
		mcp.WithDescription("Reconcile reviews with responses, then ask a language model whether each response fully addresses each review comment. Returns the full JSON report."),
		mcp.WithString("reviews", mcp.Required(), mcp.Description("Directory of review files")),
		mcp.WithString("responses", mcp.Required(), mcp.Description("Directory of response files")),
		mcp.WithString("paper", mcp.Description("Optional path to the paper (PDF or text)")),
		mcp.WithString("match", mcp.Description("Key matching: exact (full file name) or stem (ignore extension)")),
		mcp.WithNumber("n", mcp.Description("Trials per comment (default 1)")),
	)
	return tool, s.handleJudge
}

func (s *Server) handleJudge(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.newJudge == nil {
		return mcp.NewToolResultError("no language model configured"), nil
	}
	opts, errResult := s.options(request)
	if errResult != nil {
		return errResult, nil
	}
	opts.Paper = request.GetString("paper", "")

	trials := request.GetInt("n", 1)
	if trials < 1 {
		return mcp.NewToolResultError("n must be at least 1"), nil
	}

	j, err := s.newJudge(ctx, trials)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create judge: %v", err)), nil
	}

	rep, err := check.Run(ctx, opts, j)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to judge: %v", err)), nil
	}
	return jsonResult(rep)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *Server) options(request mcp.CallToolRequest) (check.Options, *mcp.CallToolResult) {
	reviews, err := request.RequireString("reviews")
	if err != nil {
		return check.Options{}, mcp.NewToolResultError("missing required parameter: reviews")
	}
	responses, err := request.RequireString("responses")
	if err != nil {
		return check.Options{}, mcp.NewToolResultError("missing required parameter: responses")
	}

	match := s.match
	if m := request.GetString("match", ""); m != "" {
		match, err = reconcile.ParseMatchMode(m)
		if err != nil {
			return check.Options{}, mcp.NewToolResultError(err.Error())
		}
	}
	return check.Options{Reviews: reviews, Responses: responses, Match: match}, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
