package mcpserver

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/para-dev/para/internal/common/logger"
	"github.com/para-dev/para/internal/session"
	"github.com/para-dev/para/internal/state"
	"github.com/para-dev/para/internal/status"
)

func registerTools(s *server.MCPServer, sess *session.Manager, store *state.Store, log *logger.Logger) {
	s.AddTool(
		mcp.NewTool("start_session",
			mcp.WithDescription("Start a new Para session in its own git worktree and launch its IDE/agent."),
			mcp.WithString("name", mcp.Description("Session name (generated if omitted)")),
			mcp.WithString("mode", mcp.Description("host, sandboxed-host, or container (default host)")),
		),
		startSessionHandler(sess, log),
	)

	s.AddTool(
		mcp.NewTool("finish_session",
			mcp.WithDescription("Finalize a session's branch and archive it."),
			mcp.WithString("name", mcp.Required(), mcp.Description("Session name")),
			mcp.WithString("message", mcp.Description("Commit message for uncommitted changes")),
			mcp.WithString("target_branch", mcp.Description("Branch to finalize onto")),
		),
		finishSessionHandler(sess, log),
	)

	s.AddTool(
		mcp.NewTool("cancel_session",
			mcp.WithDescription("Discard a session's worktree and branch."),
			mcp.WithString("name", mcp.Required(), mcp.Description("Session name")),
		),
		cancelSessionHandler(sess, log),
	)

	s.AddTool(
		mcp.NewTool("list_sessions",
			mcp.WithDescription("List Para sessions and their lifecycle state."),
			mcp.WithString("include_archived", mcp.Description("set to \"true\" to include finished/cancelled sessions")),
		),
		listSessionsHandler(sess, log),
	)

	s.AddTool(
		mcp.NewTool("session_status",
			mcp.WithDescription("Read a session's self-reported Status document."),
			mcp.WithString("name", mcp.Required(), mcp.Description("Session name")),
		),
		sessionStatusHandler(sess, store, log),
	)

	log.Info("registered MCP tools", zap.Int("count", 5))
}

func startSessionHandler(sess *session.Manager, log *logger.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name := req.GetString("name", "")
		mode := state.ExecutionMode(req.GetString("mode", string(state.ModeHost)))

		rec, err := sess.Start(ctx, name, session.StartOptions{Mode: mode})
		if err != nil {
			log.WithError(err).Warn("mcp start_session failed")
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("started %q on branch %s at %s", rec.Name, rec.Branch, rec.WorktreePath)), nil
	}
}

func finishSessionHandler(sess *session.Manager, log *logger.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		message := req.GetString("message", "")
		targetBranch := req.GetString("target_branch", "")

		rec, err := sess.Finish(ctx, name, message, targetBranch)
		if err != nil {
			log.WithError(err).Warn("mcp finish_session failed")
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("finished %q on branch %s", rec.Name, rec.Branch)), nil
	}
}

func cancelSessionHandler(sess *session.Manager, log *logger.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		rec, err := sess.Cancel(ctx, name, true)
		if err != nil {
			log.WithError(err).Warn("mcp cancel_session failed")
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("cancelled %q", rec.Name)), nil
	}
}

func listSessionsHandler(sess *session.Manager, log *logger.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		filter := state.FilterActiveOnly
		if req.GetString("include_archived", "") == "true" {
			filter = state.FilterIncludeArchived
		}

		records, err := sess.List(filter)
		if err != nil {
			log.WithError(err).Warn("mcp list_sessions failed")
			return mcp.NewToolResultError(err.Error()), nil
		}

		if len(records) == 0 {
			return mcp.NewToolResultText("no sessions"), nil
		}
		out := ""
		for _, rec := range records {
			out += fmt.Sprintf("%s\t%s\t%s\t%s\n", rec.Name, rec.State, rec.ExecutionMode, rec.Branch)
		}
		return mcp.NewToolResultText(out), nil
	}
}

func sessionStatusHandler(sess *session.Manager, store *state.Store, log *logger.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		records, err := sess.List(state.FilterActiveOnly)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		var rec *state.Record
		for _, r := range records {
			if r.Name == name {
				rec = r
				break
			}
		}
		if rec == nil {
			return mcp.NewToolResultError(fmt.Sprintf("no active session named %q", name)), nil
		}

		doc, err := status.Read(filepath.Join(rec.WorktreePath, ".para-state"))
		if err != nil {
			log.WithError(err).Debug("no status document yet")
			return mcp.NewToolResultText("no status reported yet"), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf(
			"task: %s\nblocked: %t\ntests: %s\nconfidence: %s\ntodos: %s",
			doc.Task, doc.Blocked, doc.Tests, doc.Confidence, doc.Todos,
		)), nil
	}
}
