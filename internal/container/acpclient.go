package container

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	acp "github.com/coder/acp-go-sdk"
	"go.uber.org/zap"

	"github.com/para-dev/para/internal/common/logger"
	"github.com/para-dev/para/internal/status"
)

// acpClient implements acp.Client for the optional ACP attach-stream of
// §4.5: a containerized agent that speaks the Agent Client Protocol over its
// attach stdio gets its session/update notifications folded into the Status
// Channel document, as a supplement to whatever the agent writes to
// .para-state/status.yaml itself.
type acpClient struct {
	log          *logger.Logger
	sessionName  string
	worktreePath string
	stateDir     string
	hub          *status.Hub

	mu   sync.Mutex
	plan int
}

func newACPClient(log *logger.Logger, sessionName, worktreePath, stateDir string, hub *status.Hub) *acpClient {
	return &acpClient{log: log, sessionName: sessionName, worktreePath: worktreePath, stateDir: stateDir, hub: hub}
}

// RequestPermission auto-approves, preferring an "allow" option, since a
// containerized session has no human attached to the attach stream to ask.
func (c *acpClient) RequestPermission(ctx context.Context, p acp.RequestPermissionRequest) (acp.RequestPermissionResponse, error) {
	if len(p.Options) == 0 {
		c.log.WithSession(c.sessionName).Warn("acp permission request had no options, cancelling")
		return acp.RequestPermissionResponse{
			Outcome: acp.RequestPermissionOutcome{Cancelled: &acp.RequestPermissionOutcomeCancelled{}},
		}, nil
	}

	selected := &p.Options[0]
	for i := range p.Options {
		if p.Options[i].Kind == acp.PermissionOptionKindAllowOnce || p.Options[i].Kind == acp.PermissionOptionKindAllowAlways {
			selected = &p.Options[i]
			break
		}
	}
	c.log.WithSession(c.sessionName).Info("acp permission auto-approved", zap.String("option", string(selected.OptionId)))

	return acp.RequestPermissionResponse{
		Outcome: acp.RequestPermissionOutcome{
			Selected: &acp.RequestPermissionOutcomeSelected{OptionId: selected.OptionId},
		},
	}, nil
}

// SessionUpdate folds agent message chunks and plan progress into the Status
// document, so the table in `para tui` and `para status` has something to
// show even for an agent that never learned to write status.yaml itself.
func (c *acpClient) SessionUpdate(ctx context.Context, n acp.SessionNotification) error {
	u := n.Update
	switch {
	case u.AgentMessageChunk != nil && u.AgentMessageChunk.Content.Text != nil:
		c.writeTask(strings.TrimSpace(u.AgentMessageChunk.Content.Text.Text))
	case u.Plan != nil:
		c.mu.Lock()
		c.plan = len(u.Plan.Entries)
		c.mu.Unlock()
		c.writeTask(fmt.Sprintf("working plan: %d step(s)", len(u.Plan.Entries)))
	case u.ToolCall != nil:
		c.writeTask(fmt.Sprintf("running: %s", u.ToolCall.Title))
	}
	return nil
}

func (c *acpClient) writeTask(task string) {
	if task == "" {
		return
	}
	doc, err := status.Read(c.stateDir)
	if err != nil {
		doc = &status.Document{}
	}
	doc.Task = task
	doc.Timestamp = time.Now()
	if err := status.Write(c.stateDir, doc); err != nil {
		c.log.WithSession(c.sessionName).WithError(err).Debug("failed to fold acp update into status document")
		return
	}
	if c.hub != nil {
		c.hub.Publish(c.sessionName, doc)
	}
}

// ReadTextFile and WriteTextFile are scoped to the session's worktree: an
// in-container agent may ask to read or write files through the protocol
// instead of touching the bind-mounted filesystem directly, but it only ever
// gets its own workspace.
func (c *acpClient) ReadTextFile(ctx context.Context, p acp.ReadTextFileRequest) (acp.ReadTextFileResponse, error) {
	path, err := c.resolveInWorktree(p.Path)
	if err != nil {
		return acp.ReadTextFileResponse{}, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return acp.ReadTextFileResponse{}, err
	}
	content := string(b)
	if p.Line != nil || p.Limit != nil {
		lines := strings.Split(content, "\n")
		start := 0
		if p.Line != nil && *p.Line > 0 {
			start = *p.Line - 1
			if start > len(lines) {
				start = len(lines)
			}
		}
		end := len(lines)
		if p.Limit != nil && *p.Limit > 0 && start+*p.Limit < end {
			end = start + *p.Limit
		}
		content = strings.Join(lines[start:end], "\n")
	}
	return acp.ReadTextFileResponse{Content: content}, nil
}

func (c *acpClient) WriteTextFile(ctx context.Context, p acp.WriteTextFileRequest) (acp.WriteTextFileResponse, error) {
	path, err := c.resolveInWorktree(p.Path)
	if err != nil {
		return acp.WriteTextFileResponse{}, err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return acp.WriteTextFileResponse{}, err
		}
	}
	return acp.WriteTextFileResponse{}, os.WriteFile(path, []byte(p.Content), 0o644)
}

// resolveInWorktree rejects any path that would escape the session's
// worktree once joined and cleaned, the same boundary the Sandbox Policy
// Engine enforces for host-mode sessions.
func (c *acpClient) resolveInWorktree(reqPath string) (string, error) {
	joined := reqPath
	if !filepath.IsAbs(joined) {
		joined = filepath.Join(c.worktreePath, joined)
	}
	clean := filepath.Clean(joined)
	if clean != c.worktreePath && !strings.HasPrefix(clean, c.worktreePath+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the session worktree", reqPath)
	}
	return clean, nil
}

// CreateTerminal and its companions are not supported: a containerized
// session's real terminal access goes through docker exec, not a
// protocol-mediated pseudo-terminal, so these just decline.
func (c *acpClient) CreateTerminal(ctx context.Context, p acp.CreateTerminalRequest) (acp.CreateTerminalResponse, error) {
	return acp.CreateTerminalResponse{}, fmt.Errorf("terminal requests are not supported over the attach stream")
}

func (c *acpClient) KillTerminalCommand(ctx context.Context, p acp.KillTerminalCommandRequest) (acp.KillTerminalCommandResponse, error) {
	return acp.KillTerminalCommandResponse{}, fmt.Errorf("terminal requests are not supported over the attach stream")
}

func (c *acpClient) TerminalOutput(ctx context.Context, p acp.TerminalOutputRequest) (acp.TerminalOutputResponse, error) {
	return acp.TerminalOutputResponse{}, fmt.Errorf("terminal requests are not supported over the attach stream")
}

func (c *acpClient) ReleaseTerminal(ctx context.Context, p acp.ReleaseTerminalRequest) (acp.ReleaseTerminalResponse, error) {
	return acp.ReleaseTerminalResponse{}, nil
}

func (c *acpClient) WaitForTerminalExit(ctx context.Context, p acp.WaitForTerminalExitRequest) (acp.WaitForTerminalExitResponse, error) {
	return acp.WaitForTerminalExitResponse{}, fmt.Errorf("terminal requests are not supported over the attach stream")
}

var _ acp.Client = (*acpClient)(nil)
