// Package mcpserver exposes the Session Manager's start/finish/cancel/status/
// list operations as MCP tools, so an MCP-speaking coding assistant can drive
// Para directly instead of shelling out to the CLI.
package mcpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/para-dev/para/internal/common/logger"
	"github.com/para-dev/para/internal/session"
	"github.com/para-dev/para/internal/state"
	"github.com/para-dev/para/internal/status"
)

// Config holds the MCP server's listen configuration.
type Config struct {
	Port int
}

// Server wraps the Streamable HTTP MCP transport with lifecycle management.
// It also mounts the Status Channel's websocket push endpoint alongside the
// MCP transport, since both are thin HTTP surfaces a coding assistant's
// extension process wants on the same port.
type Server struct {
	cfg        Config
	session    *session.Manager
	store      *state.Store
	hub        *status.Hub
	httpServer *http.Server
	mcpServer  *server.StreamableHTTPServer
	log        *logger.Logger

	mu      sync.Mutex
	running bool
}

// New constructs the MCP server bound to a Session Manager and State Store.
// hub may be nil, in which case /status/ws is not mounted.
func New(cfg Config, sess *session.Manager, store *state.Store, hub *status.Hub, log *logger.Logger) *Server {
	return &Server{cfg: cfg, session: sess, store: store, hub: hub, log: log}
}

// Start starts the MCP server in a goroutine and returns once it is
// listening or ctx is cancelled first.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("mcp server already running")
	}
	s.mu.Unlock()

	mcp := server.NewMCPServer("para-mcp", "1.0.0", server.WithToolCapabilities(true))
	registerTools(mcp, s.session, s.store, s.log)

	s.mcpServer = server.NewStreamableHTTPServer(mcp, server.WithEndpointPath("/mcp"))

	mux := http.NewServeMux()
	mux.Handle("/mcp", s.mcpServer)
	if s.hub != nil {
		mux.HandleFunc("/status/ws", s.hub.ServeWS)
	}

	addr := fmt.Sprintf("127.0.0.1:%d", s.cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	if tcpAddr, ok := listener.Addr().(*net.TCPAddr); ok {
		s.cfg.Port = tcpAddr.Port
	}

	s.httpServer = &http.Server{Handler: mux}

	ready := make(chan struct{})
	go func() {
		s.mu.Lock()
		s.running = true
		s.mu.Unlock()
		close(ready)

		s.log.Info("mcp server listening", zap.Int("port", s.cfg.Port))
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.WithError(err).Error("mcp server error")
		}

		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop gracefully shuts down the MCP server's transports.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	if !running {
		return nil
	}

	if s.mcpServer != nil {
		if err := s.mcpServer.Shutdown(ctx); err != nil {
			s.log.WithError(err).Warn("failed to shut down streamable http transport")
		}
	}
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// Endpoint returns the URL clients connect the Streamable HTTP transport to.
func (s *Server) Endpoint() string {
	return fmt.Sprintf("http://127.0.0.1:%d/mcp", s.cfg.Port)
}
