package mcp

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"time"

	"callmap/internal/config"
	callmaperrors "callmap/internal/errors"
	"callmap/internal/logging"
	"callmap/internal/query"
	"callmap/internal/workspaces"
)

// Server speaks MCP over stdio and dispatches tool calls to the query
// engine of the active workspace.
type Server struct {
	stdin   io.Reader
	stdout  io.Writer
	scanner *bufio.Scanner
	logger  *logging.Logger
	version string
	tools   map[string]ToolHandler

	mu         sync.RWMutex
	engine     *query.Engine
	workspaces *workspaces.Registry
}

// NewServer builds a server around an engine. The workspace registry
// may be nil, in which case the workspace tools report that switching
// is unavailable.
func NewServer(version string, engine *query.Engine, registry *workspaces.Registry, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Server{
		stdin:      os.Stdin,
		stdout:     os.Stdout,
		logger:     logger,
		version:    version,
		engine:     engine,
		workspaces: registry,
		tools:      make(map[string]ToolHandler),
	}
	s.registerTools()
	return s
}

// SetStdin replaces the input stream (for testing).
func (s *Server) SetStdin(r io.Reader) {
	s.stdin = r
	s.scanner = nil
}

// SetStdout replaces the output stream (for testing).
func (s *Server) SetStdout(w io.Writer) {
	s.stdout = w
}

// Start runs the message loop until stdin closes. Undecodable lines
// get a ParseError response; transport failures end the loop.
func (s *Server) Start() error {
	s.logger.Info("MCP server starting", map[string]interface{}{
		"version": s.version,
	})

	for {
		msg, err := s.readMessage()
		if err != nil {
			if err == io.EOF {
				s.logger.Info("MCP server shutting down", map[string]interface{}{
					"reason": "stdin closed",
				})
				return nil
			}
			var pe *parseError
			if errors.As(err, &pe) {
				s.logger.Warn("Dropping unparseable message", map[string]interface{}{
					"error": pe.cause.Error(),
				})
				_ = s.writeError(nil, ParseError, pe.Error())
				continue
			}
			return err
		}

		response := s.handleMessage(msg)
		if response == nil {
			continue
		}
		if err := s.writeMessage(response); err != nil {
			s.logger.Error("Error writing response", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
}

// currentEngine returns the engine serving the active workspace.
func (s *Server) currentEngine() (*query.Engine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.engine == nil {
		return nil, callmaperrors.New(callmaperrors.WorkspaceNotFound,
			"no active workspace: call listWorkspaces, then switchWorkspace")
	}
	return s.engine, nil
}

// opContext bounds one tool call by the configured request timeout.
func (s *Server) opContext() (context.Context, context.CancelFunc) {
	timeout := 30 * time.Second
	s.mu.RLock()
	if s.engine != nil {
		if ms := s.engine.Config().Lsp.RequestTimeoutMs; ms > 0 {
			timeout = time.Duration(ms) * time.Millisecond
		}
	}
	s.mu.RUnlock()
	return context.WithTimeout(context.Background(), timeout)
}

// switchWorkspace swaps the engine for the named workspace's and marks
// it active in the registry. The old engine is shut down after the
// swap.
func (s *Server) switchWorkspace(name string) (*workspaces.Workspace, error) {
	if s.workspaces == nil {
		return nil, callmaperrors.New(callmaperrors.WorkspaceNotFound,
			"no workspace registry: run callmap workspace add first")
	}

	ws := s.workspaces.Get(name)
	if ws == nil {
		return nil, callmaperrors.New(callmaperrors.WorkspaceNotFound, "workspace not found: "+name)
	}

	cfg, err := config.LoadConfig(ws.Path)
	if err != nil {
		return nil, err
	}
	engine, err := query.NewEngine(cfg, s.logger)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	old := s.engine
	s.engine = engine
	s.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			s.logger.Warn("Failed to close previous engine", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	if err := s.workspaces.SetActive(name); err == nil {
		if err := s.workspaces.Save(); err != nil {
			s.logger.Warn("Failed to persist active workspace", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	s.logger.Info("Switched workspace", map[string]interface{}{
		"workspace": name,
		"path":      ws.Path,
	})
	return ws, nil
}
