// Package mcpserver exposes a lanes board to agents as MCP tools. Agents read
// the board, pick and claim the next task, move it between columns and mark
// it done. Tool calls are serialized so concurrent agents never race one
// another's manifest writes.
package mcpserver

import (
	"context"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	log "github.com/sirupsen/logrus"

	"github.com/papapumpkin/lanes/internal/lifecycle"
)

// Version is reported to clients during initialization.
const Version = "0.1.0"

// Server is the lanes MCP server.
type Server struct {
	svc    *lifecycle.Service
	mcp    *mcp.Server
	logger log.FieldLogger

	// mu serializes tool calls against the board.
	mu sync.Mutex
}

// New creates a server with every board tool registered.
func New(svc *lifecycle.Service, logger log.FieldLogger) *Server {
	if logger == nil {
		logger = log.StandardLogger()
	}
	s := &Server{
		svc: svc,
		mcp: mcp.NewServer(&mcp.Implementation{
			Name:    "lanes",
			Version: Version,
		}, nil),
		logger: logger,
	}
	s.registerTools()
	return s
}

// registerTools registers all board tools on the MCP server.
func (s *Server) registerTools() {
	s.registerReadTools()
	s.registerTaskTools()
}

// Run serves the tools over t until the client disconnects or ctx ends.
// Stdio is the usual transport: Run(ctx, &mcp.StdioTransport{}).
func (s *Server) Run(ctx context.Context, t mcp.Transport) error {
	s.logger.WithField("version", Version).Info("mcp server started")
	err := s.mcp.Run(ctx, t)
	s.logger.Info("mcp server stopped")
	return err
}

// locked runs fn while holding the board lock.
func (s *Server) locked(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}
