// Package mcp provides an MCP (Model Context Protocol) server exposing the
// factory memory engine as tools.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/factory/pkg/memory"
	"github.com/papercomputeco/factory/pkg/project"
	"github.com/papercomputeco/factory/pkg/utils"
)

// Memory is the subset of the memory engine the tools call.
type Memory interface {
	Remember(ctx context.Context, in memory.NewItem) (string, error)
	Recall(ctx context.Context, q memory.Query) ([]memory.Recalled, error)
	Forget(ctx context.Context, memoryID string) error
	Reconcile(ctx context.Context, batchSize int) (*memory.ReconcileResult, error)
}

type Config struct {
	// Memory backs every tool
	Memory Memory

	// DefaultOwner is used when a tool call omits user_id
	DefaultOwner project.Owner

	// Noop for empty MCP server
	Noop bool

	// Logger is the configured slog logger
	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the memory tools.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "factory",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if !c.Noop {
		if c.Memory == nil {
			return nil, errors.New("memory engine is required")
		}
		if c.Logger == nil {
			return nil, errors.New("logger is required")
		}
		if s.config.DefaultOwner == "" {
			s.config.DefaultOwner = "default"
		}

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        memoryRememberToolName,
			Description: memoryRememberDescription,
		}, s.handleRemember)
		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        memoryRecallToolName,
			Description: memoryRecallDescription,
		}, s.handleRecall)
		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        memoryForgetToolName,
			Description: memoryForgetDescription,
		}, s.handleForget)
		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        memoryReconcileToolName,
			Description: memoryReconcileDescription,
		}, s.handleReconcile)
	}

	s.mcpServer = mcpServer

	// Create a streamable HTTP net/http handler for stateless operations
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// MCPServer returns the underlying server, e.g. for in-memory transports.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}

func (s *Server) owner(userID string) project.Owner {
	if userID == "" {
		return s.config.DefaultOwner
	}
	return project.Owner(userID)
}
