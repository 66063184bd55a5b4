package mcp

import (
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-schema/pkg/mcp/tools"
	"github.com/ekaya-inc/ekaya-schema/pkg/middleware"
)

// Server wraps the mcp-go MCPServer and the schema design tools.
type Server struct {
	mcp     *server.MCPServer
	version string
	logger  *zap.Logger
}

// NewServer creates a new MCP server instance.
func NewServer(name, version string, logger *zap.Logger) *Server {
	mcpServer := server.NewMCPServer(
		name,
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	return &Server{
		mcp:     mcpServer,
		version: version,
		logger:  logger,
	}
}

// MCP returns the underlying MCPServer for tool registration.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// RegisterSchemaTools registers the health tool and the ERD, DSD and
// normalization tools.
func (s *Server) RegisterSchemaTools(deps *tools.SchemaToolDeps) {
	if deps.Logger == nil {
		deps.Logger = s.logger.Named("mcp-tools")
	}
	tools.RegisterHealthTool(s.mcp, s.version)
	tools.RegisterSchemaTools(s.mcp, deps)
}

// NewStreamableHTTPServer creates an HTTP transport server wrapping this MCP server.
// The HTTP mux handles routing to /mcp, so no endpoint path is configured here.
func (s *Server) NewStreamableHTTPServer() *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(
		s.mcp,
		server.WithStateLess(true),
	)
}

// Handler returns the streamable HTTP transport with tool-call logging.
func (s *Server) Handler() http.Handler {
	return middleware.MCPRequestLogger(s.logger.Named("mcp"))(s.NewStreamableHTTPServer())
}

// RegisterTool is a convenience wrapper for registering a tool.
func (s *Server) RegisterTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.mcp.AddTool(tool, handler)
}
