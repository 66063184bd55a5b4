package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ekaya-inc/ekaya-schema/pkg/models"
)

type healthResult struct {
	Status   string           `json:"status"`
	Version  string           `json:"version"`
	Dialects []models.Dialect `json:"dialects"`
}

// RegisterHealthTool adds a health check tool to the MCP server.
// The tool returns the server status, version and supported dialects.
func RegisterHealthTool(s *server.MCPServer, version string) {
	tool := mcp.NewTool(
		"health",
		mcp.WithDescription("Returns server health status, version and supported SQL dialects"),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(healthResult{Status: "ok", Version: version, Dialects: models.ValidDialects})
	})
}
