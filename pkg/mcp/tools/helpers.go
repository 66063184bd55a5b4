package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ekaya-inc/ekaya-schema/pkg/jsonutil"
	"github.com/ekaya-inc/ekaya-schema/pkg/models"
	"github.com/ekaya-inc/ekaya-schema/pkg/normalization"
)

var errInvalidArgument = errors.New("invalid argument")

func arguments(req mcp.CallToolRequest) map[string]any {
	args, _ := req.Params.Arguments.(map[string]any)
	return args
}

// documentArgument returns an argument as JSON bytes. Clients may pass the
// document as an object or as a JSON or YAML string.
func documentArgument(req mcp.CallToolRequest, key string) ([]byte, error) {
	val, ok := arguments(req)[key]
	if !ok || val == nil {
		return nil, fmt.Errorf("%w: %s is required", errInvalidArgument, key)
	}
	if s, ok := val.(string); ok {
		if strings.TrimSpace(s) == "" {
			return nil, fmt.Errorf("%w: %s is required", errInvalidArgument, key)
		}
		data, err := jsonutil.ToJSON([]byte(s))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", errInvalidArgument, key, err)
		}
		return data, nil
	}
	data, err := json.Marshal(val)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errInvalidArgument, key, err)
	}
	return data, nil
}

func erdArgument(req mcp.CallToolRequest) (*models.ERD, error) {
	data, err := documentArgument(req, "erd")
	if err != nil {
		return nil, err
	}
	return models.ParseERD(data)
}

func dsdArgument(req mcp.CallToolRequest) (*models.Schema, error) {
	data, err := documentArgument(req, "dsd")
	if err != nil {
		return nil, err
	}
	return models.ParseSchema(data)
}

// dialectArgument resolves the optional dialect argument. Empty leaves the
// choice to the service defaults.
func dialectArgument(req mcp.CallToolRequest) (models.Dialect, error) {
	name := trimString(req.GetString("dialect", ""))
	if name == "" {
		return "", nil
	}
	return models.ParseDialect(name)
}

// fdArgument parses functional_dependencies given as text or a list.
func fdArgument(req mcp.CallToolRequest) ([]models.FunctionalDependency, error) {
	val, ok := arguments(req)["functional_dependencies"]
	if !ok || val == nil {
		return nil, nil
	}
	raw, err := json.Marshal(val)
	if err != nil {
		return nil, fmt.Errorf("%w: functional_dependencies: %w", errInvalidArgument, err)
	}
	return normalization.ParseFDInput(raw)
}

// trimString removes leading and trailing whitespace from a string.
func trimString(s string) string {
	return strings.TrimSpace(s)
}

// jsonResult marshals v as the text content of a tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
