package tools

import (
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ekaya-inc/ekaya-schema/pkg/apperrors"
)

// ErrorResponse represents a structured error in tool results.
// Returning it as a tool result keeps the details visible to the MCP client
// instead of being swallowed as a protocol error.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// NewErrorResult creates a tool result containing a structured error.
// Use this for errors the caller can fix (malformed ERD, unknown dialect).
// System failures should still return Go errors.
func NewErrorResult(code, message string) *mcp.CallToolResult {
	return NewErrorResultWithDetails(code, message, nil)
}

// NewErrorResultWithDetails creates an error result with additional context,
// such as the issue list of a failed validation.
func NewErrorResultWithDetails(code, message string, details any) *mcp.CallToolResult {
	resp := ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
		Details: details,
	}
	jsonBytes, _ := json.Marshal(resp)
	result := mcp.NewToolResultText(string(jsonBytes))
	result.IsError = true
	return result
}

// errorCode classifies an input error for NewErrorResult.
func errorCode(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrUnsupportedDialect):
		return "unsupported_dialect"
	case errors.Is(err, apperrors.ErrUnknownType):
		return "unknown_type"
	case errors.Is(err, apperrors.ErrInvalidERD):
		return "invalid_erd"
	case errors.Is(err, apperrors.ErrInvalidDSD):
		return "invalid_dsd"
	case errors.Is(err, apperrors.ErrInvalidFD):
		return "invalid_functional_dependencies"
	default:
		return "invalid_parameters"
	}
}

// isInputError reports whether err came from the tool arguments.
func isInputError(err error) bool {
	return errorCode(err) != "invalid_parameters" || errors.Is(err, errInvalidArgument)
}
