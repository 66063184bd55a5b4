package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/ekaya-inc/ekaya-schema/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-schema/pkg/models"
)

// DefaultMaxRequestBytes is used when a handler is built without a limit.
const DefaultMaxRequestBytes int64 = 1 << 20

// requestError is a client error with the HTTP status and code to report.
type requestError struct {
	status int
	code   string
	msg    string
}

func (e *requestError) Error() string { return e.msg }

// decodeJSONBody reads at most limit bytes of r.Body into dst.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, limit int64, dst any) error {
	if limit <= 0 {
		limit = DefaultMaxRequestBytes
	}
	body := http.MaxBytesReader(w, r.Body, limit)
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &requestError{
				status: http.StatusRequestEntityTooLarge,
				code:   "request_too_large",
				msg:    fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit),
			}
		}
		return &requestError{status: http.StatusBadRequest, code: "invalid_request", msg: "Failed to read request body"}
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return &requestError{status: http.StatusBadRequest, code: "invalid_request", msg: "Invalid JSON in request body"}
	}
	return nil
}

// hasValue reports whether a raw JSON field was present and not null.
func hasValue(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

// parseDialectField resolves an optional dialect from a request body.
// Empty leaves the choice to the service defaults.
func parseDialectField(name string) (models.Dialect, error) {
	if name == "" {
		return "", nil
	}
	return models.ParseDialect(name)
}

// isInputError reports whether err was caused by the caller's input.
func isInputError(err error) bool {
	for _, target := range []error{
		apperrors.ErrUnsupportedDialect,
		apperrors.ErrUnknownType,
		apperrors.ErrInvalidERD,
		apperrors.ErrInvalidDSD,
		apperrors.ErrInvalidFD,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	var reqErr *requestError
	return errors.As(err, &reqErr)
}

// writeError maps err to a status and writes the {error, message} body.
func writeError(w http.ResponseWriter, err error, failureCode string) error {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr):
		return ErrorResponse(w, reqErr.status, reqErr.code, reqErr.msg)
	case errors.Is(err, apperrors.ErrUnsupportedDialect):
		return ErrorResponse(w, http.StatusBadRequest, "unsupported_dialect", err.Error())
	case isInputError(err):
		return ErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		return ErrorResponse(w, http.StatusInternalServerError, failureCode, err.Error())
	}
}
