package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-schema/pkg/models"
	"github.com/ekaya-inc/ekaya-schema/pkg/normalization"
	"github.com/ekaya-inc/ekaya-schema/pkg/services"
)

// NormalizeRequest is the body of the normalization endpoints.
// FunctionalDependencies is either "a, b -> c; d -> e" or a list of
// {determinant, dependent} objects.
type NormalizeRequest struct {
	DSD                    json.RawMessage `json:"dsd"`
	NormalizationType      string          `json:"normalization_type,omitempty"`
	FunctionalDependencies json.RawMessage `json:"functional_dependencies"`
}

// NormalizationErrorResponse is the failure body of the normalization endpoints.
type NormalizationErrorResponse struct {
	Success             bool     `json:"success"`
	Error               string   `json:"error"`
	InvalidAttributes   []string `json:"invalid_attributes,omitempty"`
	AvailableAttributes []string `json:"available_attributes,omitempty"`
}

// CheckNormalizationResponse reports the normal forms of each table.
type CheckNormalizationResponse struct {
	Success       bool                                 `json:"success"`
	Tables        map[string]models.NormalizationLevel `json:"tables"`
	SkippedTables []string                             `json:"skipped_tables,omitempty"`
}

// NormalizationHandler handles the BCNF/3NF endpoints.
type NormalizationHandler struct {
	schemaService services.SchemaService
	defaultType   models.NormalizationType
	maxBytes      int64
	logger        *zap.Logger
}

// NewNormalizationHandler creates a new normalization handler.
func NewNormalizationHandler(schemaService services.SchemaService, defaultType models.NormalizationType, maxBytes int64, logger *zap.Logger) *NormalizationHandler {
	if defaultType == "" {
		defaultType = models.DefaultNormalization
	}
	return &NormalizationHandler{
		schemaService: schemaService,
		defaultType:   defaultType,
		maxBytes:      maxBytes,
		logger:        logger,
	}
}

// RegisterRoutes registers the normalization handler's routes on the given mux.
func (h *NormalizationHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/normalize", h.Normalize)
	mux.HandleFunc("POST /api/normalize/check", h.Check)
}

// Normalize handles POST /api/normalize.
func (h *NormalizationHandler) Normalize(w http.ResponseWriter, r *http.Request) {
	schema, fds, req, ok := h.decode(w, r)
	if !ok {
		return
	}

	nt := h.defaultType
	if req.NormalizationType != "" {
		parsed, err := models.ParseNormalizationType(req.NormalizationType)
		if err != nil {
			h.writeFailure(w, http.StatusBadRequest, NormalizationErrorResponse{Error: err.Error()})
			return
		}
		nt = parsed
	}

	if len(fds) == 0 {
		h.writeFailure(w, http.StatusBadRequest, NormalizationErrorResponse{Error: "No valid functional dependencies provided"})
		return
	}

	if unknown, available := normalization.UnknownAttributes(schema, fds); len(unknown) > 0 {
		h.writeFailure(w, http.StatusBadRequest, NormalizationErrorResponse{
			Error:               "Unknown attributes in functional dependencies: " + strings.Join(unknown, ", "),
			InvalidAttributes:   unknown,
			AvailableAttributes: available,
		})
		return
	}

	result := h.schemaService.Normalize(r.Context(), schema, fds, nt)
	if !result.Success {
		h.logger.Error("Normalization failed",
			zap.String("schema", schema.Name),
			zap.String("error", result.Error))
		h.writeFailure(w, http.StatusInternalServerError, NormalizationErrorResponse{
			Error: fmt.Sprintf("Normalization failed: %s", result.Error),
		})
		return
	}

	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to encode normalization response", zap.Error(err))
	}
}

// Check handles POST /api/normalize/check.
func (h *NormalizationHandler) Check(w http.ResponseWriter, r *http.Request) {
	schema, fds, _, ok := h.decode(w, r)
	if !ok {
		return
	}

	check, err := h.schemaService.CheckNormalization(r.Context(), schema, fds)
	if err != nil {
		h.logger.Error("Normalization check failed", zap.Error(err))
		h.writeFailure(w, http.StatusInternalServerError, NormalizationErrorResponse{
			Error: fmt.Sprintf("Normalization check failed: %s", err.Error()),
		})
		return
	}

	response := CheckNormalizationResponse{
		Success:       true,
		Tables:        check.Tables,
		SkippedTables: check.SkippedTables,
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode normalization check response", zap.Error(err))
	}
}

// decode reads the request, the DSD and its dependencies, writing the
// failure response itself when any of them is invalid.
func (h *NormalizationHandler) decode(w http.ResponseWriter, r *http.Request) (*models.Schema, []models.FunctionalDependency, *NormalizeRequest, bool) {
	var req NormalizeRequest
	if err := decodeJSONBody(w, r, h.maxBytes, &req); err != nil {
		status := http.StatusBadRequest
		if reqErr, ok := err.(*requestError); ok {
			status = reqErr.status
		}
		h.writeFailure(w, status, NormalizationErrorResponse{Error: err.Error()})
		return nil, nil, nil, false
	}

	if !hasValue(req.DSD) {
		h.writeFailure(w, http.StatusBadRequest, NormalizationErrorResponse{Error: "Missing required field: dsd"})
		return nil, nil, nil, false
	}
	schema, err := models.ParseSchema(req.DSD)
	if err != nil {
		h.writeFailure(w, http.StatusBadRequest, NormalizationErrorResponse{Error: err.Error()})
		return nil, nil, nil, false
	}

	fds, err := normalization.ParseFDInput(req.FunctionalDependencies)
	if err != nil {
		h.writeFailure(w, http.StatusBadRequest, NormalizationErrorResponse{
			Error: fmt.Sprintf("Failed to parse functional dependencies: %s", err.Error()),
		})
		return nil, nil, nil, false
	}
	return schema, fds, &req, true
}

func (h *NormalizationHandler) writeFailure(w http.ResponseWriter, status int, body NormalizationErrorResponse) {
	body.Success = false
	if err := WriteJSON(w, status, body); err != nil {
		h.logger.Error("Failed to encode normalization error", zap.Error(err))
	}
}
