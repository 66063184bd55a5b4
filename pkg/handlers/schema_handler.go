package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-schema/pkg/models"
	"github.com/ekaya-inc/ekaya-schema/pkg/services"
)

// DiagramRequest is a canvas export: named nodes joined by edges.
type DiagramRequest struct {
	Name  string                 `json:"name"`
	Nodes []services.DiagramNode `json:"nodes"`
	Edges []services.DiagramEdge `json:"edges"`
}

// ERDRequest carries an ERD for analysis or transformation.
type ERDRequest struct {
	ERD     json.RawMessage `json:"erd"`
	Dialect string          `json:"dialect,omitempty"`
}

// DSDRequest carries a DSD for validation or SQL generation.
type DSDRequest struct {
	DSD         json.RawMessage `json:"dsd"`
	Dialect     string          `json:"dialect,omitempty"`
	IncludeDrop bool            `json:"include_drop,omitempty"`
}

// MigrationRequest carries the two schemas a migration moves between.
type MigrationRequest struct {
	From    json.RawMessage `json:"from"`
	To      json.RawMessage `json:"to"`
	Dialect string          `json:"dialect,omitempty"`
}

// GenerateRequest runs the full pipeline on an ERD or a diagram.
// IncludeDrop is a pointer so an absent value keeps the configured default.
type GenerateRequest struct {
	ERD         json.RawMessage `json:"erd,omitempty"`
	Diagram     *DiagramRequest `json:"diagram,omitempty"`
	Dialect     string          `json:"dialect,omitempty"`
	IncludeDrop *bool           `json:"include_drop,omitempty"`

	EnsurePrimaryKeys bool `json:"ensure_primary_keys,omitempty"`
}

// SQLResponse wraps a generated script.
type SQLResponse struct {
	SQL     string         `json:"sql"`
	Dialect models.Dialect `json:"dialect,omitempty"`
}

// SchemaHandler handles the ERD and DSD endpoints.
type SchemaHandler struct {
	schemaService services.SchemaService
	maxBytes      int64
	logger        *zap.Logger
}

// NewSchemaHandler creates a new schema handler.
func NewSchemaHandler(schemaService services.SchemaService, maxBytes int64, logger *zap.Logger) *SchemaHandler {
	return &SchemaHandler{
		schemaService: schemaService,
		maxBytes:      maxBytes,
		logger:        logger,
	}
}

// RegisterRoutes registers the schema handler's routes on the given mux.
func (h *SchemaHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/erd/analyze", h.AnalyzeERD)
	mux.HandleFunc("POST /api/erd/transform", h.TransformERD)
	mux.HandleFunc("POST /api/erd/import", h.ImportDiagram)
	mux.HandleFunc("POST /api/dsd/validate", h.ValidateDSD)
	mux.HandleFunc("POST /api/dsd/analyze", h.AnalyzeDSD)
	mux.HandleFunc("POST /api/dsd/sql", h.GenerateSQL)
	mux.HandleFunc("POST /api/dsd/migration", h.GenerateMigration)
	mux.HandleFunc("POST /api/generate", h.Generate)
}

// AnalyzeERD handles POST /api/erd/analyze.
func (h *SchemaHandler) AnalyzeERD(w http.ResponseWriter, r *http.Request) {
	var req ERDRequest
	if err := decodeJSONBody(w, r, h.maxBytes, &req); err != nil {
		h.fail(w, err, "analyze_erd_failed")
		return
	}
	erd, err := parseERDField(req.ERD)
	if err != nil {
		h.fail(w, err, "analyze_erd_failed")
		return
	}

	analysis := h.schemaService.AnalyzeERD(r.Context(), erd)
	h.respond(w, http.StatusOK, ApiResponse{Success: true, Data: analysis})
}

// TransformERD handles POST /api/erd/transform.
func (h *SchemaHandler) TransformERD(w http.ResponseWriter, r *http.Request) {
	var req ERDRequest
	if err := decodeJSONBody(w, r, h.maxBytes, &req); err != nil {
		h.fail(w, err, "transform_erd_failed")
		return
	}
	erd, err := parseERDField(req.ERD)
	if err != nil {
		h.fail(w, err, "transform_erd_failed")
		return
	}
	dialect, err := parseDialectField(req.Dialect)
	if err != nil {
		h.fail(w, err, "transform_erd_failed")
		return
	}

	schema, err := h.schemaService.TransformERD(r.Context(), erd, dialect)
	if err != nil {
		h.fail(w, err, "transform_erd_failed")
		return
	}
	h.respond(w, http.StatusOK, ApiResponse{Success: true, Data: schema})
}

// ImportDiagram handles POST /api/erd/import, converting a canvas export to an ERD.
func (h *SchemaHandler) ImportDiagram(w http.ResponseWriter, r *http.Request) {
	var req DiagramRequest
	if err := decodeJSONBody(w, r, h.maxBytes, &req); err != nil {
		h.fail(w, err, "import_diagram_failed")
		return
	}

	erd, err := services.ParseDiagram(req.Name, req.Nodes, req.Edges)
	if err != nil {
		h.fail(w, err, "import_diagram_failed")
		return
	}
	h.respond(w, http.StatusOK, ApiResponse{Success: true, Data: erd})
}

// ValidateDSD handles POST /api/dsd/validate.
// The validation result is returned as data whether or not it is valid.
func (h *SchemaHandler) ValidateDSD(w http.ResponseWriter, r *http.Request) {
	var req DSDRequest
	if err := decodeJSONBody(w, r, h.maxBytes, &req); err != nil {
		h.fail(w, err, "validate_dsd_failed")
		return
	}
	schema, err := parseDSDField(req.DSD, "dsd")
	if err != nil {
		h.fail(w, err, "validate_dsd_failed")
		return
	}

	result := h.schemaService.ValidateSchema(r.Context(), schema)
	h.respond(w, http.StatusOK, ApiResponse{Success: true, Data: result})
}

// AnalyzeDSD handles POST /api/dsd/analyze, reporting missing primary keys
// and dangling foreign key targets.
func (h *SchemaHandler) AnalyzeDSD(w http.ResponseWriter, r *http.Request) {
	var req DSDRequest
	if err := decodeJSONBody(w, r, h.maxBytes, &req); err != nil {
		h.fail(w, err, "analyze_dsd_failed")
		return
	}
	schema, err := parseDSDField(req.DSD, "dsd")
	if err != nil {
		h.fail(w, err, "analyze_dsd_failed")
		return
	}

	violations := h.schemaService.AnalyzeSchema(r.Context(), schema)
	h.respond(w, http.StatusOK, ApiResponse{Success: true, Data: violations})
}

// GenerateSQL handles POST /api/dsd/sql.
func (h *SchemaHandler) GenerateSQL(w http.ResponseWriter, r *http.Request) {
	var req DSDRequest
	if err := decodeJSONBody(w, r, h.maxBytes, &req); err != nil {
		h.fail(w, err, "generate_sql_failed")
		return
	}
	schema, err := parseDSDField(req.DSD, "dsd")
	if err != nil {
		h.fail(w, err, "generate_sql_failed")
		return
	}
	dialect, err := parseDialectField(req.Dialect)
	if err != nil {
		h.fail(w, err, "generate_sql_failed")
		return
	}

	script, err := h.schemaService.GenerateSQL(r.Context(), schema, dialect, req.IncludeDrop)
	if err != nil {
		h.fail(w, err, "generate_sql_failed")
		return
	}
	h.respond(w, http.StatusOK, ApiResponse{Success: true, Data: SQLResponse{SQL: script, Dialect: effectiveDialect(dialect, schema)}})
}

// GenerateMigration handles POST /api/dsd/migration.
func (h *SchemaHandler) GenerateMigration(w http.ResponseWriter, r *http.Request) {
	var req MigrationRequest
	if err := decodeJSONBody(w, r, h.maxBytes, &req); err != nil {
		h.fail(w, err, "generate_migration_failed")
		return
	}
	from, err := parseDSDField(req.From, "from")
	if err != nil {
		h.fail(w, err, "generate_migration_failed")
		return
	}
	to, err := parseDSDField(req.To, "to")
	if err != nil {
		h.fail(w, err, "generate_migration_failed")
		return
	}
	dialect, err := parseDialectField(req.Dialect)
	if err != nil {
		h.fail(w, err, "generate_migration_failed")
		return
	}

	script, err := h.schemaService.GenerateMigration(r.Context(), from, to, dialect)
	if err != nil {
		h.fail(w, err, "generate_migration_failed")
		return
	}
	h.respond(w, http.StatusOK, ApiResponse{Success: true, Data: SQLResponse{SQL: script, Dialect: effectiveDialect(dialect, to)}})
}

// Generate handles POST /api/generate.
// Validation errors that block generation are returned as 400 with the issue list.
func (h *SchemaHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := decodeJSONBody(w, r, h.maxBytes, &req); err != nil {
		h.fail(w, err, "generate_failed")
		return
	}

	var (
		erd *models.ERD
		err error
	)
	switch {
	case hasValue(req.ERD):
		erd, err = models.ParseERD(req.ERD)
	case req.Diagram != nil:
		erd, err = services.ParseDiagram(req.Diagram.Name, req.Diagram.Nodes, req.Diagram.Edges)
	default:
		err = &requestError{status: http.StatusBadRequest, code: "invalid_request", msg: "Missing required field: erd or diagram"}
	}
	if err != nil {
		h.fail(w, err, "generate_failed")
		return
	}
	if len(erd.Entities) == 0 {
		h.fail(w, &requestError{status: http.StatusBadRequest, code: "invalid_request", msg: "No entities found. Please create some entities first."}, "generate_failed")
		return
	}

	dialect, err := parseDialectField(req.Dialect)
	if err != nil {
		h.fail(w, err, "generate_failed")
		return
	}

	result, err := h.schemaService.Generate(r.Context(), erd, services.GenerateOptions{
		Dialect:           dialect,
		IncludeDrop:       req.IncludeDrop,
		EnsurePrimaryKeys: req.EnsurePrimaryKeys,
	})
	if err != nil {
		h.fail(w, err, "generate_failed")
		return
	}

	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadRequest
	}
	h.respond(w, status, result)
}

func (h *SchemaHandler) respond(w http.ResponseWriter, status int, body any) {
	if err := WriteJSON(w, status, body); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *SchemaHandler) fail(w http.ResponseWriter, err error, failureCode string) {
	if !isInputError(err) {
		h.logger.Error("Schema request failed", zap.String("code", failureCode), zap.Error(err))
	}
	if encErr := writeError(w, err, failureCode); encErr != nil {
		h.logger.Error("Failed to write error response", zap.Error(encErr))
	}
}

func parseERDField(raw json.RawMessage) (*models.ERD, error) {
	if !hasValue(raw) {
		return nil, &requestError{status: http.StatusBadRequest, code: "invalid_request", msg: "Missing required field: erd"}
	}
	return models.ParseERD(raw)
}

func parseDSDField(raw json.RawMessage, field string) (*models.Schema, error) {
	if !hasValue(raw) {
		return nil, &requestError{status: http.StatusBadRequest, code: "invalid_request", msg: "Missing required field: " + field}
	}
	return models.ParseSchema(raw)
}

// effectiveDialect mirrors the service's fallback for reporting.
func effectiveDialect(requested models.Dialect, schema *models.Schema) models.Dialect {
	if requested != "" {
		return requested
	}
	return schema.Dialect
}
