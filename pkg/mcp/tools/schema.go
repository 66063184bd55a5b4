package tools

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-schema/pkg/models"
	"github.com/ekaya-inc/ekaya-schema/pkg/normalization"
	"github.com/ekaya-inc/ekaya-schema/pkg/services"
)

// SchemaToolDeps contains dependencies for the schema design tools.
type SchemaToolDeps struct {
	SchemaService     services.SchemaService
	NormalizationType models.NormalizationType
	Logger            *zap.Logger
}

// RegisterSchemaTools registers the ERD, DSD and normalization tools.
func RegisterSchemaTools(s *server.MCPServer, deps *SchemaToolDeps) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.NormalizationType == "" {
		deps.NormalizationType = models.DefaultNormalization
	}
	registerTransformERDTool(s, deps)
	registerValidateDSDTool(s, deps)
	registerGenerateSQLTool(s, deps)
	registerNormalizeSchemaTool(s, deps)
	registerCheckNormalizationTool(s, deps)
}

func registerTransformERDTool(s *server.MCPServer, deps *SchemaToolDeps) {
	tool := mcp.NewTool(
		"transform_erd",
		mcp.WithDescription(
			"Transform an entity-relationship diagram into a physical schema (DSD) for a SQL dialect. "+
				"Relationships become foreign keys; N:M relationships become junction tables. "+
				"Also returns structural violations and circular references found in the ERD.",
		),
		mcp.WithObject(
			"erd",
			mcp.Required(),
			mcp.Description("ERD document: {name, entities: [{name, attributes: [{name, type, primary_key, ...}]}], relationships: [{from_entity, to_entity, type}]}"),
		),
		mcp.WithString(
			"dialect",
			mcp.Description("Target dialect: postgresql, mysql, mssql or sqlite (default from server config)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		erd, err := erdArgument(req)
		if err != nil {
			return NewErrorResult(errorCode(err), err.Error()), nil
		}
		dialect, err := dialectArgument(req)
		if err != nil {
			return NewErrorResult(errorCode(err), err.Error()), nil
		}

		schema, err := deps.SchemaService.TransformERD(ctx, erd, dialect)
		if err != nil {
			if isInputError(err) {
				return NewErrorResult(errorCode(err), err.Error()), nil
			}
			return nil, err
		}

		return jsonResult(struct {
			DSD      *models.Schema        `json:"dsd"`
			Analysis *services.ERDAnalysis `json:"analysis"`
		}{DSD: schema, Analysis: deps.SchemaService.AnalyzeERD(ctx, erd)})
	})
}

func registerValidateDSDTool(s *server.MCPServer, deps *SchemaToolDeps) {
	tool := mcp.NewTool(
		"validate_dsd",
		mcp.WithDescription(
			"Validate a physical schema (DSD). Returns every issue with severity error, warning or info. "+
				"Issues are data: an invalid schema still returns a successful result with valid=false.",
		),
		mcp.WithObject(
			"dsd",
			mcp.Required(),
			mcp.Description("DSD document: {name, tables: [{name, columns, constraints, indexes}]}"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		schema, err := dsdArgument(req)
		if err != nil {
			return NewErrorResult(errorCode(err), err.Error()), nil
		}
		return jsonResult(deps.SchemaService.ValidateSchema(ctx, schema))
	})
}

func registerGenerateSQLTool(s *server.MCPServer, deps *SchemaToolDeps) {
	tool := mcp.NewTool(
		"generate_sql",
		mcp.WithDescription(
			"Generate a DDL script. Pass an erd to run transform, validate and generate in one step, "+
				"or a dsd to render an existing physical schema. "+
				"Validation errors on an erd block generation and are returned as the error details.",
		),
		mcp.WithObject(
			"erd",
			mcp.Description("ERD document (exclusive with dsd)"),
		),
		mcp.WithObject(
			"dsd",
			mcp.Description("DSD document (exclusive with erd)"),
		),
		mcp.WithString(
			"dialect",
			mcp.Description("Target dialect: postgresql, mysql, mssql or sqlite"),
		),
		mcp.WithBoolean(
			"include_drop",
			mcp.Description("Prefix the script with DROP TABLE statements (default from server config)"),
		),
		mcp.WithBoolean(
			"ensure_primary_keys",
			mcp.Description("With an erd, add a primary key over an 'id' column to tables that lack one"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dialect, err := dialectArgument(req)
		if err != nil {
			return NewErrorResult(errorCode(err), err.Error()), nil
		}
		args := arguments(req)
		_, hasERD := args["erd"]
		_, hasDSD := args["dsd"]

		switch {
		case hasERD && hasDSD:
			return NewErrorResult("invalid_parameters", "pass either erd or dsd, not both"), nil
		case hasDSD:
			schema, err := dsdArgument(req)
			if err != nil {
				return NewErrorResult(errorCode(err), err.Error()), nil
			}
			script, err := deps.SchemaService.GenerateSQL(ctx, schema, dialect, req.GetBool("include_drop", false))
			if err != nil {
				if isInputError(err) {
					return NewErrorResult(errorCode(err), err.Error()), nil
				}
				return nil, err
			}
			return jsonResult(map[string]string{"sql": script})
		case hasERD:
			erd, err := erdArgument(req)
			if err != nil {
				return NewErrorResult(errorCode(err), err.Error()), nil
			}
			opts := services.GenerateOptions{
				Dialect:           dialect,
				EnsurePrimaryKeys: req.GetBool("ensure_primary_keys", false),
			}
			if _, ok := args["include_drop"]; ok {
				includeDrop := req.GetBool("include_drop", false)
				opts.IncludeDrop = &includeDrop
			}
			result, err := deps.SchemaService.Generate(ctx, erd, opts)
			if err != nil {
				if isInputError(err) {
					return NewErrorResult(errorCode(err), err.Error()), nil
				}
				return nil, err
			}
			if !result.Success {
				return NewErrorResultWithDetails("validation_failed",
					"schema has validation errors; fix them and retry", result.Errors), nil
			}
			return jsonResult(result)
		default:
			return NewErrorResult("invalid_parameters", "erd or dsd is required"), nil
		}
	})
}

func registerNormalizeSchemaTool(s *server.MCPServer, deps *SchemaToolDeps) {
	tool := mcp.NewTool(
		"normalize_schema",
		mcp.WithDescription(
			"Decompose the tables of a DSD to BCNF or 3NF under the given functional dependencies. "+
				"Returns the original and normalized tables with a change log.",
		),
		mcp.WithObject(
			"dsd",
			mcp.Required(),
			mcp.Description("DSD document whose tables are normalized"),
		),
		mcp.WithString(
			"functional_dependencies",
			mcp.Required(),
			mcp.Description("Dependencies as text, e.g. 'order_id -> customer_id; customer_id -> customer_name'"),
		),
		mcp.WithString(
			"normalization_type",
			mcp.Description("BCNF or 3NF (default from server config)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		schema, err := dsdArgument(req)
		if err != nil {
			return NewErrorResult(errorCode(err), err.Error()), nil
		}
		fds, err := fdArgument(req)
		if err != nil {
			return NewErrorResult(errorCode(err), err.Error()), nil
		}
		if len(fds) == 0 {
			return NewErrorResult("invalid_functional_dependencies", "No valid functional dependencies provided"), nil
		}

		nt := deps.NormalizationType
		if name := trimString(req.GetString("normalization_type", "")); name != "" {
			nt, err = models.ParseNormalizationType(name)
			if err != nil {
				return NewErrorResult("invalid_parameters", err.Error()), nil
			}
		}

		if unknown, available := normalization.UnknownAttributes(schema, fds); len(unknown) > 0 {
			return NewErrorResultWithDetails("unknown_attributes",
				"Unknown attributes in functional dependencies: "+strings.Join(unknown, ", "),
				map[string][]string{
					"invalid_attributes":   unknown,
					"available_attributes": available,
				}), nil
		}

		result := deps.SchemaService.Normalize(ctx, schema, fds, nt)
		if !result.Success {
			deps.Logger.Error("Normalization failed", zap.String("schema", schema.Name), zap.String("error", result.Error))
			return NewErrorResult("normalization_failed", "Normalization failed: "+result.Error), nil
		}
		return jsonResult(result)
	})
}

func registerCheckNormalizationTool(s *server.MCPServer, deps *SchemaToolDeps) {
	tool := mcp.NewTool(
		"check_normalization",
		mcp.WithDescription(
			"Report whether each table of a DSD is in BCNF and 3NF, with its candidate keys and the violating dependencies.",
		),
		mcp.WithObject(
			"dsd",
			mcp.Required(),
			mcp.Description("DSD document to check"),
		),
		mcp.WithString(
			"functional_dependencies",
			mcp.Description("Dependencies as text; tables with none are trivially normalized"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		schema, err := dsdArgument(req)
		if err != nil {
			return NewErrorResult(errorCode(err), err.Error()), nil
		}
		fds, err := fdArgument(req)
		if err != nil {
			return NewErrorResult(errorCode(err), err.Error()), nil
		}

		check, err := deps.SchemaService.CheckNormalization(ctx, schema, fds)
		if err != nil {
			return nil, err
		}
		return jsonResult(check)
	})
}
