package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-schema/pkg/constraints"
	"github.com/ekaya-inc/ekaya-schema/pkg/logging"
	"github.com/ekaya-inc/ekaya-schema/pkg/models"
	"github.com/ekaya-inc/ekaya-schema/pkg/normalization"
	sqlfmt "github.com/ekaya-inc/ekaya-schema/pkg/sql"
)

// SchemaServiceConfig holds the pipeline defaults taken from configuration.
type SchemaServiceConfig struct {
	DefaultDialect models.Dialect
	IncludeDrop    bool
	BlockOnErrors  bool
	MaxAttributes  int
}

// GenerateOptions overrides the configured defaults for one Generate call.
type GenerateOptions struct {
	Dialect     models.Dialect
	IncludeDrop *bool
	// EnsurePrimaryKeys gives every table without a primary key one over its
	// "id" column, when it has one, before validation.
	EnsurePrimaryKeys bool
}

// GenerateResult is the outcome of the transform, validate, generate pipeline.
type GenerateResult struct {
	SQL        string                   `json:"sql"`
	DSD        *models.Schema           `json:"dsd"`
	Validation *models.ValidationResult `json:"validation"`
	Success    bool                     `json:"success"`
	Errors     []models.ValidationIssue `json:"errors"`
}

// ERDAnalysis is the constraint analyzer's report on an ERD.
type ERDAnalysis struct {
	Valid              bool                         `json:"valid"`
	Violations         []models.ConstraintViolation `json:"violations"`
	CircularReferences [][]string                   `json:"circular_references"`
}

// NormalizationCheck reports the normal forms of every table of a schema.
type NormalizationCheck struct {
	Tables        map[string]models.NormalizationLevel `json:"tables"`
	SkippedTables []string                             `json:"skipped_tables,omitempty"`
}

// SchemaService chains the transformer, validator, formatter and normalizer.
type SchemaService interface {
	TransformERD(ctx context.Context, erd *models.ERD, dialect models.Dialect) (*models.Schema, error)
	AnalyzeERD(ctx context.Context, erd *models.ERD) *ERDAnalysis
	AnalyzeSchema(ctx context.Context, schema *models.Schema) []models.ConstraintViolation
	ValidateSchema(ctx context.Context, schema *models.Schema) *models.ValidationResult
	GenerateSQL(ctx context.Context, schema *models.Schema, dialect models.Dialect, includeDrop bool) (string, error)
	GenerateMigration(ctx context.Context, from, to *models.Schema, dialect models.Dialect) (string, error)
	GenerateMigrationFiles(ctx context.Context, from, to *models.Schema, dialect models.Dialect, version uint, name string) (*sqlfmt.MigrationFiles, error)

	// Generate runs transform, validate and generate in one call. When the
	// service blocks on errors and validation reports any, SQL is left empty
	// and Success is false; the DSD and validation are still returned.
	Generate(ctx context.Context, erd *models.ERD, opts GenerateOptions) (*GenerateResult, error)

	Normalize(ctx context.Context, schema *models.Schema, fds []models.FunctionalDependency, nt models.NormalizationType) *models.NormalizationResult
	CheckNormalization(ctx context.Context, schema *models.Schema, fds []models.FunctionalDependency) (*NormalizationCheck, error)
}

type schemaService struct {
	cfg         SchemaServiceConfig
	transformer ERDTransformer
	validator   DSDValidator
	analyzer    *constraints.Analyzer
	normalizer  *normalization.Normalizer
	logger      *zap.Logger
}

// NewSchemaService creates the pipeline service.
func NewSchemaService(cfg SchemaServiceConfig, logger *zap.Logger) SchemaService {
	if cfg.DefaultDialect == "" {
		cfg.DefaultDialect = models.DialectPostgres
	}
	return &schemaService{
		cfg:         cfg,
		transformer: NewERDTransformer(logger),
		validator:   NewDSDValidator(logger),
		analyzer:    constraints.NewAnalyzer(logger),
		normalizer:  normalization.NewNormalizer(logger, cfg.MaxAttributes),
		logger:      logger.Named("schema-service"),
	}
}

var _ SchemaService = (*schemaService)(nil)

func (s *schemaService) dialectOr(d models.Dialect) models.Dialect {
	if d == "" {
		return s.cfg.DefaultDialect
	}
	return d
}

func (s *schemaService) TransformERD(ctx context.Context, erd *models.ERD, dialect models.Dialect) (*models.Schema, error) {
	return s.transformer.Transform(ctx, erd, s.dialectOr(dialect))
}

func (s *schemaService) AnalyzeERD(ctx context.Context, erd *models.ERD) *ERDAnalysis {
	violations := s.analyzer.AnalyzeERD(erd)
	if violations == nil {
		violations = []models.ConstraintViolation{}
	}
	cycles := constraints.DetectCircularReferences(erd.Relationships)
	if cycles == nil {
		cycles = [][]string{}
	}

	valid := true
	for _, v := range violations {
		if v.Severity == models.SeverityError {
			valid = false
			break
		}
	}
	return &ERDAnalysis{Valid: valid, Violations: violations, CircularReferences: cycles}
}

func (s *schemaService) AnalyzeSchema(ctx context.Context, schema *models.Schema) []models.ConstraintViolation {
	violations := s.analyzer.AnalyzeDSD(schema)
	if violations == nil {
		violations = []models.ConstraintViolation{}
	}
	return violations
}

func (s *schemaService) ValidateSchema(ctx context.Context, schema *models.Schema) *models.ValidationResult {
	return s.validator.Validate(ctx, schema)
}

// GenerateSQL renders schema for dialect, falling back to the schema's own
// dialect and then the configured default.
func (s *schemaService) GenerateSQL(ctx context.Context, schema *models.Schema, dialect models.Dialect, includeDrop bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if dialect == "" {
		dialect = schema.Dialect
	}
	gen, err := sqlfmt.NewScriptGenerator(s.dialectOr(dialect))
	if err != nil {
		return "", err
	}
	script := gen.GenerateFullScript(schema, includeDrop)

	s.logger.Debug("Generated SQL",
		zap.String("schema", schema.Name),
		zap.String("dialect", string(gen.Formatter().Dialect())),
		zap.String("sql", logging.SanitizeSQL(script)))
	return script, nil
}

func (s *schemaService) GenerateMigration(ctx context.Context, from, to *models.Schema, dialect models.Dialect) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if dialect == "" {
		dialect = to.Dialect
	}
	gen, err := sqlfmt.NewScriptGenerator(s.dialectOr(dialect))
	if err != nil {
		return "", err
	}
	return gen.GenerateMigrationScript(from, to), nil
}

func (s *schemaService) GenerateMigrationFiles(ctx context.Context, from, to *models.Schema, dialect models.Dialect, version uint, name string) (*sqlfmt.MigrationFiles, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if dialect == "" {
		dialect = to.Dialect
	}
	gen, err := sqlfmt.NewScriptGenerator(s.dialectOr(dialect))
	if err != nil {
		return nil, err
	}
	return gen.GenerateMigrationFiles(from, to, version, name)
}

func (s *schemaService) Generate(ctx context.Context, erd *models.ERD, opts GenerateOptions) (*GenerateResult, error) {
	dialect := s.dialectOr(opts.Dialect)
	includeDrop := s.cfg.IncludeDrop
	if opts.IncludeDrop != nil {
		includeDrop = *opts.IncludeDrop
	}

	schema, err := s.transformer.Transform(ctx, erd, dialect)
	if err != nil {
		return nil, fmt.Errorf("transform ERD: %w", err)
	}
	if opts.EnsurePrimaryKeys {
		for _, table := range schema.Tables {
			if constraints.EnsurePrimaryKey(table, "id") {
				s.logger.Debug("Added default primary key", zap.String("table", table.Name))
			}
		}
	}

	validation := s.validator.Validate(ctx, schema)
	result := &GenerateResult{
		DSD:        schema,
		Validation: validation,
		Errors:     validation.ErrorIssues(),
	}
	if result.Errors == nil {
		result.Errors = []models.ValidationIssue{}
	}

	if !validation.Valid && s.cfg.BlockOnErrors {
		s.logger.Info("SQL generation blocked by validation errors",
			zap.String("schema", schema.Name),
			zap.Int("errors", validation.Errors))
		return result, nil
	}

	script, err := s.GenerateSQL(ctx, schema, dialect, includeDrop)
	if err != nil {
		return nil, err
	}
	result.SQL = script
	result.Success = true
	return result, nil
}

func (s *schemaService) Normalize(ctx context.Context, schema *models.Schema, fds []models.FunctionalDependency, nt models.NormalizationType) *models.NormalizationResult {
	if nt == "" {
		nt = models.DefaultNormalization
	}
	s.logger.Debug("Normalizing schema",
		zap.String("schema", schema.Name),
		zap.String("type", string(nt)),
		zap.String("fds", logging.SanitizeFDs(fds)))
	return s.normalizer.NormalizeSchema(ctx, schema, fds, nt)
}

func (s *schemaService) CheckNormalization(ctx context.Context, schema *models.Schema, fds []models.FunctionalDependency) (*NormalizationCheck, error) {
	levels, skipped, err := s.normalizer.CheckSchema(ctx, schema, fds)
	if err != nil {
		return nil, err
	}
	return &NormalizationCheck{Tables: levels, SkippedTables: skipped}, nil
}
