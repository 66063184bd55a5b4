package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-schema/pkg/logging"
	"github.com/ekaya-inc/ekaya-schema/pkg/models"
	"github.com/ekaya-inc/ekaya-schema/pkg/services"
)

type generateOptions struct {
	erdPath     string
	diagramPath string
	dialect     string
	drop        bool
	allowErrors bool
	ensurePK    bool
	output      string
}

func newGenerateCmd(a *app) *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a DDL script from an ERD or diagram",
		Example: `  erdctl generate --erd shop.yaml --dialect mysql
  erdctl generate --diagram canvas.json --drop -o schema.sql`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, a, opts)
		},
	}

	cmd.Flags().StringVar(&opts.erdPath, "erd", "", "ERD document (JSON or YAML, - for stdin)")
	cmd.Flags().StringVar(&opts.diagramPath, "diagram", "", "Diagram canvas export (nodes and edges)")
	cmd.Flags().StringVar(&opts.dialect, "dialect", "", "Target dialect: postgresql, mysql, mssql, sqlite (default from config)")
	cmd.Flags().BoolVar(&opts.drop, "drop", false, "Prefix the script with DROP TABLE statements")
	cmd.Flags().BoolVar(&opts.allowErrors, "allow-errors", false, "Emit SQL even when validation reports errors")
	cmd.Flags().BoolVar(&opts.ensurePK, "ensure-pk", false, "Add a primary key over an 'id' column to tables that lack one")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

// generateSchema runs the transform, validate, generate pipeline and reports
// issues on stderr. It fails when generation was blocked by errors.
func generateSchema(cmd *cobra.Command, a *app, erd *models.ERD, opts services.GenerateOptions) (*services.GenerateResult, error) {
	result, err := a.service().Generate(cmd.Context(), erd, opts)
	if err != nil {
		return nil, err
	}

	printIssues(cmd, result.Validation.Issues)
	if !result.Success {
		return nil, fmt.Errorf("schema has %d validation error(s); fix them or pass --allow-errors", len(result.Errors))
	}
	return result, nil
}

func runGenerate(cmd *cobra.Command, a *app, opts *generateOptions) error {
	dialect, err := a.dialect(opts.dialect)
	if err != nil {
		return err
	}
	erd, err := loadERDInput(cmd, opts.erdPath, opts.diagramPath)
	if err != nil {
		return err
	}
	if opts.allowErrors {
		a.cfg.Schema.AllowErrors = true
	}

	var drop *bool
	if cmd.Flags().Changed("drop") {
		drop = &opts.drop
	}
	result, err := generateSchema(cmd, a, erd, services.GenerateOptions{
		Dialect:           dialect,
		IncludeDrop:       drop,
		EnsurePrimaryKeys: opts.ensurePK,
	})
	if err != nil {
		return err
	}

	a.logger.Debug("Generated schema",
		zap.String("dialect", string(dialect)),
		zap.Int("tables", len(result.DSD.Tables)),
		zap.String("sql", logging.SanitizeSQL(result.SQL)))
	return writeOutput(cmd, opts.output, result.SQL)
}
