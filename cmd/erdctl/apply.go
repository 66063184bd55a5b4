package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-schema/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-schema/pkg/config"
	"github.com/ekaya-inc/ekaya-schema/pkg/logging"
	"github.com/ekaya-inc/ekaya-schema/pkg/models"
	"github.com/ekaya-inc/ekaya-schema/pkg/services"
	sqlfmt "github.com/ekaya-inc/ekaya-schema/pkg/sql"
)

type applyOptions struct {
	erdPath     string
	diagramPath string
	dialect     string
	dsn         string
	drop        bool
	allowErrors bool
	ensurePK    bool
}

func newApplyCmd(a *app) *cobra.Command {
	opts := &applyOptions{}

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Generate DDL from an ERD and execute it against a database",
		Example: `  erdctl apply --erd shop.yaml --dialect sqlite --dsn ./shop.db
  erdctl apply --erd shop.yaml --dialect postgresql --dsn postgres://app@localhost/app --drop`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd, a, opts)
		},
	}

	cmd.Flags().StringVar(&opts.erdPath, "erd", "", "ERD document (JSON or YAML, - for stdin)")
	cmd.Flags().StringVar(&opts.diagramPath, "diagram", "", "Diagram canvas export (nodes and edges)")
	cmd.Flags().StringVar(&opts.dialect, "dialect", "", "Target dialect (default from config)")
	cmd.Flags().StringVar(&opts.dsn, "dsn", "", "Connection string, or a file path for sqlite (default: DATABASE_URL)")
	cmd.Flags().BoolVar(&opts.drop, "drop", false, "Drop existing tables first")
	cmd.Flags().BoolVar(&opts.allowErrors, "allow-errors", false, "Apply even when validation reports errors")
	cmd.Flags().BoolVar(&opts.ensurePK, "ensure-pk", false, "Add a primary key over an 'id' column to tables that lack one")
	return cmd
}

func runApply(cmd *cobra.Command, a *app, opts *applyOptions) error {
	dialect, err := a.dialect(opts.dialect)
	if err != nil {
		return err
	}
	dsn := opts.dsn
	if dsn == "" {
		dsn = a.cfg.Database.URL
	}
	if dsn == "" {
		return errors.New("--dsn or DATABASE_URL must be specified")
	}
	dsn = config.ResolveDSNForDocker(dsn)

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
	if err := checkApplySafety(result); err != nil {
		return err
	}

	applier, err := datasource.NewApplierProvider(a.logger).NewApplier(cmd.Context(), dialect, dsn)
	if err != nil {
		return fmt.Errorf("connect to %s: %s", dialect, logging.SanitizeError(err))
	}
	defer func() {
		if err := applier.Close(); err != nil {
			a.logger.Warn("Failed to close database connection", zap.Error(err))
		}
	}()

	a.logger.Info("Applying schema",
		zap.String("dialect", string(dialect)),
		zap.String("dsn", logging.SanitizeConnectionString(dsn)),
		zap.Int("tables", len(result.DSD.Tables)))
	if err := applier.Apply(cmd.Context(), result.SQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	tables, err := applier.TableNames(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "applied %d table(s); database now has: %s\n",
		len(result.DSD.Tables), strings.Join(tables, ", "))
	return nil
}

// unsafeSQLCodes are validation errors that --allow-errors never overrides
// when the script is executed.
var unsafeSQLCodes = map[string]bool{
	services.CodeUnsafeCheckExpression: true,
	services.CodeInvalidDefaultValue:   true,
}

// checkApplySafety refuses to execute CHECK expressions whose string literals
// look like injected SQL, and any DEFAULT or CHECK the validator marked unsafe.
func checkApplySafety(result *services.GenerateResult) error {
	var flagged []string
	for _, issue := range result.Validation.Issues {
		if issue.Severity != models.SeverityError || !unsafeSQLCodes[issue.Code] {
			continue
		}
		location := issue.Table
		if issue.Column != nil {
			location += "." + *issue.Column
		}
		flagged = append(flagged, fmt.Sprintf("%s (%s)", location, issue.Code))
	}
	for _, table := range result.DSD.Tables {
		for _, res := range sqlfmt.CheckTableConstraints(table) {
			flagged = append(flagged, fmt.Sprintf("%s.%s (%s)", table.Name, res.Constraint, res.Fingerprint))
		}
	}
	if len(flagged) > 0 {
		return fmt.Errorf("refusing to apply unsafe SQL: %s", strings.Join(flagged, ", "))
	}
	return nil
}
