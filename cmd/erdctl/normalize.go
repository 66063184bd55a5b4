package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ekaya-inc/ekaya-schema/pkg/models"
	"github.com/ekaya-inc/ekaya-schema/pkg/normalization"
)

type normalizeOptions struct {
	dsdPath  string
	fds      string
	normType string
	check    bool
	sqlOut   string
	dialect  string
}

func newNormalizeCmd(a *app) *cobra.Command {
	opts := &normalizeOptions{}

	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Decompose DSD tables into BCNF or 3NF",
		Example: `  erdctl normalize --dsd orders.json --fds "order_id -> customer_id; customer_id -> customer_name"
  erdctl normalize --dsd orders.json --fds fds.yaml --type 3NF --sql normalized.sql
  erdctl normalize --dsd orders.json --fds fds.yaml --check`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNormalize(cmd, a, opts)
		},
	}

	cmd.Flags().StringVar(&opts.dsdPath, "dsd", "", "DSD document (JSON or YAML)")
	cmd.Flags().StringVar(&opts.fds, "fds", "", "Functional dependencies: a file, or text such as \"a -> b; b -> c\"")
	cmd.Flags().StringVar(&opts.normType, "type", "", "BCNF or 3NF (default from config)")
	cmd.Flags().BoolVar(&opts.check, "check", false, "Only report the normal form of each table")
	cmd.Flags().StringVar(&opts.sqlOut, "sql", "", "Also write DDL for the normalized schema to this file")
	cmd.Flags().StringVar(&opts.dialect, "dialect", "", "Dialect for --sql")
	return cmd
}

func runNormalize(cmd *cobra.Command, a *app, opts *normalizeOptions) error {
	if opts.dsdPath == "" {
		return errors.New("--dsd must be specified")
	}
	schema, err := loadSchema(cmd, opts.dsdPath)
	if err != nil {
		return err
	}
	fds, err := loadFDs(cmd, opts.fds)
	if err != nil {
		return err
	}
	svc := a.service()

	if opts.check {
		check, err := svc.CheckNormalization(cmd.Context(), schema, fds)
		if err != nil {
			return err
		}
		return writeJSON(cmd, check)
	}

	if len(fds) == 0 {
		return errors.New("no valid functional dependencies provided")
	}
	if unknown, available := normalization.UnknownAttributes(schema, fds); len(unknown) > 0 {
		return fmt.Errorf("unknown attributes in functional dependencies: %s (available: %s)",
			strings.Join(unknown, ", "), strings.Join(available, ", "))
	}

	nt := a.cfg.NormalizationType()
	if opts.normType != "" {
		if nt, err = models.ParseNormalizationType(opts.normType); err != nil {
			return err
		}
	}

	result := svc.Normalize(cmd.Context(), schema, fds, nt)
	if err := writeJSON(cmd, result); err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("normalization failed: %s", result.Error)
	}

	if opts.sqlOut != "" {
		dialect, err := a.dialect(opts.dialect)
		if err != nil {
			return err
		}
		script, err := svc.GenerateSQL(cmd.Context(), result.NormalizedSchema(schema), dialect, false)
		if err != nil {
			return err
		}
		return writeOutput(cmd, opts.sqlOut, script)
	}
	return nil
}
