package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ekaya-inc/ekaya-schema/pkg/models"
)

type validateOptions struct {
	dsdPath string
	erdPath string
	dialect string
	asJSON  bool
}

func newValidateCmd(a *app) *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a DSD, or the schema an ERD transforms into",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, a, opts)
		},
	}

	cmd.Flags().StringVar(&opts.dsdPath, "dsd", "", "DSD document (JSON or YAML)")
	cmd.Flags().StringVar(&opts.erdPath, "erd", "", "ERD document, transformed before validation")
	cmd.Flags().StringVar(&opts.dialect, "dialect", "", "Dialect used to transform --erd")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print the full validation result as JSON")
	return cmd
}

func runValidate(cmd *cobra.Command, a *app, opts *validateOptions) error {
	var (
		schema *models.Schema
		err    error
	)
	switch {
	case opts.dsdPath != "" && opts.erdPath != "":
		return errors.New("only one of --dsd or --erd can be specified")
	case opts.dsdPath != "":
		schema, err = loadSchema(cmd, opts.dsdPath)
	case opts.erdPath != "":
		var (
			erd     *models.ERD
			dialect models.Dialect
		)
		if dialect, err = a.dialect(opts.dialect); err != nil {
			return err
		}
		if erd, err = loadERD(cmd, opts.erdPath); err != nil {
			return err
		}
		schema, err = a.service().TransformERD(cmd.Context(), erd, dialect)
	default:
		return errors.New("one of --dsd or --erd must be specified")
	}
	if err != nil {
		return err
	}

	result := a.service().ValidateSchema(cmd.Context(), schema)
	if opts.asJSON {
		if err := writeJSON(cmd, result); err != nil {
			return err
		}
	} else {
		printIssues(cmd, result.Issues)
		for _, v := range a.service().AnalyzeSchema(cmd.Context(), schema) {
			fmt.Fprintf(cmd.ErrOrStderr(), "%-7s %-28s %s: %s\n", v.Severity, v.Type, v.Table, v.Message)
		}
		fmt.Fprintln(cmd.OutOrStdout(), result.Summary)
	}

	if !result.Valid {
		return fmt.Errorf("validation failed with %d error(s)", result.Errors)
	}
	return nil
}
