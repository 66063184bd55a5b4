package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ekaya-inc/ekaya-schema/pkg/config"
	"github.com/ekaya-inc/ekaya-schema/pkg/logging"
	"github.com/ekaya-inc/ekaya-schema/pkg/models"
	"github.com/ekaya-inc/ekaya-schema/pkg/services"
)

// app carries state shared by every subcommand. It is filled in by the root
// command's PersistentPreRunE once flags are parsed.
type app struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "erdctl",
		Short:         "Turn entity-relationship diagrams into SQL schemas",
		Long:          `erdctl transforms ERD documents into relational schemas, validates them, generates DDL for PostgreSQL, MySQL, SQL Server or SQLite, normalizes tables with functional dependencies, and applies the result to a database.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", config.DefaultPath, "Config file (optional; env vars override)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log at the configured level instead of warnings only")

	root.AddCommand(
		newGenerateCmd(a),
		newValidateCmd(a),
		newNormalizeCmd(a),
		newMigrateCmd(a),
		newApplyCmd(a),
	)
	return root
}

func (a *app) init() error {
	cfg, err := config.Load(a.configPath, Version)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := zapcore.WarnLevel
	if a.verbose {
		level = cfg.Level()
	}
	logger, err := logging.NewLogger(cfg.Env, level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	a.logger = logger.Named("erdctl")
	return nil
}

// service builds the schema pipeline from the loaded configuration. Commands
// adjust a.cfg from their flags before calling it.
func (a *app) service() services.SchemaService {
	return services.NewSchemaService(services.SchemaServiceConfig{
		DefaultDialect: a.cfg.Dialect(),
		IncludeDrop:    a.cfg.Schema.IncludeDrop,
		BlockOnErrors:  a.cfg.BlockOnErrors(),
		MaxAttributes:  a.cfg.Normalization.MaxAttributes,
	}, a.logger)
}

// dialect resolves a --dialect flag, falling back to the configured default.
func (a *app) dialect(flag string) (models.Dialect, error) {
	if flag == "" {
		return a.cfg.Dialect(), nil
	}
	return models.ParseDialect(flag)
}
