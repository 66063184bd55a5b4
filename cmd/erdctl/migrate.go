package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-schema/pkg/config"
	"github.com/ekaya-inc/ekaya-schema/pkg/database"
	"github.com/ekaya-inc/ekaya-schema/pkg/logging"
	"github.com/ekaya-inc/ekaya-schema/pkg/models"
)

type migrateOptions struct {
	fromPath string
	toPath   string
	dialect  string
	dir      string
	version  uint
	name     string
	apply    bool
	dsn      string
}

func newMigrateCmd(a *app) *cobra.Command {
	opts := &migrateOptions{}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Generate a migration between two DSDs",
		Long: `Generate a migration script that creates tables added in --to and drops tables
removed from --from. With --dir the script is written as a golang-migrate
up/down pair; --apply then runs pending migrations against PostgreSQL.`,
		Example: `  erdctl migrate --from v1.json --to v2.json
  erdctl migrate --from v1.json --to v2.json --dir migrations --version 2 --name add_orders --apply`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, a, opts)
		},
	}

	cmd.Flags().StringVar(&opts.fromPath, "from", "", "Current DSD document")
	cmd.Flags().StringVar(&opts.toPath, "to", "", "Target DSD document")
	cmd.Flags().StringVar(&opts.dialect, "dialect", "", "Target dialect (default from config)")
	cmd.Flags().StringVar(&opts.dir, "dir", "", "Write {version}_{name}.up.sql/.down.sql into this directory")
	cmd.Flags().UintVar(&opts.version, "version", 1, "Migration version for --dir")
	cmd.Flags().StringVar(&opts.name, "name", "schema", "Migration name for --dir")
	cmd.Flags().BoolVar(&opts.apply, "apply", false, "Run pending migrations in --dir (PostgreSQL only)")
	cmd.Flags().StringVar(&opts.dsn, "dsn", "", "Database URL for --apply (default: DATABASE_URL)")
	return cmd
}

func runMigrate(cmd *cobra.Command, a *app, opts *migrateOptions) error {
	if opts.fromPath == "" || opts.toPath == "" {
		return errors.New("--from and --to must both be specified")
	}
	if opts.apply && opts.dir == "" {
		return errors.New("--apply requires --dir")
	}
	dialect, err := a.dialect(opts.dialect)
	if err != nil {
		return err
	}
	if opts.apply && dialect != models.DialectPostgres {
		return fmt.Errorf("--apply supports postgresql only, got %s", dialect)
	}

	from, err := loadSchema(cmd, opts.fromPath)
	if err != nil {
		return err
	}
	to, err := loadSchema(cmd, opts.toPath)
	if err != nil {
		return err
	}
	svc := a.service()

	if opts.dir == "" {
		script, err := svc.GenerateMigration(cmd.Context(), from, to, dialect)
		if err != nil {
			return err
		}
		return writeOutput(cmd, "", script)
	}

	files, err := svc.GenerateMigrationFiles(cmd.Context(), from, to, dialect, opts.version, opts.name)
	if err != nil {
		return err
	}
	paths, err := database.WriteMigrationFiles(opts.dir, files)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}

	if !opts.apply {
		return nil
	}
	dsn := opts.dsn
	if dsn == "" {
		dsn = a.cfg.Database.URL
	}
	if dsn == "" {
		return errors.New("--apply needs --dsn or DATABASE_URL")
	}
	dsn = config.ResolveDSNForDocker(dsn)

	a.logger.Info("Applying migrations",
		zap.String("dir", opts.dir),
		zap.String("dsn", logging.SanitizeConnectionString(dsn)))
	version, err := database.ApplyMigrations(cmd.Context(), dsn, opts.dir, a.logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "database at version %d\n", version)
	return nil
}
