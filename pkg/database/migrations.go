// Package database applies generated migration files to a PostgreSQL database.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq" // database/sql driver "postgres"
	"go.uber.org/zap"

	sqlfmt "github.com/ekaya-inc/ekaya-schema/pkg/sql"
)

// ErrMigrationExists is returned when a migration file would be overwritten.
var ErrMigrationExists = errors.New("migration file already exists")

// WriteMigrationFiles writes the up/down pair into dir, creating dir if needed.
// Existing files are never overwritten. Returns the written paths.
func WriteMigrationFiles(dir string, files *sqlfmt.MigrationFiles) ([]string, error) {
	if files == nil {
		return nil, fmt.Errorf("no migration files to write")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create migrations dir: %w", err)
	}

	pairs := []struct{ name, body string }{
		{files.UpName, files.UpSQL},
		{files.DownName, files.DownSQL},
	}
	for _, p := range pairs {
		if _, err := os.Stat(filepath.Join(dir, p.name)); err == nil {
			return nil, fmt.Errorf("%w: %s", ErrMigrationExists, p.name)
		}
	}

	paths := make([]string, 0, len(pairs))
	for _, p := range pairs {
		path := filepath.Join(dir, p.name)
		if err := os.WriteFile(path, []byte(p.body), 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", p.name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// ApplyMigrations opens the PostgreSQL database at dsn and runs every pending
// migration in migrationsPath. Returns the resulting schema version.
func ApplyMigrations(ctx context.Context, dsn, migrationsPath string, logger *zap.Logger) (uint, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return 0, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return 0, fmt.Errorf("failed to ping database: %w", err)
	}
	return RunMigrations(db, migrationsPath, logger)
}

// RunMigrations executes pending database migrations from the specified directory.
// It is idempotent and safe to call multiple times - only pending migrations will be executed.
func RunMigrations(db *sql.DB, migrationsPath string, logger *zap.Logger) (uint, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(migrationsPath)
	if err != nil {
		return 0, fmt.Errorf("resolve migrations path: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return 0, fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+filepath.ToSlash(abs), "postgres", driver)
	if err != nil {
		return 0, fmt.Errorf("failed to create migration instance: %w", err)
	}

	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil {
			logger.Warn("Failed to close migration source", zap.Error(srcErr))
		}
		if dbErr != nil {
			logger.Warn("Failed to close migration database", zap.Error(dbErr))
		}
	}()

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		version, _, _ := m.Version()
		logger.Info("No migrations to apply (database up-to-date)", zap.Uint("version", version))
		return version, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("read migration version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("migration %d left the database dirty", version)
	}
	logger.Info("Applied migrations successfully", zap.Uint("version", version))
	return version, nil
}
