package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-schema/pkg/adapters/datasource"
)

const tableNamesQuery = `
	SELECT name
	FROM sqlite_master
	WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
	ORDER BY name`

// Applier applies DDL to a SQLite database file.
type Applier struct {
	datasource.SQLApplier
}

// NewApplier opens the database file at dsn, creating it if needed.
// Foreign key enforcement is turned on for the connection.
func NewApplier(ctx context.Context, dsn string, logger *zap.Logger) (*Applier, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite3", withForeignKeys(dsn))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// PRAGMAs are per connection.
	db.SetMaxOpenConns(1)

	if err := datasource.PingWithRetry(ctx, logger, db.PingContext); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Applier{SQLApplier: datasource.SQLApplier{
		DB:         db,
		Logger:     logger,
		TableQuery: tableNamesQuery,
	}}, nil
}

func withForeignKeys(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys=") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=on"
}

var _ datasource.Applier = (*Applier)(nil)
