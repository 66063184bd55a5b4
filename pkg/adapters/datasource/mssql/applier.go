package mssql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/microsoft/go-mssqldb" // SQL Server driver
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-schema/pkg/adapters/datasource"
)

const tableNamesQuery = `
	SELECT TABLE_NAME
	FROM INFORMATION_SCHEMA.TABLES
	WHERE TABLE_SCHEMA = SCHEMA_NAME() AND TABLE_TYPE = 'BASE TABLE'
	ORDER BY TABLE_NAME`

// Applier applies DDL to SQL Server.
type Applier struct {
	datasource.SQLApplier
}

// NewApplier opens a sqlserver:// URL or ADO-style connection string.
func NewApplier(ctx context.Context, dsn string, logger *zap.Logger) (*Applier, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlserver: %w", err)
	}
	if err := datasource.PingWithRetry(ctx, logger, db.PingContext); err != nil {
		db.Close()
		return nil, fmt.Errorf("connection test failed: %w", err)
	}

	return &Applier{SQLApplier: datasource.SQLApplier{
		DB:         db,
		Logger:     logger,
		TableQuery: tableNamesQuery,
	}}, nil
}

var _ datasource.Applier = (*Applier)(nil)
