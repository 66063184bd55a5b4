package mysql

import (
	"context"
	"database/sql"
	"fmt"

	gomysql "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-schema/pkg/adapters/datasource"
)

const tableNamesQuery = `
	SELECT TABLE_NAME
	FROM INFORMATION_SCHEMA.TABLES
	WHERE TABLE_SCHEMA = DATABASE() AND TABLE_TYPE = 'BASE TABLE'
	ORDER BY TABLE_NAME`

// Applier applies DDL to MySQL.
type Applier struct {
	datasource.SQLApplier
}

// NewApplier opens dsn (go-sql-driver format, e.g.
// user:pass@tcp(host:3306)/db) and verifies the connection.
func NewApplier(ctx context.Context, dsn string, logger *zap.Logger) (*Applier, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg, err := gomysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	if cfg.DBName == "" {
		return nil, fmt.Errorf("mysql dsn must name a database")
	}

	connector, err := gomysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("create mysql connector: %w", err)
	}
	db := sql.OpenDB(connector)
	if err := datasource.PingWithRetry(ctx, logger, db.PingContext); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping failed: %w", err)
	}

	return &Applier{SQLApplier: datasource.SQLApplier{
		DB:         db,
		Logger:     logger,
		TableQuery: tableNamesQuery,
	}}, nil
}

var _ datasource.Applier = (*Applier)(nil)
