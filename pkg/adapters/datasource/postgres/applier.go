package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-schema/pkg/adapters/datasource"
	sqlfmt "github.com/ekaya-inc/ekaya-schema/pkg/sql"
)

const tableNamesQuery = `
	SELECT table_name
	FROM information_schema.tables
	WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
	ORDER BY table_name`

// Applier applies DDL to PostgreSQL through a pgx pool.
type Applier struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewApplier connects to the database at dsn and verifies it is reachable.
func NewApplier(ctx context.Context, dsn string, logger *zap.Logger) (*Applier, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := datasource.PingWithRetry(ctx, logger, pool.Ping); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping failed: %w", err)
	}
	return &Applier{pool: pool, logger: logger}, nil
}

// Apply runs each statement of script in order.
// Statements run outside a transaction so a failure leaves earlier ones applied.
func (a *Applier) Apply(ctx context.Context, script string) error {
	return datasource.ExecStatements(ctx, sqlfmt.SplitStatements(script), a.logger, func(ctx context.Context, stmt string) error {
		_, err := a.pool.Exec(ctx, stmt)
		return err
	})
}

// TableNames lists base tables in the current schema.
func (a *Applier) TableNames(ctx context.Context) ([]string, error) {
	rows, err := a.pool.Query(ctx, tableNamesQuery)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	return names, nil
}

// Close releases the pool.
func (a *Applier) Close() error {
	a.pool.Close()
	return nil
}

var _ datasource.Applier = (*Applier)(nil)
