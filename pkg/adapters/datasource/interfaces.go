package datasource

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-schema/pkg/retry"
	sqlfmt "github.com/ekaya-inc/ekaya-schema/pkg/sql"
)

// Applier executes generated DDL against a live database.
// Each implementation owns its connection and must be closed when done.
type Applier interface {
	// Apply splits script into statements and executes them in order.
	// Execution stops at the first failing statement.
	Apply(ctx context.Context, script string) error

	// TableNames returns the base tables visible to the connection, sorted.
	TableNames(ctx context.Context) ([]string, error)

	// Close releases the database connection.
	Close() error
}

// StatementError reports which statement of a script failed.
type StatementError struct {
	Index     int
	Statement string
	Err       error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("statement %d failed: %v", e.Index+1, e.Err)
}

func (e *StatementError) Unwrap() error {
	return e.Err
}

// SQLApplier is an Applier over database/sql. The mysql, mssql and sqlite
// appliers embed it and only supply the table listing query.
type SQLApplier struct {
	DB         *sql.DB
	Logger     *zap.Logger
	TableQuery string
}

// Apply implements Applier.
func (a *SQLApplier) Apply(ctx context.Context, script string) error {
	return ExecStatements(ctx, sqlfmt.SplitStatements(script), a.Logger, func(ctx context.Context, stmt string) error {
		_, err := a.DB.ExecContext(ctx, stmt)
		return err
	})
}

// TableNames implements Applier.
func (a *SQLApplier) TableNames(ctx context.Context) ([]string, error) {
	rows, err := a.DB.QueryContext(ctx, a.TableQuery)
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

// Close implements Applier.
func (a *SQLApplier) Close() error {
	return a.DB.Close()
}

// ExecStatements runs statements in order through exec, wrapping the first
// failure in a StatementError.
func ExecStatements(ctx context.Context, statements []string, logger *zap.Logger, exec func(context.Context, string) error) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	for i, stmt := range statements {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := exec(ctx, stmt); err != nil {
			return &StatementError{Index: i, Statement: stmt, Err: err}
		}
	}
	logger.Debug("Applied DDL script", zap.Int("statements", len(statements)))
	return nil
}

// PingWithRetry calls ping until it succeeds, backing off while the error
// looks transient (server still starting, connection refused).
func PingWithRetry(ctx context.Context, logger *zap.Logger, ping func(context.Context) error) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	attempt := 0
	return retry.DoIfRetryable(ctx, retry.DefaultConfig(), func() error {
		attempt++
		err := ping(ctx)
		if err != nil && retry.IsRetryable(err) {
			logger.Debug("Database not ready, retrying", zap.Int("attempt", attempt), zap.Error(err))
		}
		return err
	})
}
