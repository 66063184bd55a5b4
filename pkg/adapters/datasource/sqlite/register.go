package sqlite

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-schema/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-schema/pkg/models"
)

func init() {
	datasource.Register(datasource.Registration{
		Info: datasource.ApplierInfo{
			Dialect:     models.DialectSQLite,
			DisplayName: "SQLite",
			Description: "Apply DDL to a local SQLite 3 database file",
		},
		Factory: func(ctx context.Context, dsn string, logger *zap.Logger) (datasource.Applier, error) {
			return NewApplier(ctx, dsn, logger)
		},
	})
}
