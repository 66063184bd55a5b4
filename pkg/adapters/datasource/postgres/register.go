package postgres

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-schema/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-schema/pkg/models"
)

func init() {
	datasource.Register(datasource.Registration{
		Info: datasource.ApplierInfo{
			Dialect:     models.DialectPostgres,
			DisplayName: "PostgreSQL",
			Description: "Apply DDL to PostgreSQL 12+, Aurora PostgreSQL, Supabase",
		},
		Factory: func(ctx context.Context, dsn string, logger *zap.Logger) (datasource.Applier, error) {
			return NewApplier(ctx, dsn, logger)
		},
	})
}
