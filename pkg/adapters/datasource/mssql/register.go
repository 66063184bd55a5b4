package mssql

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-schema/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-schema/pkg/models"
)

func init() {
	datasource.Register(datasource.Registration{
		Info: datasource.ApplierInfo{
			Dialect:     models.DialectMSSQL,
			DisplayName: "Microsoft SQL Server",
			Description: "Apply DDL to SQL Server 2019+, Azure SQL Database",
		},
		Factory: func(ctx context.Context, dsn string, logger *zap.Logger) (datasource.Applier, error) {
			return NewApplier(ctx, dsn, logger)
		},
	})
}
