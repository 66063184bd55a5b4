package datasource

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-schema/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-schema/pkg/models"
)

// ApplierProvider creates appliers from the registry.
type ApplierProvider interface {
	// NewApplier opens an applier for the given dialect.
	NewApplier(ctx context.Context, dialect models.Dialect, dsn string) (Applier, error)

	// ListDialects returns info for all registered appliers.
	ListDialects() []ApplierInfo
}

type registryProvider struct {
	logger *zap.Logger
}

// NewApplierProvider returns a provider that uses the global registry.
func NewApplierProvider(logger *zap.Logger) ApplierProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &registryProvider{
		logger: logger.Named("applier"),
	}
}

func (p *registryProvider) NewApplier(ctx context.Context, dialect models.Dialect, dsn string) (Applier, error) {
	factory := GetFactory(dialect)
	if factory == nil {
		return nil, fmt.Errorf("%w: no applier registered for %s", apperrors.ErrUnsupportedDialect, dialect)
	}
	if dsn == "" {
		return nil, fmt.Errorf("a DSN is required to apply %s DDL", dialect)
	}
	return factory(ctx, dsn, p.logger.With(zap.String("dialect", string(dialect))))
}

func (p *registryProvider) ListDialects() []ApplierInfo {
	return RegisteredDialects()
}

// Ensure registryProvider implements ApplierProvider at compile time.
var _ ApplierProvider = (*registryProvider)(nil)
