package datasource

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-schema/pkg/models"
)

// ApplierInfo describes a registered applier for discovery.
type ApplierInfo struct {
	Dialect     models.Dialect `json:"dialect"`      // "postgresql", "mssql"
	DisplayName string         `json:"display_name"` // "PostgreSQL", "Microsoft SQL Server"
	Description string         `json:"description"`
}

// ApplierFactory opens an Applier for a DSN.
type ApplierFactory func(ctx context.Context, dsn string, logger *zap.Logger) (Applier, error)

// Registration contains info + factory for creating appliers.
type Registration struct {
	Info    ApplierInfo
	Factory ApplierFactory
}

var (
	registryMu sync.RWMutex
	registry   = make(map[models.Dialect]Registration)
)

// Register is called by each applier's init() function.
// Thread-safe for concurrent init() calls.
func Register(reg Registration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Info.Dialect] = reg
}

// RegisteredDialects returns info for all registered appliers, ordered by dialect.
func RegisteredDialects() []ApplierInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]ApplierInfo, 0, len(registry))
	for _, reg := range registry {
		result = append(result, reg.Info)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Dialect < result[j].Dialect })
	return result
}

// GetFactory returns the factory for a dialect.
// Returns nil if the dialect is not registered.
func GetFactory(dialect models.Dialect) ApplierFactory {
	registryMu.RLock()
	defer registryMu.RUnlock()

	if reg, ok := registry[dialect]; ok {
		return reg.Factory
	}
	return nil
}

// IsRegistered checks if an applier is available for a dialect.
func IsRegistered(dialect models.Dialect) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[dialect]
	return ok
}
