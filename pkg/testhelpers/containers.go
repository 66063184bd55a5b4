// Package testhelpers starts throwaway database containers for integration tests.
package testhelpers

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ekaya-inc/ekaya-schema/pkg/models"
)

const (
	PostgresImage = "postgres:16-alpine"
	MySQLImage    = "mysql:8.4"
	MSSQLImage    = "mcr.microsoft.com/mssql/server:2022-latest"

	testPassword = "Test_password1"
)

// TestDB is a running database container and a DSN for it.
type TestDB struct {
	Container testcontainers.Container
	Dialect   models.Dialect
	DSN       string
}

type containerSpec struct {
	dialect models.Dialect
	request testcontainers.ContainerRequest
	port    nat.Port
	dsn     func(host, port string) string
}

type sharedDB struct {
	once sync.Once
	db   *TestDB
	err  error
}

var shared = map[models.Dialect]*sharedDB{
	models.DialectPostgres: {},
	models.DialectMySQL:    {},
	models.DialectMSSQL:    {},
}

var specs = map[models.Dialect]containerSpec{
	models.DialectPostgres: {
		dialect: models.DialectPostgres,
		port:    "5432",
		request: testcontainers.ContainerRequest{
			Image:        PostgresImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       "schema_test",
				"POSTGRES_USER":     "ekaya",
				"POSTGRES_PASSWORD": testPassword,
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		dsn: func(host, port string) string {
			return fmt.Sprintf("postgres://ekaya:%s@%s:%s/schema_test?sslmode=disable", testPassword, host, port)
		},
	},
	models.DialectMySQL: {
		dialect: models.DialectMySQL,
		port:    "3306",
		request: testcontainers.ContainerRequest{
			Image:        MySQLImage,
			ExposedPorts: []string{"3306/tcp"},
			Env: map[string]string{
				"MYSQL_ROOT_PASSWORD": testPassword,
				"MYSQL_DATABASE":      "schema_test",
			},
			WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").
				WithStartupTimeout(120 * time.Second),
		},
		dsn: func(host, port string) string {
			return fmt.Sprintf("root:%s@tcp(%s:%s)/schema_test", testPassword, host, port)
		},
	},
	models.DialectMSSQL: {
		dialect: models.DialectMSSQL,
		port:    "1433",
		request: testcontainers.ContainerRequest{
			Image:        MSSQLImage,
			ExposedPorts: []string{"1433/tcp"},
			Env: map[string]string{
				"ACCEPT_EULA":       "Y",
				"MSSQL_SA_PASSWORD": testPassword,
			},
			WaitingFor: wait.ForLog("SQL Server is now ready for client connections").
				WithStartupTimeout(180 * time.Second),
		},
		dsn: func(host, port string) string {
			return fmt.Sprintf("sqlserver://sa:%s@%s:%s?database=master", testPassword, host, port)
		},
	},
}

// GetTestDB returns a shared container for the dialect. The container is
// created once and reused across all tests in the run. Skipped in -short mode.
func GetTestDB(t *testing.T, dialect models.Dialect) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	s, ok := shared[dialect]
	if !ok {
		t.Fatalf("no test container for dialect %s", dialect)
	}

	s.once.Do(func() {
		s.db, s.err = startContainer(context.Background(), specs[dialect])
	})
	if s.err != nil {
		t.Fatalf("Failed to setup %s test database: %v", dialect, s.err)
	}
	return s.db
}

func startContainer(ctx context.Context, spec containerSpec) (*TestDB, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: spec.request,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, spec.port)
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	return &TestDB{
		Container: container,
		Dialect:   spec.dialect,
		DSN:       spec.dsn(host, port.Port()),
	}, nil
}
