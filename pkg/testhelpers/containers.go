package testhelpers

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/database"
)

const (
	// PostgresImage backs both the postgres adapter tests and the run-history store.
	PostgresImage = "postgres:16-alpine"
	// SQLServerImage is the SQL Server edition used by the mssql adapter tests.
	SQLServerImage = "mcr.microsoft.com/mssql/server:2022-latest"

	postgresPassword  = "test_password"
	sqlServerPassword = "Str0ng!Passw0rd"
)

// TestDB holds a shared PostgreSQL container and connection pool.
type TestDB struct {
	Container testcontainers.Container
	Pool      *pgxpool.Pool
	ConnStr   string
	Host      string
	Port      int
}

// DatasourceConfig returns the generic config map the postgres adapter consumes.
func (db *TestDB) DatasourceConfig() map[string]any {
	return map[string]any{
		"host":     db.Host,
		"port":     db.Port,
		"user":     "ekaya",
		"password": postgresPassword,
		"database": "test_data",
		"ssl_mode": "disable",
	}
}

var (
	sharedTestDB     *TestDB
	sharedTestDBOnce sync.Once
	sharedTestDBErr  error
)

// GetTestDB returns a shared PostgreSQL container for integration tests.
// The container is created once and reused across all tests in the run.
func GetTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedTestDBOnce.Do(func() {
		sharedTestDB, sharedTestDBErr = setupTestDB()
	})

	if sharedTestDBErr != nil {
		t.Fatalf("Failed to setup test database: %v", sharedTestDBErr)
	}

	return sharedTestDB
}

func setupTestDB() (*TestDB, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        PostgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "test_data",
			"POSTGRES_USER":     "ekaya",
			"POSTGRES_PASSWORD": postgresPassword,
		},
		// The server restarts once after init scripts; wait for the second start
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}

	host, port, err := hostPort(ctx, container, "5432")
	if err != nil {
		return nil, err
	}

	connStr := fmt.Sprintf("postgres://ekaya:%s@%s:%d/test_data?sslmode=disable",
		postgresPassword, host, port)

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection with retry
	for i := 0; i < 10; i++ {
		if err := pool.Ping(ctx); err == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}

	return &TestDB{
		Container: container,
		Pool:      pool,
		ConnStr:   connStr,
		Host:      host,
		Port:      port,
	}, nil
}

// HistoryDB holds the run-history database with migrations applied.
// Use this for testing repositories and services against a real database.
type HistoryDB struct {
	DB      *database.DB
	ConnStr string
}

var (
	sharedHistoryDB     *HistoryDB
	sharedHistoryDBOnce sync.Once
	sharedHistoryDBErr  error
)

// GetHistoryDB returns a shared run-history database for integration tests.
// It lives in the same container as GetTestDB and has migrations applied.
func GetHistoryDB(t *testing.T) *HistoryDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	// Ensure test container is running first
	testDB := GetTestDB(t)

	sharedHistoryDBOnce.Do(func() {
		sharedHistoryDB, sharedHistoryDBErr = setupHistoryDB(testDB)
	})

	if sharedHistoryDBErr != nil {
		t.Fatalf("Failed to setup history database: %v", sharedHistoryDBErr)
	}

	return sharedHistoryDB
}

func setupHistoryDB(testDB *TestDB) (*HistoryDB, error) {
	ctx := context.Background()

	if _, err := testDB.Pool.Exec(ctx, "CREATE DATABASE sqlrunner_history_test"); err != nil {
		return nil, fmt.Errorf("failed to create history database: %w", err)
	}

	connStr := fmt.Sprintf("postgres://ekaya:%s@%s:%d/sqlrunner_history_test?sslmode=disable",
		postgresPassword, testDB.Host, testDB.Port)

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            connStr,
		MaxConnections: 5,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to history database: %w", err)
	}

	sqlDB, err := database.OpenMigrationDB(connStr)
	if err != nil {
		return nil, err
	}
	defer sqlDB.Close()

	if err := database.RunMigrations(sqlDB, MigrationsPath(), zap.NewNop()); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &HistoryDB{
		DB:      db,
		ConnStr: connStr,
	}, nil
}

// MigrationsPath returns the absolute path of the repository's migrations folder.
func MigrationsPath() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations")
}

// SQLServer holds a shared SQL Server container.
type SQLServer struct {
	Container testcontainers.Container
	Host      string
	Port      int
}

// DatasourceConfig returns the generic config map the mssql adapter consumes.
func (s *SQLServer) DatasourceConfig() map[string]any {
	return map[string]any{
		"host":                     s.Host,
		"port":                     s.Port,
		"database":                 "master",
		"user":                     "sa",
		"password":                 sqlServerPassword,
		"encrypt":                  false,
		"trust_server_certificate": true,
	}
}

var (
	sharedSQLServer     *SQLServer
	sharedSQLServerOnce sync.Once
	sharedSQLServerErr  error
)

// GetSQLServer returns a shared SQL Server container for integration tests.
func GetSQLServer(t *testing.T) *SQLServer {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedSQLServerOnce.Do(func() {
		sharedSQLServer, sharedSQLServerErr = setupSQLServer()
	})

	if sharedSQLServerErr != nil {
		t.Fatalf("Failed to setup SQL Server: %v", sharedSQLServerErr)
	}

	return sharedSQLServer
}

func setupSQLServer() (*SQLServer, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        SQLServerImage,
		ExposedPorts: []string{"1433/tcp"},
		Env: map[string]string{
			"ACCEPT_EULA":       "Y",
			"MSSQL_SA_PASSWORD": sqlServerPassword,
			"MSSQL_PID":         "Developer",
		},
		WaitingFor: wait.ForLog("SQL Server is now ready for client connections").
			WithStartupTimeout(120 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start SQL Server container: %w", err)
	}

	host, port, err := hostPort(ctx, container, "1433")
	if err != nil {
		return nil, err
	}

	return &SQLServer{
		Container: container,
		Host:      host,
		Port:      port,
	}, nil
}

func hostPort(ctx context.Context, container testcontainers.Container, containerPort string) (string, int, error) {
	host, err := container.Host(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("failed to get container host: %w", err)
	}

	mapped, err := container.MappedPort(ctx, containerPort)
	if err != nil {
		return "", 0, fmt.Errorf("failed to get container port: %w", err)
	}

	port, err := strconv.Atoi(mapped.Port())
	if err != nil {
		return "", 0, fmt.Errorf("invalid mapped port %q: %w", mapped.Port(), err)
	}
	return host, port, nil
}
