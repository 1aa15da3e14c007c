// Package testutil starts a PostgreSQL container holding a small AiiDA
// database for integration tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	testcontainers "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/aiidateam/aiida-data-apis/log"
)

const (
	postgresUser     = "postgres"
	postgresPassword = "postgres"
	postgresDatabase = "aiida_test"
)

// Database is a PostgreSQL database for the duration of a test suite.
type Database struct {
	DSN       string
	container testcontainers.Container
}

// StartDatabase starts a PostgreSQL container, or uses the database at
// AIIDA_TEST_DSN when set, and loads the AiiDA schema and fixture rows.
func StartDatabase(ctx context.Context) (*Database, error) {
	database := &Database{DSN: strings.TrimSpace(os.Getenv("AIIDA_TEST_DSN"))}
	if database.DSN == "" {
		container, dsn, err := startPostgresContainer(ctx)
		if err != nil {
			return nil, err
		}
		database.container = container
		database.DSN = dsn
	}

	if err := loadFixture(ctx, database.DSN); err != nil {
		database.Terminate(context.Background())
		return nil, err
	}
	return database, nil
}

// Terminate stops the container, if one was started.
func (d *Database) Terminate(ctx context.Context) {
	if d.container == nil {
		return
	}
	if err := d.container.Terminate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to terminate postgres container: %v\n", err)
	}
}

func startPostgresContainer(ctx context.Context) (testcontainers.Container, string, error) {
	request := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     postgresUser,
			"POSTGRES_PASSWORD": postgresPassword,
			"POSTGRES_DB":       postgresDatabase,
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(2 * time.Minute),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: request,
		Started:          true,
	})
	if err != nil {
		return nil, "", fmt.Errorf("start postgres container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(context.Background())
		return nil, "", fmt.Errorf("resolve container host: %w", err)
	}
	mappedPort, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		_ = container.Terminate(context.Background())
		return nil, "", fmt.Errorf("resolve container port: %w", err)
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		postgresUser, postgresPassword, host, mappedPort.Port(), postgresDatabase)
	return container, dsn, nil
}

func loadFixture(ctx context.Context, dsn string) error {
	pool, err := waitForDatabase(ctx, dsn)
	if err != nil {
		return err
	}
	defer pool.Close()

	for _, stmt := range []string{aiidaSchema, aiidaFixture} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("load aiida fixture: %w", err)
		}
	}
	return nil
}

func waitForDatabase(parent context.Context, dsn string) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(parent, 90*time.Second)
	defer cancel()

	for {
		pool, err := pgxpool.New(ctx, dsn)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return pool, nil
			}
			pool.Close()
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wait for database: %w", err)
		case <-time.After(500 * time.Millisecond):
		}
	}
}

// TestLogger logs to stderr when TEST_TRACE=ON and discards everything
// otherwise.
func TestLogger() log.Logger {
	if strings.ToUpper(os.Getenv("TEST_TRACE")) == "ON" {
		logger, err := zap.NewDevelopment()
		if err != nil {
			panic(err)
		}
		return log.NewZapLogger(logger)
	}

	return log.NewNopLogger()
}
