// Package testutil starts throwaway Postgres and Redis instances for integration tests and
// seeds fixture rows.
//
// Set TEST_DATABASE_URL or TEST_REDIS_ADDR to reuse running servers instead of containers
// (run with -p 1 then, since every test resets the schema). Otherwise one container per
// test binary is started on first use and left to the testcontainers reaper. Tests are
// skipped under -short or when Docker is unavailable.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"
	"vote_zone/internal/platform/database"

	"github.com/docker/go-connections/nat"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	pgOnce    sync.Once
	pgDSN     string
	pgErr     error
	redisOnce sync.Once
	redisAddr string
	redisErr  error
)

// PostgresDB returns a connection to an empty, freshly created schema.
func PostgresDB(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping Postgres integration test in short mode")
	}
	ctx := context.Background()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		pgOnce.Do(func() { pgDSN, pgErr = startPostgres(ctx) })
		if pgErr != nil {
			t.Skipf("Skipping integration test, could not start Postgres (is Docker running?): %v", pgErr)
		}
		dsn = pgDSN
	}

	db, err := database.Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.DropSchema(ctx, db))
	require.NoError(t, database.CreateSchema(ctx, db))
	return db
}

// RedisClient returns a client on a flushed database.
func RedisClient(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping Redis integration test in short mode")
	}
	ctx := context.Background()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		redisOnce.Do(func() { redisAddr, redisErr = startRedis(ctx) })
		if redisErr != nil {
			t.Skipf("Skipping integration test, could not start Redis (is Docker running?): %v", redisErr)
		}
		addr = redisAddr
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { rdb.Close() })
	require.NoError(t, rdb.Ping(ctx).Err())
	require.NoError(t, rdb.FlushDB(ctx).Err())
	return rdb
}

func startPostgres(ctx context.Context) (string, error) {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "vote",
			"POSTGRES_PASSWORD": "vote",
			"POSTGRES_DB":       "vote_zone_test",
		},
		// Postgres logs readiness twice: once for the init run and once for the real server.
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	host, port, err := startContainer(ctx, req, "5432")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("postgres://vote:vote@%s:%s/vote_zone_test?sslmode=disable", host, port), nil
}

func startRedis(ctx context.Context) (string, error) {
	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
	}
	host, port, err := startContainer(ctx, req, "6379")
	if err != nil {
		return "", err
	}
	return host + ":" + port, nil
}

func startContainer(ctx context.Context, req testcontainers.ContainerRequest, port string) (host, mappedPort string, err error) {
	// Docker host discovery panics on machines without Docker.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("docker unavailable: %v", r)
		}
	}()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", "", fmt.Errorf("start %s: %w", req.Image, err)
	}
	host, err = container.Host(ctx)
	if err != nil {
		return "", "", fmt.Errorf("host of %s: %w", req.Image, err)
	}
	mapped, err := container.MappedPort(ctx, nat.Port(port))
	if err != nil {
		return "", "", fmt.Errorf("mapped port of %s: %w", req.Image, err)
	}
	return host, mapped.Port(), nil
}
