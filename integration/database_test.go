//go:build database

package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// exerciseBackends runs the store lifecycle against one database for both stores.
func exerciseBackends(t *testing.T, backend, connStr string) {
	seriesPath, eventsPath, questionPath := writeFixtures(t)
	env := []string{
		"CGMLENS_CACHE_BACKEND=" + backend,
		"CGMLENS_CACHE_DB_CONNECT=" + connStr,
		"CGMLENS_HISTORY_BACKEND=" + backend,
		"CGMLENS_HISTORY_DB_CONNECT=" + connStr,
	}

	_, err := runCommand(t, env, "cache", "clear")
	require.NoError(t, err)

	_, err = runCommand(t, env, "history", "clear")
	require.NoError(t, err)

	_, err = runCommand(t, env, "history", "migrate")
	require.NoError(t, err)

	// Twice, so the second quality analysis is served from the cache
	for range 2 {
		_, err = runCommand(t, env, "evaluate", "--series", seriesPath, "--events", eventsPath, "--question", questionPath)
		require.NoError(t, err)
	}

	out, err := runCommand(t, env, "cache", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Total Entries: 1")
	assert.Contains(t, out, "Distinct Series: 1")

	out, err = runCommand(t, env, "history", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Total Runs: 2")

	exportBase := t.TempDir() + "/history"
	_, err = runCommand(t, env, "history", "export", "--output-file", exportBase)
	require.NoError(t, err)
	assert.FileExists(t, exportBase+".verdicts.parquet")
}

// TestStoresWithMySQL tests the cgmlens CLI with a MySQL backend.
func TestStoresWithMySQL(t *testing.T) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mysql:8",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "secret123",
			"MYSQL_DATABASE":      "cgmlens",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(60 * time.Second),
	}
	mysqlC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = mysqlC.Terminate(ctx) }()

	host, err := mysqlC.Host(ctx)
	require.NoError(t, err)
	port, err := mysqlC.MappedPort(ctx, "3306")
	require.NoError(t, err)

	connStr := fmt.Sprintf("root:secret123@tcp(%s:%s)/cgmlens?parseTime=true", host, port.Port())
	exerciseBackends(t, "mysql", connStr)
}

// TestStoresWithPostgres tests the cgmlens CLI with a PostgreSQL backend.
func TestStoresWithPostgres(t *testing.T) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_HOST_AUTH_METHOD": "trust",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = pgC.Terminate(ctx) }()

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf("host=%s port=%s user=postgres dbname=postgres sslmode=disable", host, port.Port())
	exerciseBackends(t, "postgresql", connStr)
}
