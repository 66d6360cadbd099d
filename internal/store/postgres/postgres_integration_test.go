package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mybiom/biom/internal/store"
	"github.com/mybiom/biom/internal/store/sqlstore"
	"github.com/mybiom/biom/internal/store/storetest"
)

// postgresDSN returns BIOM_POSTGRES_DSN, or starts a throwaway container when
// BIOM_TESTCONTAINERS=1. Otherwise the test is skipped.
func postgresDSN(t *testing.T) string {
	t.Helper()
	if dsn := os.Getenv("BIOM_POSTGRES_DSN"); dsn != "" {
		return dsn
	}
	if os.Getenv("BIOM_TESTCONTAINERS") != "1" {
		t.Skip("BIOM_POSTGRES_DSN not set and BIOM_TESTCONTAINERS!=1; skipping postgres store integration test")
	}

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "biom",
			"POSTGRES_PASSWORD": "biom",
			"POSTGRES_DB":       "biom",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)
	return fmt.Sprintf("postgres://biom:biom@%s:%s/biom?sslmode=disable", host, port.Port())
}

// pgStoreMaker opens every store of a run against the same database.
func pgStoreMaker(dsn string) storetest.MakeStore {
	return func(t *testing.T, opts ...sqlstore.Option) store.Store {
		t.Helper()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s, err := Bootstrap(ctx, dsn, opts...)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	}
}

func TestPostgresStore_Compliance(t *testing.T) {
	storetest.Run(t, pgStoreMaker(postgresDSN(t)))
}

func TestOpen_EmptyDSN(t *testing.T) {
	_, err := Open(context.Background(), "")
	require.Error(t, err)
}
