package postgres_test

import (
	"context"
	"testing"
	"time"

	"dexcollector/config"
	"dexcollector/pkg/storage/postgres"

	"github.com/stretchr/testify/require"
)

func testConfig() config.PostgresConfig {
	return config.PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "yourpw",
		DBName:   "dexcollector_test",
		SSLMode:  "disable",
		TimeZone: "UTC",

		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 1 * time.Hour,
	}
}

// testClient connects to a local Postgres or skips the test.
func testClient(t *testing.T) *postgres.PostgresClient {
	t.Helper()
	client, err := postgres.Initialize(testConfig(), "dev", true)
	if err != nil {
		t.Skipf("postgres unavailable: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// go test -v --run ^TestPostgresInvalidDSN$
func TestPostgresInvalidDSN(t *testing.T) {
	invalidDSN := "host=invalid.invalid port=5432 user=fail password=fail dbname=fail sslmode=disable connect_timeout=1"

	_, err := postgres.NewClient(invalidDSN)
	require.Error(t, err)
}

// go test -v --run ^TestPostgresClientWithConfig$
func TestPostgresClientWithConfig(t *testing.T) {
	client := testClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	require.True(t, client.IsHealthy(ctx), "expected healthy DB connection")
	require.NoError(t, client.AutoMigrate())
}

// go test -v --run ^TestCreateDatabaseIdempotent$
func TestCreateDatabaseIdempotent(t *testing.T) {
	cfg := testConfig()
	if _, err := postgres.CreateDatabase(cfg); err != nil {
		t.Skipf("postgres unavailable: %v", err)
	}

	created, err := postgres.CreateDatabase(cfg)
	require.NoError(t, err)
	require.False(t, created, "second call finds the existing database")
}
