package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"dexcollector/config"

	"github.com/lib/pq"
)

// duplicateDatabase is the SQLSTATE of CREATE DATABASE on an existing name.
const duplicateDatabase = "42P04"

// CreateDatabase makes sure cfg.DBName exists, creating it through the
// admin database when needed, and reports whether it did. Another collector
// creating it concurrently is not an error.
func CreateDatabase(cfg config.PostgresConfig) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	admin, err := sql.Open("postgres", cfg.AdminDSN())
	if err != nil {
		return false, fmt.Errorf("open admin connection: %w", err)
	}
	defer admin.Close()

	created, err := ensureDatabase(ctx, admin, cfg.DBName)
	if err != nil {
		return false, fmt.Errorf("ensure database %s: %w", cfg.DBName, err)
	}
	return created, nil
}

func ensureDatabase(ctx context.Context, admin *sql.DB, name string) (bool, error) {
	var exists bool
	row := admin.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)`, name)
	if err := row.Scan(&exists); err != nil {
		return false, fmt.Errorf("lookup: %w", err)
	}
	if exists {
		return false, nil
	}

	if _, err := admin.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(name)); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == duplicateDatabase {
			return false, nil
		}
		return false, fmt.Errorf("create: %w", err)
	}
	return true, nil
}
