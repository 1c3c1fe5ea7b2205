// Package dbtest opens a migrated Postgres pool for repository integration tests.
// Tests using it are skipped unless DATABASE_URL is set.
package dbtest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"medconsult/backend/internal/db"
	"medconsult/backend/internal/db/migrate"
)

// Pool migrates the database at DATABASE_URL up and returns a pool closed at test cleanup.
func Pool(t testing.TB) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	if err := migrate.Run(dsn, migrate.Up); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := db.Open(ctx, dsn, db.PoolOptions{MaxConns: 8})
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

// InsertUser writes a minimal PATIENT row with a random id and email and returns the id.
func InsertUser(t testing.TB, pool *pgxpool.Pool) string {
	t.Helper()
	id := uuid.NewString()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO users (id, email, password_hash, full_name, role)
		VALUES ($1, $2, 'x', 'Test User', 'PATIENT')
	`, id, id+"@dbtest.local")
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	return id
}
