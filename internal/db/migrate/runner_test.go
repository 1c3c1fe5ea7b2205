package migrate

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"testing"

	"medconsult/backend/internal/db"
)

func TestRun_EmptyDSN(t *testing.T) {
	for _, dsn := range []string{"", "   "} {
		err := Run(dsn, Up)
		if err == nil {
			t.Fatalf("Run(%q) should return error", dsn)
		}
		if !strings.Contains(err.Error(), "DATABASE_URL is not set") {
			t.Errorf("error = %q, should mention DATABASE_URL", err)
		}
	}
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in      string
		want    Direction
		wantErr bool
	}{
		{"up", Up, false},
		{"down", Down, false},
		{"", "", true},
		{"UP", "", true},
		{"sideways", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDirection(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseDirection(%q) should fail", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDirection(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseDirection(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRun_InvalidDirection(t *testing.T) {
	err := Run("postgres://localhost/test", Direction("left"))
	if err == nil || !strings.Contains(err.Error(), "direction") {
		t.Fatalf("Run with bad direction = %v, want direction error", err)
	}
}

func TestRun_InvalidDSN(t *testing.T) {
	for _, dsn := range []string{"invalid-dsn", "://localhost/test", "postgres://localhost with spaces/test"} {
		if err := Run(dsn, Up); err == nil {
			t.Errorf("Run with invalid DSN %q should return error", dsn)
		} else if errors.Is(err, ErrNoChange) {
			t.Errorf("Run(%q) should not surface ErrNoChange", dsn)
		}
	}
}

func TestMigrationFS_Pairs(t *testing.T) {
	entries, err := fs.ReadDir(db.MigrationFS, "migrations")
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	ups, downs := map[string]bool{}, map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		if v, ok := strings.CutSuffix(name, ".up.sql"); ok {
			ups[v] = true
		} else if v, ok := strings.CutSuffix(name, ".down.sql"); ok {
			downs[v] = true
		} else {
			t.Errorf("unexpected migration file %q", name)
		}
	}
	if len(ups) == 0 {
		t.Fatal("no up migrations embedded")
	}
	for v := range ups {
		if !downs[v] {
			t.Errorf("migration %s has no down file", v)
		}
	}
}

func TestRun_Integration(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	if err := Run(dsn, Up); err != nil {
		t.Fatalf("Run up: %v", err)
	}
	if err := Run(dsn, Up); err != nil {
		t.Fatalf("second Run up should be a no-op: %v", err)
	}
}
