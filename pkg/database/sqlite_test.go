package database

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInitSchemaIdempotent(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "bucketd-db-test-*")
	if err != nil {
		t.Fatalf("create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	db, err := Initialize(filepath.Join(tmpDir, "test.db"))
	if err != nil {
		t.Fatalf("initialize database: %v", err)
	}
	defer db.Close()

	// Schema init must be safe to repeat on every startup.
	for i := 0; i < 2; i++ {
		if err := InitSchema(db); err != nil {
			t.Fatalf("init schema (run %d): %v", i+1, err)
		}
	}

	var permCount int
	if err := db.QueryRow(`SELECT COUNT(*) FROM permissions`).Scan(&permCount); err != nil {
		t.Fatalf("count permissions: %v", err)
	}
	if permCount != 19 {
		t.Errorf("expected 19 seeded permissions, got %d", permCount)
	}

	var roleCount int
	if err := db.QueryRow(`SELECT COUNT(*) FROM roles`).Scan(&roleCount); err != nil {
		t.Fatalf("count roles: %v", err)
	}
	if roleCount != 4 {
		t.Errorf("expected 4 seeded roles, got %d", roleCount)
	}

	var webhooks string
	if err := db.QueryRow(`SELECT value FROM settings WHERE key = 'webhooks'`).Scan(&webhooks); err != nil {
		t.Fatalf("read webhooks setting: %v", err)
	}
	if webhooks == "" {
		t.Error("expected webhooks setting to be seeded")
	}
}

func TestInitializeCreatesDirectory(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "bucketd-db-test-*")
	if err != nil {
		t.Fatalf("create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	dbPath := filepath.Join(tmpDir, "nested", "dir", "test.db")
	db, err := Initialize(dbPath)
	if err != nil {
		t.Fatalf("initialize database in nested dir: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(filepath.Dir(dbPath)); err != nil {
		t.Errorf("expected database directory to exist: %v", err)
	}
}
