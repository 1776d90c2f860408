package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

func Initialize(dbPath string) (*sql.DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite handles concurrency differently, but we still set reasonable limits.
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	const maxPingAttempts = 5
	pingDelay := 200 * time.Millisecond
	var pingErr error
	for attempt := 1; attempt <= maxPingAttempts; attempt++ {
		pingErr = db.Ping()
		if pingErr == nil {
			break
		}
		if attempt < maxPingAttempts {
			time.Sleep(pingDelay)
			if pingDelay < 2*time.Second {
				pingDelay *= 2
			}
		}
	}
	if pingErr != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database after %d attempts: %w", maxPingAttempts, pingErr)
	}

	// Enable foreign key enforcement (SQLite has this off by default).
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// WAL mode for better concurrent read/write performance.
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Wait up to 5 seconds when the database is locked by another writer
	// instead of failing immediately with SQLITE_BUSY.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, fmt.Errorf("failed to set busy_timeout: %w", err)
	}

	return db, nil
}

// InitSchema creates all tables and indexes. Safe to call on every startup
// because every statement uses IF NOT EXISTS.
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS api_keys (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			key TEXT UNIQUE NOT NULL,
			permissions TEXT NOT NULL DEFAULT '[]',
			status TEXT NOT NULL DEFAULT 'active',
			rate_limit_enabled INTEGER NOT NULL DEFAULT 0,
			rate_limit_max INTEGER NOT NULL DEFAULT 1000,
			rate_limit_window_ms INTEGER NOT NULL DEFAULT 60000,
			total_requests INTEGER NOT NULL DEFAULT 0,
			total_uploads INTEGER NOT NULL DEFAULT 0,
			storage_used_bytes INTEGER NOT NULL DEFAULT 0,
			error_count INTEGER NOT NULL DEFAULT 0,
			last_used_at DATETIME,
			expires_at DATETIME,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS roles (
			id TEXT PRIMARY KEY,
			name TEXT UNIQUE NOT NULL,
			description TEXT,
			permissions TEXT NOT NULL DEFAULT '[]',
			user_count INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT,
			avatar TEXT,
			role_id TEXT,
			status TEXT NOT NULL DEFAULT 'active',
			last_login_at DATETIME,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (role_id) REFERENCES roles(id) ON DELETE SET NULL
		);

		CREATE TABLE IF NOT EXISTS permissions (
			id TEXT PRIMARY KEY,
			key TEXT UNIQUE NOT NULL,
			name TEXT NOT NULL,
			category TEXT NOT NULL,
			description TEXT
		);

		CREATE TABLE IF NOT EXISTS buckets (
			id TEXT PRIMARY KEY,
			name TEXT UNIQUE NOT NULL,
			region TEXT NOT NULL DEFAULT 'us-east-1',
			storage_class TEXT NOT NULL DEFAULT 'STANDARD',
			is_public INTEGER NOT NULL DEFAULT 0,
			quota_bytes INTEGER,
			used_space_bytes INTEGER NOT NULL DEFAULT 0,
			file_count INTEGER NOT NULL DEFAULT 0,
			owner_id TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (owner_id) REFERENCES users(id) ON DELETE SET NULL
		);

		CREATE TABLE IF NOT EXISTS files (
			id TEXT PRIMARY KEY,
			filename TEXT NOT NULL,
			original_name TEXT NOT NULL,
			bucket_id TEXT NOT NULL,
			size_bytes INTEGER NOT NULL,
			mime_type TEXT NOT NULL,
			file_path TEXT NOT NULL,
			url TEXT NOT NULL,
			metadata TEXT,
			uploaded_by TEXT,
			api_key_id TEXT,
			is_deleted INTEGER NOT NULL DEFAULT 0,
			deleted_at DATETIME,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (bucket_id) REFERENCES buckets(id) ON DELETE CASCADE,
			FOREIGN KEY (api_key_id) REFERENCES api_keys(id) ON DELETE SET NULL
		);

		CREATE TABLE IF NOT EXISTS logs (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			action TEXT NOT NULL,
			details TEXT,
			user_id TEXT,
			api_key_id TEXT,
			ip_address TEXT,
			user_agent TEXT,
			status TEXT NOT NULL DEFAULT 'success',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT 'general',
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS rate_limit_counters (
			scope_key TEXT PRIMARY KEY,
			count INTEGER NOT NULL,
			window_end DATETIME NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_api_keys_key ON api_keys(key);
		CREATE INDEX IF NOT EXISTS idx_api_keys_status ON api_keys(status);
		CREATE INDEX IF NOT EXISTS idx_users_role_id ON users(role_id);
		CREATE INDEX IF NOT EXISTS idx_files_bucket_id ON files(bucket_id);
		CREATE INDEX IF NOT EXISTS idx_files_is_deleted ON files(is_deleted);
		CREATE INDEX IF NOT EXISTS idx_logs_type ON logs(type);
		CREATE INDEX IF NOT EXISTS idx_logs_status ON logs(status);
		CREATE INDEX IF NOT EXISTS idx_logs_created_at ON logs(created_at);
		CREATE INDEX IF NOT EXISTS idx_rate_limit_counters_window_end ON rate_limit_counters(window_end);
	`)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := seedPermissions(db); err != nil {
		return fmt.Errorf("failed to seed permissions: %w", err)
	}
	if err := seedRoles(db); err != nil {
		return fmt.Errorf("failed to seed roles: %w", err)
	}
	if err := seedSettings(db); err != nil {
		return fmt.Errorf("failed to seed settings: %w", err)
	}

	return nil
}

func seedPermissions(db *sql.DB) error {
	seeds := []struct {
		key, name, category, description string
	}{
		{"buckets.create", "Create Bucket", "Buckets", "Create new buckets"},
		{"buckets.read", "Read Bucket", "Buckets", "View bucket details"},
		{"buckets.update", "Update Bucket", "Buckets", "Modify bucket settings"},
		{"buckets.delete", "Delete Bucket", "Buckets", "Remove buckets"},
		{"files.upload", "Upload File", "Files", "Upload files to buckets"},
		{"files.read", "Read File", "Files", "View file metadata"},
		{"files.download", "Download File", "Files", "Download file contents"},
		{"files.delete", "Delete File", "Files", "Remove files"},
		{"api-keys.create", "Create API Key", "API Keys", "Generate new API keys"},
		{"api-keys.read", "Read API Key", "API Keys", "View API key details"},
		{"api-keys.update", "Update API Key", "API Keys", "Modify or revoke API keys"},
		{"api-keys.delete", "Delete API Key", "API Keys", "Remove API keys"},
		{"users.create", "Create User", "Users", "Add new users"},
		{"users.read", "Read User", "Users", "View user information"},
		{"users.update", "Update User", "Users", "Modify user details"},
		{"users.delete", "Delete User", "Users", "Remove users"},
		{"settings.update", "Update Settings", "Settings", "Modify system settings"},
		{"logs.read", "Read Logs", "Observability", "View activity logs"},
		{"stats.read", "Read Stats", "Observability", "View dashboard statistics"},
	}

	for _, s := range seeds {
		_, err := db.Exec(`
			INSERT OR IGNORE INTO permissions (id, key, name, category, description)
			VALUES (?, ?, ?, ?, ?)
		`, uuid.New().String(), s.key, s.name, s.category, s.description)
		if err != nil {
			return err
		}
	}
	return nil
}

func seedRoles(db *sql.DB) error {
	seeds := []struct {
		name, description, permissions string
	}{
		{"Super Admin", "Full system access", `["*"]`},
		{"Admin", "Manage users and buckets", `["buckets.*","files.*","users.read","api-keys.*"]`},
		{"Developer", "API access only", `["buckets.read","files.*","api-keys.*"]`},
		{"User", "Basic access", `["buckets.read","files.read"]`},
	}

	for _, s := range seeds {
		_, err := db.Exec(`
			INSERT OR IGNORE INTO roles (id, name, description, permissions)
			VALUES (?, ?, ?, ?)
		`, uuid.New().String(), s.name, s.description, s.permissions)
		if err != nil {
			return err
		}
	}
	return nil
}

func seedSettings(db *sql.DB) error {
	seeds := []struct {
		key, value, category string
	}{
		{"app_name", `{"name":"Balkar Bucket"}`, "appearance"},
		{"app_logo", `{"url":""}`, "appearance"},
		{"app_color", `{"primary":"#f97316"}`, "appearance"},
		{"alerts", `{"upload_success":true,"upload_error":true,"storage_warning":true}`, "notifications"},
		{"webhooks", `{"enabled":false,"url":"","secret":""}`, "integration"},
	}

	for _, s := range seeds {
		_, err := db.Exec(`
			INSERT OR IGNORE INTO settings (key, value, category) VALUES (?, ?, ?)
		`, s.key, s.value, s.category)
		if err != nil {
			return err
		}
	}
	return nil
}
