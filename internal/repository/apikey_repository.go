package repository

import (
	"database/sql"
	"time"

	"github.com/balkarbucket/backend/internal/models"
)

type APIKeyRepository struct {
	db *sql.DB
}

func NewAPIKeyRepository(db *sql.DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

const apiKeyColumns = `id, name, key, permissions, status, rate_limit_enabled, rate_limit_max, rate_limit_window_ms,
	total_requests, total_uploads, storage_used_bytes, error_count, last_used_at, expires_at, created_at`

func scanAPIKey(row interface{ Scan(...any) error }) (*models.APIKey, error) {
	key := &models.APIKey{}
	var permissions string
	err := row.Scan(&key.ID, &key.Name, &key.Key, &permissions, &key.Status,
		&key.RateLimitEnabled, &key.RateLimitMax, &key.RateLimitWindow,
		&key.TotalRequests, &key.TotalUploads, &key.StorageUsed, &key.ErrorCount,
		&key.LastUsedAt, &key.ExpiresAt, &key.CreatedAt)
	if err != nil {
		return nil, err
	}
	key.Permissions, err = unmarshalStrings(permissions)
	if err != nil {
		return nil, err
	}
	return key, nil
}

func (r *APIKeyRepository) Create(key *models.APIKey) error {
	permissions, err := marshalStrings(key.Permissions)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(`
		INSERT INTO api_keys (id, name, key, permissions, status, rate_limit_enabled, rate_limit_max, rate_limit_window_ms, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, key.ID, key.Name, key.Key, permissions, key.Status,
		key.RateLimitEnabled, key.RateLimitMax, key.RateLimitWindow, key.ExpiresAt, key.CreatedAt)
	return err
}

func (r *APIKeyRepository) GetByID(id string) (*models.APIKey, error) {
	return scanAPIKey(r.db.QueryRow(`SELECT `+apiKeyColumns+` FROM api_keys WHERE id = ?`, id))
}

// GetByToken looks up a key by its raw credential value regardless of status.
// The caller decides how non-active states are reported.
func (r *APIKeyRepository) GetByToken(token string) (*models.APIKey, error) {
	return scanAPIKey(r.db.QueryRow(`SELECT `+apiKeyColumns+` FROM api_keys WHERE key = ?`, token))
}

func (r *APIKeyRepository) List(status string, limit, offset int) ([]*models.APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		key, err := scanAPIKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

func (r *APIKeyRepository) Count(status string) (int, error) {
	query := `SELECT COUNT(*) FROM api_keys`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	var count int
	err := r.db.QueryRow(query, args...).Scan(&count)
	return count, err
}

func (r *APIKeyRepository) Update(key *models.APIKey) error {
	permissions, err := marshalStrings(key.Permissions)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(`
		UPDATE api_keys
		SET name = ?, permissions = ?, rate_limit_enabled = ?, rate_limit_max = ?, rate_limit_window_ms = ?, expires_at = ?
		WHERE id = ?
	`, key.Name, permissions, key.RateLimitEnabled, key.RateLimitMax, key.RateLimitWindow, key.ExpiresAt, key.ID)
	return err
}

func (r *APIKeyRepository) SetStatus(id, status string) error {
	result, err := r.db.Exec(`UPDATE api_keys SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkExpired transitions a key from active to expired. The status guard
// makes the transition one-shot under concurrent requests: exactly one
// caller observes true.
func (r *APIKeyRepository) MarkExpired(id string) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE api_keys SET status = ? WHERE id = ? AND status = ?
	`, models.APIKeyStatusExpired, id, models.APIKeyStatusActive)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// RecordUsage bumps the request counter and stamps last use. Counters are
// adjusted in SQL rather than read-modify-write so concurrent requests
// never lose increments.
func (r *APIKeyRepository) RecordUsage(id string, now time.Time) error {
	_, err := r.db.Exec(`
		UPDATE api_keys SET total_requests = total_requests + 1, last_used_at = ? WHERE id = ?
	`, now, id)
	return err
}

func (r *APIKeyRepository) AddUpload(id string, sizeBytes int64) error {
	_, err := r.db.Exec(`
		UPDATE api_keys SET total_uploads = total_uploads + 1, storage_used_bytes = storage_used_bytes + ? WHERE id = ?
	`, sizeBytes, id)
	return err
}

// AddStorage re-adds bytes without counting a new upload, used when a
// trashed file is restored.
func (r *APIKeyRepository) AddStorage(id string, sizeBytes int64) error {
	_, err := r.db.Exec(`
		UPDATE api_keys SET storage_used_bytes = storage_used_bytes + ? WHERE id = ?
	`, sizeBytes, id)
	return err
}

// ReleaseStorage subtracts freed bytes, clamping at zero. Returns true when
// the clamp fired, meaning the counter had drifted below the release amount.
func (r *APIKeyRepository) ReleaseStorage(id string, sizeBytes int64) (bool, error) {
	var before int64
	err := r.db.QueryRow(`SELECT storage_used_bytes FROM api_keys WHERE id = ?`, id).Scan(&before)
	if err != nil {
		return false, err
	}
	_, err = r.db.Exec(`
		UPDATE api_keys SET storage_used_bytes = MAX(0, storage_used_bytes - ?) WHERE id = ?
	`, sizeBytes, id)
	if err != nil {
		return false, err
	}
	return before < sizeBytes, nil
}

func (r *APIKeyRepository) IncrementErrors(id string) error {
	_, err := r.db.Exec(`UPDATE api_keys SET error_count = error_count + 1 WHERE id = ?`, id)
	return err
}

func (r *APIKeyRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM api_keys WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
