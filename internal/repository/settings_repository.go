package repository

import (
	"database/sql"
	"time"

	"github.com/balkarbucket/backend/internal/models"
)

type SettingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

func (r *SettingsRepository) Get(key string) (*models.Setting, error) {
	setting := &models.Setting{}
	var value string
	err := r.db.QueryRow(`
		SELECT key, value, category, updated_at FROM settings WHERE key = ?
	`, key).Scan(&setting.Key, &value, &setting.Category, &setting.UpdatedAt)
	if err != nil {
		return nil, err
	}
	setting.Value = []byte(value)
	return setting, nil
}

func (r *SettingsRepository) GetAll(category string) ([]*models.Setting, error) {
	query := `SELECT key, value, category, updated_at FROM settings`
	args := []any{}
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY key`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var settings []*models.Setting
	for rows.Next() {
		setting := &models.Setting{}
		var value string
		if err := rows.Scan(&setting.Key, &value, &setting.Category, &setting.UpdatedAt); err != nil {
			return nil, err
		}
		setting.Value = []byte(value)
		settings = append(settings, setting)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return settings, nil
}

// Upsert writes a setting. An empty category keeps the stored category on
// update and falls back to "general" when the row is new.
func (r *SettingsRepository) Upsert(setting *models.Setting) error {
	_, err := r.db.Exec(`
		INSERT INTO settings (key, value, category, updated_at)
		VALUES (?, ?, COALESCE(NULLIF(?, ''), 'general'), ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			category = CASE WHEN ? = '' THEN settings.category ELSE excluded.category END,
			updated_at = excluded.updated_at
	`, setting.Key, string(setting.Value), setting.Category, time.Now().UTC(), setting.Category)
	return err
}
