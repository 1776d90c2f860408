package repository

import (
	"database/sql"
	"time"

	"github.com/balkarbucket/backend/internal/models"
)

type LogRepository struct {
	db *sql.DB
}

func NewLogRepository(db *sql.DB) *LogRepository {
	return &LogRepository{db: db}
}

const logColumns = `id, type, action, details, user_id, api_key_id, ip_address, user_agent, status, created_at`

func scanLog(row interface{ Scan(...any) error }) (*models.LogEntry, error) {
	entry := &models.LogEntry{}
	var details sql.NullString
	err := row.Scan(&entry.ID, &entry.Type, &entry.Action, &details, &entry.UserID,
		&entry.APIKeyID, &entry.IPAddress, &entry.UserAgent, &entry.Status, &entry.CreatedAt)
	if err != nil {
		return nil, err
	}
	if details.Valid {
		entry.Details = []byte(details.String)
	}
	return entry, nil
}

func (r *LogRepository) Insert(entry *models.LogEntry) error {
	var details any
	if len(entry.Details) > 0 {
		details = string(entry.Details)
	}
	_, err := r.db.Exec(`
		INSERT INTO logs (id, type, action, details, user_id, api_key_id, ip_address, user_agent, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.Type, entry.Action, details, entry.UserID, entry.APIKeyID,
		entry.IPAddress, entry.UserAgent, entry.Status, entry.CreatedAt)
	return err
}

type LogFilter struct {
	Type     string
	Status   string
	APIKeyID string
	Since    *time.Time
	Until    *time.Time
}

func (r *LogRepository) List(filter LogFilter, limit, offset int) ([]*models.LogEntry, error) {
	query := `SELECT ` + logColumns + ` FROM logs WHERE 1 = 1`
	args := []any{}
	query, args = applyLogFilter(query, args, filter)
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.LogEntry
	for rows.Next() {
		entry, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *LogRepository) Count(filter LogFilter) (int, error) {
	query := `SELECT COUNT(*) FROM logs WHERE 1 = 1`
	args := []any{}
	query, args = applyLogFilter(query, args, filter)

	var count int
	err := r.db.QueryRow(query, args...).Scan(&count)
	return count, err
}

func applyLogFilter(query string, args []any, filter LogFilter) (string, []any) {
	if filter.Type != "" {
		query += ` AND type = ?`
		args = append(args, filter.Type)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.APIKeyID != "" {
		query += ` AND api_key_id = ?`
		args = append(args, filter.APIKeyID)
	}
	if filter.Since != nil {
		query += ` AND created_at >= ?`
		args = append(args, *filter.Since)
	}
	if filter.Until != nil {
		query += ` AND created_at <= ?`
		args = append(args, *filter.Until)
	}
	return query, args
}

func (r *LogRepository) RecentErrors(limit int) ([]*models.LogEntry, error) {
	rows, err := r.db.Query(`
		SELECT `+logColumns+` FROM logs WHERE status = ? ORDER BY created_at DESC LIMIT ?
	`, models.LogStatusFailed, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.LogEntry
	for rows.Next() {
		entry, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// DeleteOlderThan prunes log rows past the retention window. Returns the
// number of rows removed.
func (r *LogRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM logs WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
