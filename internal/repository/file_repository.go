package repository

import (
	"database/sql"
	"time"

	"github.com/balkarbucket/backend/internal/models"
)

type FileRepository struct {
	db *sql.DB
}

func NewFileRepository(db *sql.DB) *FileRepository {
	return &FileRepository{db: db}
}

const fileColumns = `f.id, f.filename, f.original_name, f.bucket_id, f.size_bytes, f.mime_type, f.file_path, f.url,
	f.metadata, f.uploaded_by, f.api_key_id, f.is_deleted, f.deleted_at, f.created_at, b.name`

func scanFile(row interface{ Scan(...any) error }) (*models.File, error) {
	file := &models.File{}
	var metadata sql.NullString
	err := row.Scan(&file.ID, &file.Filename, &file.OriginalName, &file.BucketID,
		&file.Size, &file.MimeType, &file.FilePath, &file.URL, &metadata,
		&file.UploadedBy, &file.APIKeyID, &file.IsDeleted, &file.DeletedAt,
		&file.CreatedAt, &file.BucketName)
	if err != nil {
		return nil, err
	}
	if metadata.Valid {
		file.Metadata = []byte(metadata.String)
	}
	return file, nil
}

func (r *FileRepository) Create(file *models.File) error {
	var metadata any
	if len(file.Metadata) > 0 {
		metadata = string(file.Metadata)
	}
	_, err := r.db.Exec(`
		INSERT INTO files (id, filename, original_name, bucket_id, size_bytes, mime_type, file_path, url, metadata, uploaded_by, api_key_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, file.ID, file.Filename, file.OriginalName, file.BucketID, file.Size, file.MimeType,
		file.FilePath, file.URL, metadata, file.UploadedBy, file.APIKeyID, file.CreatedAt)
	return err
}

func (r *FileRepository) GetByID(id string) (*models.File, error) {
	return scanFile(r.db.QueryRow(`
		SELECT `+fileColumns+`
		FROM files f JOIN buckets b ON b.id = f.bucket_id
		WHERE f.id = ?
	`, id))
}

type FileFilter struct {
	BucketID string
	Search   string
	// Deleted selects trash contents when true, live files when false.
	Deleted bool
}

func (r *FileRepository) List(filter FileFilter, limit, offset int) ([]*models.File, error) {
	query := `
		SELECT ` + fileColumns + `
		FROM files f JOIN buckets b ON b.id = f.bucket_id
		WHERE f.is_deleted = ?`
	args := []any{filter.Deleted}
	if filter.BucketID != "" {
		query += ` AND f.bucket_id = ?`
		args = append(args, filter.BucketID)
	}
	if filter.Search != "" {
		query += ` AND f.original_name LIKE ?`
		args = append(args, "%"+filter.Search+"%")
	}
	query += ` ORDER BY f.created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []*models.File
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return files, nil
}

func (r *FileRepository) Count(filter FileFilter) (int, error) {
	query := `SELECT COUNT(*) FROM files f WHERE f.is_deleted = ?`
	args := []any{filter.Deleted}
	if filter.BucketID != "" {
		query += ` AND f.bucket_id = ?`
		args = append(args, filter.BucketID)
	}
	if filter.Search != "" {
		query += ` AND f.original_name LIKE ?`
		args = append(args, "%"+filter.Search+"%")
	}
	var count int
	err := r.db.QueryRow(query, args...).Scan(&count)
	return count, err
}

// SoftDelete moves a live file to trash. The is_deleted guard makes the
// transition one-shot: exactly one of any concurrent deletes observes true,
// so bucket counters are decremented exactly once.
func (r *FileRepository) SoftDelete(id string, now time.Time) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE files SET is_deleted = 1, deleted_at = ? WHERE id = ? AND is_deleted = 0
	`, now, id)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// Restore moves a trashed file back to live, guarded the same way as
// SoftDelete so counters are re-added exactly once.
func (r *FileRepository) Restore(id string) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE files SET is_deleted = 0, deleted_at = NULL WHERE id = ? AND is_deleted = 1
	`, id)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *FileRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM files WHERE id = ?`, id)
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

func (r *FileRepository) RecentUploads(limit int) ([]*models.File, error) {
	rows, err := r.db.Query(`
		SELECT `+fileColumns+`
		FROM files f JOIN buckets b ON b.id = f.bucket_id
		WHERE f.is_deleted = 0
		ORDER BY f.created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []*models.File
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return files, nil
}
