package repository

import (
	"database/sql"

	"github.com/balkarbucket/backend/internal/models"
)

type BucketRepository struct {
	db *sql.DB
}

func NewBucketRepository(db *sql.DB) *BucketRepository {
	return &BucketRepository{db: db}
}

const bucketColumns = `id, name, region, storage_class, is_public, quota_bytes, used_space_bytes, file_count, owner_id, created_at`

func scanBucket(row interface{ Scan(...any) error }) (*models.Bucket, error) {
	bucket := &models.Bucket{}
	err := row.Scan(&bucket.ID, &bucket.Name, &bucket.Region, &bucket.StorageClass,
		&bucket.IsPublic, &bucket.Quota, &bucket.UsedSpace, &bucket.FileCount,
		&bucket.OwnerID, &bucket.CreatedAt)
	if err != nil {
		return nil, err
	}
	return bucket, nil
}

func (r *BucketRepository) Create(bucket *models.Bucket) error {
	_, err := r.db.Exec(`
		INSERT INTO buckets (id, name, region, storage_class, is_public, quota_bytes, owner_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, bucket.ID, bucket.Name, bucket.Region, bucket.StorageClass, bucket.IsPublic,
		bucket.Quota, bucket.OwnerID, bucket.CreatedAt)
	return err
}

func (r *BucketRepository) GetByID(id string) (*models.Bucket, error) {
	return scanBucket(r.db.QueryRow(`SELECT `+bucketColumns+` FROM buckets WHERE id = ?`, id))
}

func (r *BucketRepository) GetByName(name string) (*models.Bucket, error) {
	return scanBucket(r.db.QueryRow(`SELECT `+bucketColumns+` FROM buckets WHERE name = ?`, name))
}

func (r *BucketRepository) List(search string, limit, offset int) ([]*models.Bucket, error) {
	query := `SELECT ` + bucketColumns + ` FROM buckets`
	args := []any{}
	if search != "" {
		query += ` WHERE name LIKE ?`
		args = append(args, "%"+search+"%")
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var buckets []*models.Bucket
	for rows.Next() {
		bucket, err := scanBucket(rows)
		if err != nil {
			return nil, err
		}
		buckets = append(buckets, bucket)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return buckets, nil
}

func (r *BucketRepository) Count(search string) (int, error) {
	query := `SELECT COUNT(*) FROM buckets`
	args := []any{}
	if search != "" {
		query += ` WHERE name LIKE ?`
		args = append(args, "%"+search+"%")
	}
	var count int
	err := r.db.QueryRow(query, args...).Scan(&count)
	return count, err
}

func (r *BucketRepository) Update(bucket *models.Bucket) error {
	_, err := r.db.Exec(`
		UPDATE buckets SET name = ?, region = ?, storage_class = ?, is_public = ?, quota_bytes = ?, owner_id = ?
		WHERE id = ?
	`, bucket.Name, bucket.Region, bucket.StorageClass, bucket.IsPublic, bucket.Quota, bucket.OwnerID, bucket.ID)
	return err
}

func (r *BucketRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM buckets WHERE id = ?`, id)
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

// ReserveUsage atomically claims space and a file slot. The quota check and
// the increment happen in a single UPDATE so concurrent uploads cannot
// overshoot the quota. Returns false when the bucket has too little room;
// a NULL quota means unlimited.
func (r *BucketRepository) ReserveUsage(id string, sizeBytes int64) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE buckets
		SET used_space_bytes = used_space_bytes + ?, file_count = file_count + 1
		WHERE id = ? AND (quota_bytes IS NULL OR quota_bytes - used_space_bytes >= ?)
	`, sizeBytes, id, sizeBytes)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ReleaseUsage returns reserved space and a file slot, clamping both at
// zero. Returns true when either counter would have gone negative.
func (r *BucketRepository) ReleaseUsage(id string, sizeBytes int64) (bool, error) {
	var usedSpace, fileCount int64
	err := r.db.QueryRow(`SELECT used_space_bytes, file_count FROM buckets WHERE id = ?`, id).
		Scan(&usedSpace, &fileCount)
	if err != nil {
		return false, err
	}
	_, err = r.db.Exec(`
		UPDATE buckets
		SET used_space_bytes = MAX(0, used_space_bytes - ?), file_count = MAX(0, file_count - 1)
		WHERE id = ?
	`, sizeBytes, id)
	if err != nil {
		return false, err
	}
	return usedSpace < sizeBytes || fileCount < 1, nil
}

// AdjustUsedSpace moves the byte counter by delta without touching the
// file slot, clamped at zero. Used to settle the difference between a
// declared upload size and what actually landed on disk.
func (r *BucketRepository) AdjustUsedSpace(id string, delta int64) error {
	_, err := r.db.Exec(`
		UPDATE buckets SET used_space_bytes = MAX(0, used_space_bytes + ?) WHERE id = ?
	`, delta, id)
	return err
}

// ReserveAdditionalSpace claims extra bytes against the quota without
// taking another file slot, for uploads that turn out larger than their
// declared size. Same single-UPDATE quota check as ReserveUsage; returns
// false when the bucket has no room for the extra bytes.
func (r *BucketRepository) ReserveAdditionalSpace(id string, sizeBytes int64) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE buckets
		SET used_space_bytes = used_space_bytes + ?
		WHERE id = ? AND (quota_bytes IS NULL OR quota_bytes - used_space_bytes >= ?)
	`, sizeBytes, id, sizeBytes)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// CountActiveFiles counts files in a bucket that are not soft-deleted.
func (r *BucketRepository) CountActiveFiles(id string) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM files WHERE bucket_id = ? AND is_deleted = 0
	`, id).Scan(&count)
	return count, err
}
