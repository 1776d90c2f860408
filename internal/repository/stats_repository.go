package repository

import (
	"database/sql"

	"github.com/balkarbucket/backend/internal/models"
)

// StatsRepository serves the aggregate queries behind the dashboard.
type StatsRepository struct {
	db *sql.DB
}

func NewStatsRepository(db *sql.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

type StorageTotals struct {
	QuotaTotal int64
	UsedTotal  int64
}

func (r *StatsRepository) StorageTotals() (*StorageTotals, error) {
	totals := &StorageTotals{}
	err := r.db.QueryRow(`
		SELECT COALESCE(SUM(quota_bytes), 0), COALESCE(SUM(used_space_bytes), 0) FROM buckets
	`).Scan(&totals.QuotaTotal, &totals.UsedTotal)
	if err != nil {
		return nil, err
	}
	return totals, nil
}

type FileTotals struct {
	Live    int
	Trashed int
}

func (r *StatsRepository) FileTotals() (*FileTotals, error) {
	totals := &FileTotals{}
	err := r.db.QueryRow(`
		SELECT
			COALESCE(SUM(CASE WHEN is_deleted = 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN is_deleted = 1 THEN 1 ELSE 0 END), 0)
		FROM files
	`).Scan(&totals.Live, &totals.Trashed)
	if err != nil {
		return nil, err
	}
	return totals, nil
}

type BucketTotals struct {
	Total   int
	Public  int
	Private int
}

func (r *StatsRepository) BucketTotals() (*BucketTotals, error) {
	totals := &BucketTotals{}
	err := r.db.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN is_public = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN is_public = 0 THEN 1 ELSE 0 END), 0)
		FROM buckets
	`).Scan(&totals.Total, &totals.Public, &totals.Private)
	if err != nil {
		return nil, err
	}
	return totals, nil
}

type APIKeyTotals struct {
	Active int
	Total  int
}

func (r *StatsRepository) APIKeyTotals() (*APIKeyTotals, error) {
	totals := &APIKeyTotals{}
	err := r.db.QueryRow(`
		SELECT
			COALESCE(SUM(CASE WHEN status = 'active' THEN 1 ELSE 0 END), 0),
			COUNT(*)
		FROM api_keys
	`).Scan(&totals.Active, &totals.Total)
	if err != nil {
		return nil, err
	}
	return totals, nil
}

func (r *StatsRepository) TopBuckets(limit int) ([]*models.Bucket, error) {
	rows, err := r.db.Query(`
		SELECT `+bucketColumns+` FROM buckets ORDER BY used_space_bytes DESC LIMIT ?
	`, limit)
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

func (r *StatsRepository) TopAPIKeys(limit int) ([]*models.APIKey, error) {
	rows, err := r.db.Query(`
		SELECT `+apiKeyColumns+` FROM api_keys ORDER BY total_requests DESC LIMIT ?
	`, limit)
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
