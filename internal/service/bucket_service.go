package service

import (
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/balkarbucket/backend/internal/models"
	"github.com/balkarbucket/backend/internal/repository"
	"github.com/balkarbucket/backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

// Bucket names follow the usual object store rules: lowercase letters,
// digits and hyphens, starting and ending alphanumeric.
var bucketNameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,61}[a-z0-9]$`)

type BucketService struct {
	bucketRepo *repository.BucketRepository
}

func NewBucketService(bucketRepo *repository.BucketRepository) *BucketService {
	return &BucketService{bucketRepo: bucketRepo}
}

type CreateBucketInput struct {
	Name         string
	Region       string
	StorageClass string
	IsPublic     bool
	Quota        *int64
	OwnerID      *string
}

func (s *BucketService) Create(input CreateBucketInput) (*models.Bucket, error) {
	name := strings.ToLower(strings.TrimSpace(input.Name))
	if !bucketNameRe.MatchString(name) {
		return nil, ErrInvalidInput
	}
	if input.Quota != nil && *input.Quota <= 0 {
		return nil, ErrInvalidInput
	}

	bucket := &models.Bucket{
		ID:           uuid.New().String(),
		Name:         name,
		Region:       input.Region,
		StorageClass: input.StorageClass,
		IsPublic:     input.IsPublic,
		Quota:        input.Quota,
		OwnerID:      input.OwnerID,
		CreatedAt:    time.Now().UTC(),
	}
	if bucket.Region == "" {
		bucket.Region = "us-east-1"
	}
	if bucket.StorageClass == "" {
		bucket.StorageClass = "STANDARD"
	}

	if err := s.bucketRepo.Create(bucket); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEntry
		}
		return nil, err
	}

	logger.Info().Str("bucket_id", bucket.ID).Str("name", bucket.Name).Msg("bucket created")
	return bucket, nil
}

func (s *BucketService) Get(id string) (*models.Bucket, error) {
	bucket, err := s.bucketRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBucketNotFound
		}
		return nil, err
	}
	return bucket, nil
}

func (s *BucketService) GetByName(name string) (*models.Bucket, error) {
	bucket, err := s.bucketRepo.GetByName(name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBucketNotFound
		}
		return nil, err
	}
	return bucket, nil
}

func (s *BucketService) List(search string, page, limit int) ([]*models.Bucket, int, error) {
	offset := (page - 1) * limit
	buckets, err := s.bucketRepo.List(search, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.bucketRepo.Count(search)
	if err != nil {
		return nil, 0, err
	}
	return buckets, total, nil
}

type UpdateBucketInput struct {
	IsPublic     *bool
	Quota        *int64
	ClearQuota   bool
	StorageClass *string
	OwnerID      *string
}

func (s *BucketService) Update(id string, input UpdateBucketInput) (*models.Bucket, error) {
	bucket, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if input.IsPublic != nil {
		bucket.IsPublic = *input.IsPublic
	}
	if input.ClearQuota {
		bucket.Quota = nil
	} else if input.Quota != nil {
		if *input.Quota <= 0 {
			return nil, ErrInvalidInput
		}
		bucket.Quota = input.Quota
	}
	if input.StorageClass != nil && *input.StorageClass != "" {
		bucket.StorageClass = *input.StorageClass
	}
	if input.OwnerID != nil {
		bucket.OwnerID = input.OwnerID
	}

	if err := s.bucketRepo.Update(bucket); err != nil {
		return nil, err
	}
	return bucket, nil
}

// Delete removes a bucket. Buckets holding live files are refused; trashed
// files go down with the bucket via the schema's cascade.
func (s *BucketService) Delete(id string) error {
	if _, err := s.Get(id); err != nil {
		return err
	}

	active, err := s.bucketRepo.CountActiveFiles(id)
	if err != nil {
		return err
	}
	if active > 0 {
		return ErrBucketNotEmpty
	}

	if err := s.bucketRepo.Delete(id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrBucketNotFound
		}
		return err
	}
	logger.Info().Str("bucket_id", id).Msg("bucket deleted")
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
