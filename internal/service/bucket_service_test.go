package service

import (
	"errors"
	"testing"
	"time"

	"github.com/balkarbucket/backend/internal/models"
	"github.com/balkarbucket/backend/internal/repository"
	"github.com/balkarbucket/backend/pkg/testutil"
)

func TestBucketService_CreateValidation(t *testing.T) {
	db, _, cleanup := testutil.SetupTest(t)
	defer cleanup()

	svc := NewBucketService(repository.NewBucketRepository(db))

	cases := []struct {
		name   string
		bucket string
		ok     bool
	}{
		{"valid", "my-bucket-01", true},
		{"uppercase folded", "My-Bucket", true},
		{"too short", "ab", false},
		{"leading hyphen", "-bucket", false},
		{"trailing hyphen", "bucket-", false},
		{"underscore", "my_bucket", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(CreateBucketInput{Name: tc.bucket})
			if tc.ok && err != nil {
				t.Errorf("expected %q to be accepted: %v", tc.bucket, err)
			}
			if !tc.ok && !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput for %q, got %v", tc.bucket, err)
			}
		})
	}
}

func TestBucketService_DuplicateName(t *testing.T) {
	db, _, cleanup := testutil.SetupTest(t)
	defer cleanup()

	svc := NewBucketService(repository.NewBucketRepository(db))

	if _, err := svc.Create(CreateBucketInput{Name: "assets"}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := svc.Create(CreateBucketInput{Name: "assets"}); !errors.Is(err, ErrDuplicateEntry) {
		t.Errorf("expected ErrDuplicateEntry, got %v", err)
	}
	// Names are case-folded before the uniqueness check.
	if _, err := svc.Create(CreateBucketInput{Name: "ASSETS"}); !errors.Is(err, ErrDuplicateEntry) {
		t.Errorf("expected ErrDuplicateEntry for folded name, got %v", err)
	}
}

func TestBucketService_DeleteRefusesNonEmpty(t *testing.T) {
	db, _, cleanup := testutil.SetupTest(t)
	defer cleanup()

	bucketRepo := repository.NewBucketRepository(db)
	fileRepo := repository.NewFileRepository(db)
	svc := NewBucketService(bucketRepo)

	bucket, err := svc.Create(CreateBucketInput{Name: "occupied"})
	if err != nil {
		t.Fatalf("create bucket: %v", err)
	}

	file := &models.File{
		ID:           "f1",
		Filename:     "1-a.txt",
		OriginalName: "a.txt",
		BucketID:     bucket.ID,
		Size:         10,
		MimeType:     "text/plain",
		FilePath:     "/tmp/none",
		URL:          "/api/files/f1/download",
		CreatedAt:    time.Now().UTC(),
	}
	if err := fileRepo.Create(file); err != nil {
		t.Fatalf("create file: %v", err)
	}

	if err := svc.Delete(bucket.ID); !errors.Is(err, ErrBucketNotEmpty) {
		t.Fatalf("expected ErrBucketNotEmpty, got %v", err)
	}

	// Trashed files do not block deletion.
	if _, err := fileRepo.SoftDelete("f1", time.Now().UTC()); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if err := svc.Delete(bucket.ID); err != nil {
		t.Fatalf("delete after emptying: %v", err)
	}
	if _, err := svc.Get(bucket.ID); !errors.Is(err, ErrBucketNotFound) {
		t.Errorf("expected ErrBucketNotFound after delete, got %v", err)
	}
}

func TestBucketRepository_ReserveUsage(t *testing.T) {
	db, _, cleanup := testutil.SetupTest(t)
	defer cleanup()

	repo := repository.NewBucketRepository(db)
	quota := int64(100)
	bucket := &models.Bucket{
		ID:        "b1",
		Name:      "limited",
		Region:    "us-east-1",
		Quota:     &quota,
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.Create(bucket); err != nil {
		t.Fatalf("create: %v", err)
	}

	ok, err := repo.ReserveUsage("b1", 60)
	if err != nil || !ok {
		t.Fatalf("first reserve should succeed: ok=%v err=%v", ok, err)
	}
	ok, err = repo.ReserveUsage("b1", 60)
	if err != nil {
		t.Fatalf("second reserve: %v", err)
	}
	if ok {
		t.Error("reserve beyond quota should be refused")
	}

	stored, err := repo.GetByID("b1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.UsedSpace != 60 || stored.FileCount != 1 {
		t.Errorf("refused reserve must not change counters: used=%d count=%d", stored.UsedSpace, stored.FileCount)
	}

	// Exact fit is allowed.
	ok, err = repo.ReserveUsage("b1", 40)
	if err != nil || !ok {
		t.Fatalf("exact-fit reserve should succeed: ok=%v err=%v", ok, err)
	}

	clamped, err := repo.ReleaseUsage("b1", 100)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if clamped {
		t.Error("release within counter should not clamp")
	}
	clamped, err = repo.ReleaseUsage("b1", 500)
	if err != nil {
		t.Fatalf("over-release: %v", err)
	}
	if !clamped {
		t.Error("over-release should report the clamp")
	}
	stored, _ = repo.GetByID("b1")
	if stored.UsedSpace != 0 || stored.FileCount != 0 {
		t.Errorf("counters must clamp at zero: used=%d count=%d", stored.UsedSpace, stored.FileCount)
	}
}

func TestBucketRepository_NilQuotaUnlimited(t *testing.T) {
	db, _, cleanup := testutil.SetupTest(t)
	defer cleanup()

	repo := repository.NewBucketRepository(db)
	bucket := &models.Bucket{ID: "b2", Name: "open", Region: "us-east-1", CreatedAt: time.Now().UTC()}
	if err := repo.Create(bucket); err != nil {
		t.Fatalf("create: %v", err)
	}

	ok, err := repo.ReserveUsage("b2", 1<<40)
	if err != nil || !ok {
		t.Fatalf("nil quota should accept any size: ok=%v err=%v", ok, err)
	}
}
