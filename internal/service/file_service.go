package service

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/balkarbucket/backend/internal/models"
	"github.com/balkarbucket/backend/internal/repository"
	"github.com/balkarbucket/backend/pkg/logger"
	"github.com/balkarbucket/backend/pkg/sanitize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// sniffSize is the number of leading bytes read for MIME-type detection.
const sniffSize = 3072

type FileService struct {
	fileRepo      *repository.FileRepository
	bucketRepo    *repository.BucketRepository
	apiKeyRepo    *repository.APIKeyRepository
	storagePath   string
	maxUploadSize int64
}

func NewFileService(
	fileRepo *repository.FileRepository,
	bucketRepo *repository.BucketRepository,
	apiKeyRepo *repository.APIKeyRepository,
	storagePath string,
	maxUploadSize int64,
) *FileService {
	return &FileService{
		fileRepo:      fileRepo,
		bucketRepo:    bucketRepo,
		apiKeyRepo:    apiKeyRepo,
		storagePath:   storagePath,
		maxUploadSize: maxUploadSize,
	}
}

type UploadRequest struct {
	BucketID         string
	OriginalFilename string
	// DeclaredMimeType is the client-supplied content type, used only when
	// content sniffing cannot identify the data.
	DeclaredMimeType string
	Size             int64
	Data             io.Reader
	Metadata         json.RawMessage
	UploadedBy       *string
	APIKeyID         *string
}

// Upload stores a blob and its metadata. Quota is reserved atomically
// before any bytes touch disk; every later failure releases the
// reservation so counters stay consistent.
func (s *FileService) Upload(req *UploadRequest) (*models.File, error) {
	if req.Size <= 0 || req.Size > s.maxUploadSize {
		return nil, ErrFileTooLarge
	}

	bucket, err := s.bucketRepo.GetByID(req.BucketID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBucketNotFound
		}
		return nil, err
	}

	reserved, err := s.bucketRepo.ReserveUsage(bucket.ID, req.Size)
	if err != nil {
		return nil, err
	}
	if !reserved {
		return nil, ErrQuotaExceeded
	}

	releaseReservation := func(size int64) {
		clamped, relErr := s.bucketRepo.ReleaseUsage(bucket.ID, size)
		if relErr != nil {
			logger.Error().Err(relErr).Str("bucket_id", bucket.ID).Msg("failed to release reservation")
			return
		}
		if clamped {
			logger.Warn().Str("bucket_id", bucket.ID).Msg("usage counter clamped at zero during release")
		}
	}

	sniffed, reader, err := sniffMimeType(req.Data)
	if err != nil {
		releaseReservation(req.Size)
		return nil, err
	}
	mimeType := sniffed
	if mimeType == "application/octet-stream" && req.DeclaredMimeType != "" {
		mimeType = req.DeclaredMimeType
	}

	now := time.Now().UTC()
	fileID := uuid.New().String()
	storedName := fmt.Sprintf("%d-%s", now.UnixMilli(), sanitize.Filename(req.OriginalFilename))
	bucketDir := filepath.Join(s.storagePath, bucket.ID)
	filePath := filepath.Join(bucketDir, storedName)

	if err := os.MkdirAll(bucketDir, 0750); err != nil {
		releaseReservation(req.Size)
		return nil, err
	}

	// #nosec G304 -- filePath is built from the trusted storage root, a server-generated bucket ID and a sanitized name.
	dst, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		releaseReservation(req.Size)
		return nil, err
	}
	defer dst.Close()

	written, err := io.Copy(dst, io.LimitReader(reader, s.maxUploadSize+1))
	if err != nil {
		removeErr := removeFileIfExists(filePath)
		releaseReservation(req.Size)
		if removeErr != nil {
			return nil, fmt.Errorf("write blob: %w (cleanup failed: %v)", err, removeErr)
		}
		return nil, err
	}
	if written > s.maxUploadSize {
		_ = removeFileIfExists(filePath)
		releaseReservation(req.Size)
		return nil, ErrFileTooLarge
	}

	// The reservation used the declared size; settle the difference against
	// what actually landed on disk. A stream larger than declared must pass
	// the same quota check as the original reservation or the upload fails.
	switch diff := written - req.Size; {
	case diff < 0:
		if err := s.bucketRepo.AdjustUsedSpace(bucket.ID, diff); err != nil {
			logger.Error().Err(err).Str("bucket_id", bucket.ID).Msg("failed to settle reservation")
		}
	case diff > 0:
		extra, err := s.bucketRepo.ReserveAdditionalSpace(bucket.ID, diff)
		if err != nil {
			_ = removeFileIfExists(filePath)
			releaseReservation(req.Size)
			return nil, err
		}
		if !extra {
			_ = removeFileIfExists(filePath)
			releaseReservation(req.Size)
			return nil, ErrQuotaExceeded
		}
	}

	file := &models.File{
		ID:           fileID,
		Filename:     storedName,
		OriginalName: req.OriginalFilename,
		BucketID:     bucket.ID,
		Size:         written,
		MimeType:     mimeType,
		FilePath:     filePath,
		URL:          "/api/files/" + fileID + "/download",
		Metadata:     req.Metadata,
		UploadedBy:   req.UploadedBy,
		APIKeyID:     req.APIKeyID,
		CreatedAt:    now,
		BucketName:   bucket.Name,
	}

	if err := s.fileRepo.Create(file); err != nil {
		removeErr := removeFileIfExists(filePath)
		releaseReservation(written)
		if removeErr != nil {
			return nil, fmt.Errorf("persist file metadata: %w (cleanup failed: %v)", err, removeErr)
		}
		return nil, err
	}

	if req.APIKeyID != nil {
		if err := s.apiKeyRepo.AddUpload(*req.APIKeyID, written); err != nil {
			logger.Warn().Err(err).Str("api_key_id", *req.APIKeyID).Msg("failed to record upload on api key")
		}
	}

	return file, nil
}

func sniffMimeType(data io.Reader) (string, io.Reader, error) {
	buf := make([]byte, sniffSize)
	n, err := io.ReadFull(data, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", nil, err
	}
	buf = buf[:n]
	detected := mimetype.Detect(buf)
	return detected.String(), io.MultiReader(bytes.NewReader(buf), data), nil
}

func (s *FileService) Get(id string) (*models.File, error) {
	file, err := s.fileRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	return file, nil
}

// Open returns a live file's metadata and its blob path, ready to stream.
// Trashed files report gone; a live record whose blob is missing from disk
// reports storage drift instead of a plain not-found.
func (s *FileService) Open(id string) (*models.File, string, error) {
	file, err := s.Get(id)
	if err != nil {
		return nil, "", err
	}
	if file.IsDeleted {
		return nil, "", ErrFileGone
	}
	if _, err := os.Stat(file.FilePath); err != nil {
		if os.IsNotExist(err) {
			logger.Error().Str("file_id", file.ID).Str("path", file.FilePath).Msg("blob missing from storage")
			return nil, "", ErrFileNotFoundOnStorage
		}
		return nil, "", err
	}
	return file, file.FilePath, nil
}

func (s *FileService) List(filter repository.FileFilter, page, limit int) ([]*models.File, int, error) {
	offset := (page - 1) * limit
	files, err := s.fileRepo.List(filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.fileRepo.Count(filter)
	if err != nil {
		return nil, 0, err
	}
	return files, total, nil
}

// SoftDelete moves a file to trash and returns its reserved space. The
// guarded transition in the repository fires at most once, so concurrent
// deletes of the same file release the counters exactly once. The blob
// stays on disk until the file is purged.
func (s *FileService) SoftDelete(id string) error {
	file, err := s.Get(id)
	if err != nil {
		return err
	}
	if file.IsDeleted {
		return ErrFileGone
	}

	moved, err := s.fileRepo.SoftDelete(id, time.Now().UTC())
	if err != nil {
		return err
	}
	if !moved {
		// Another request deleted it first.
		return ErrFileGone
	}

	clamped, err := s.bucketRepo.ReleaseUsage(file.BucketID, file.Size)
	if err != nil {
		return err
	}
	if clamped {
		logger.Warn().Str("bucket_id", file.BucketID).Str("file_id", id).
			Msg("usage counter clamped at zero during delete")
	}

	if file.APIKeyID != nil {
		if clamped, err := s.apiKeyRepo.ReleaseStorage(*file.APIKeyID, file.Size); err != nil {
			logger.Warn().Err(err).Str("api_key_id", *file.APIKeyID).Msg("failed to release api key storage")
		} else if clamped {
			logger.Warn().Str("api_key_id", *file.APIKeyID).Msg("api key storage counter clamped at zero")
		}
	}

	return nil
}

// Restore moves a trashed file back to live, re-reserving its space
// against the bucket quota. Restoration fails when the bucket no longer
// has room.
func (s *FileService) Restore(id string) (*models.File, error) {
	file, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if !file.IsDeleted {
		return file, nil
	}

	reserved, err := s.bucketRepo.ReserveUsage(file.BucketID, file.Size)
	if err != nil {
		return nil, err
	}
	if !reserved {
		return nil, ErrQuotaExceeded
	}

	restored, err := s.fileRepo.Restore(id)
	if err != nil {
		return nil, err
	}
	if !restored {
		// Lost the race with another restore; hand the reservation back.
		if _, err := s.bucketRepo.ReleaseUsage(file.BucketID, file.Size); err != nil {
			logger.Error().Err(err).Str("bucket_id", file.BucketID).Msg("failed to release duplicate reservation")
		}
	}

	if file.APIKeyID != nil && restored {
		if err := s.apiKeyRepo.AddStorage(*file.APIKeyID, file.Size); err != nil {
			logger.Warn().Err(err).Str("api_key_id", *file.APIKeyID).Msg("failed to re-add api key storage")
		}
	}

	file.IsDeleted = false
	file.DeletedAt = nil
	return file, nil
}

// Purge permanently removes a trashed file and its blob. Counters were
// already released at soft-delete time.
func (s *FileService) Purge(id string) error {
	file, err := s.Get(id)
	if err != nil {
		return err
	}
	if !file.IsDeleted {
		return ErrInvalidInput
	}

	if err := removeFileIfExists(file.FilePath); err != nil {
		return err
	}
	if err := s.fileRepo.Delete(id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrFileNotFound
		}
		return err
	}
	logger.Info().Str("file_id", id).Msg("file purged")
	return nil
}

func removeFileIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
