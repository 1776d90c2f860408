package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/balkarbucket/backend/internal/models"
	"github.com/balkarbucket/backend/internal/repository"
	"github.com/balkarbucket/backend/internal/service"
	"github.com/balkarbucket/backend/pkg/testutil"
	"github.com/gofiber/fiber/v2"
)

func newUploadApp(t *testing.T) (*fiber.App, *repository.BucketRepository, func()) {
	t.Helper()
	db, cfg, cleanup := testutil.SetupTest(t)

	fileRepo := repository.NewFileRepository(db)
	bucketRepo := repository.NewBucketRepository(db)
	apiKeyRepo := repository.NewAPIKeyRepository(db)
	logRepo := repository.NewLogRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	fileSvc := service.NewFileService(fileRepo, bucketRepo, apiKeyRepo, cfg.StoragePath, 10*1024*1024)
	logSvc := service.NewLogService(logRepo)
	webhookSvc := service.NewWebhookService(settingsRepo)
	fileHandler := NewFileHandler(fileSvc, logSvc, webhookSvc)

	app := fiber.New()
	app.Post("/upload", fileHandler.Upload)
	return app, bucketRepo, cleanup
}

func multipartBody(t *testing.T, bucketID string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("bucket_id", bucketID); err != nil {
		t.Fatalf("write field: %v", err)
	}
	for name, content := range files {
		part, err := writer.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func TestFileUpload_MultipleFiles(t *testing.T) {
	app, bucketRepo, cleanup := newUploadApp(t)
	defer cleanup()

	bucket := &models.Bucket{
		ID:           "b-multi",
		Name:         "multi",
		Region:       "us-east-1",
		StorageClass: "STANDARD",
		CreatedAt:    time.Now().UTC(),
	}
	if err := bucketRepo.Create(bucket); err != nil {
		t.Fatalf("create bucket: %v", err)
	}

	body, contentType := multipartBody(t, bucket.ID, map[string][]byte{
		"a.txt": []byte("first file"),
		"b.txt": []byte("second file"),
	})
	req := httptest.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	got, err := bucketRepo.GetByID(bucket.ID)
	if err != nil {
		t.Fatalf("get bucket: %v", err)
	}
	if got.FileCount != 2 {
		t.Errorf("expected file_count 2, got %d", got.FileCount)
	}
	if got.UsedSpace != int64(len("first file")+len("second file")) {
		t.Errorf("unexpected used space %d", got.UsedSpace)
	}
}

func TestFileUpload_PartialFailureIsReported(t *testing.T) {
	app, bucketRepo, cleanup := newUploadApp(t)
	defer cleanup()

	// Quota fits the first file but not the second.
	quota := int64(12)
	bucket := &models.Bucket{
		ID:           "b-tight",
		Name:         "tight",
		Region:       "us-east-1",
		StorageClass: "STANDARD",
		Quota:        &quota,
		CreatedAt:    time.Now().UTC(),
	}
	if err := bucketRepo.Create(bucket); err != nil {
		t.Fatalf("create bucket: %v", err)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("bucket_id", bucket.ID); err != nil {
		t.Fatalf("write field: %v", err)
	}
	for _, f := range []struct {
		name    string
		content string
	}{
		{"fits.txt", "0123456789"},
		{"overflow.txt", "0123456789"},
	} {
		part, err := writer.CreateFormFile("files", f.name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := io.WriteString(part, f.content); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", resp.StatusCode)
	}

	var payload struct {
		Success    bool   `json:"success"`
		FailedFile string `json:"failed_file"`
		Uploaded   []struct {
			OriginalName string `json:"original_name"`
		} `json:"uploaded"`
	}
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Success {
		t.Error("partial outcome must not report success")
	}
	if payload.FailedFile != "overflow.txt" {
		t.Errorf("expected failed_file overflow.txt, got %q", payload.FailedFile)
	}
	if len(payload.Uploaded) != 1 || payload.Uploaded[0].OriginalName != "fits.txt" {
		t.Errorf("expected the stored file to be listed, got %+v", payload.Uploaded)
	}

	got, err := bucketRepo.GetByID(bucket.ID)
	if err != nil {
		t.Fatalf("get bucket: %v", err)
	}
	if got.FileCount != 1 || got.UsedSpace != 10 {
		t.Errorf("counters should reflect only the stored file, got count=%d used=%d", got.FileCount, got.UsedSpace)
	}
}
