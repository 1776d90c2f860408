package handler

import (
	"encoding/json"
	"fmt"
	"mime/multipart"

	"github.com/balkarbucket/backend/internal/models"
	"github.com/balkarbucket/backend/internal/repository"
	"github.com/balkarbucket/backend/internal/service"
	"github.com/balkarbucket/backend/pkg/logger"
	"github.com/balkarbucket/backend/pkg/pagination"
	"github.com/balkarbucket/backend/pkg/response"
	"github.com/balkarbucket/backend/pkg/sanitize"
	"github.com/gofiber/fiber/v2"
)

type FileHandler struct {
	fileSvc    *service.FileService
	logSvc     *service.LogService
	webhookSvc *service.WebhookService
}

func NewFileHandler(fileSvc *service.FileService, logSvc *service.LogService, webhookSvc *service.WebhookService) *FileHandler {
	return &FileHandler{fileSvc: fileSvc, logSvc: logSvc, webhookSvc: webhookSvc}
}

const maxFilesPerUpload = 10

// Upload accepts a multipart form with one or more "files" parts (a single
// "file" part also works), a "bucket_id" field and an optional "metadata"
// field holding a JSON object. Files are stored in order; on the first
// failure the response names the file that failed and lists everything
// already stored, so a partial outcome is never mistaken for success.
func (h *FileHandler) Upload(c *fiber.Ctx) error {
	bucketID := c.FormValue("bucket_id")
	if bucketID == "" {
		return response.BadRequest(c, "bucket_id is required")
	}

	var metadata json.RawMessage
	if raw := c.FormValue("metadata"); raw != "" {
		if !json.Valid([]byte(raw)) {
			return response.BadRequest(c, "metadata must be valid JSON")
		}
		metadata = json.RawMessage(raw)
	}

	form, err := c.MultipartForm()
	if err != nil {
		return response.BadRequest(c, "multipart form is required")
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		headers = form.File["file"]
	}
	if len(headers) == 0 {
		return response.BadRequest(c, "no files provided")
	}
	if len(headers) > maxFilesPerUpload {
		return response.BadRequest(c, fmt.Sprintf("at most %d files per upload", maxFilesPerUpload))
	}

	userID, apiKeyID := currentActor(c)
	uploaded := make([]*models.File, 0, len(headers))
	var totalSize int64

	for _, fh := range headers {
		file, err := h.storeOne(fh, bucketID, metadata, userID, apiKeyID)
		if err != nil {
			if err == service.ErrQuotaExceeded {
				RecordQuotaRejection()
			}
			h.logSvc.Record(service.LogEvent{
				Type:      models.LogTypeUpload,
				Action:    "file.upload",
				Details:   map[string]interface{}{"bucket_id": bucketID, "filename": fh.Filename, "error": err.Error(), "uploaded_count": len(uploaded)},
				UserID:    userID,
				APIKeyID:  apiKeyID,
				IPAddress: c.IP(),
				UserAgent: c.Get("User-Agent"),
				Status:    models.LogStatusFailed,
			})
			status, message := serviceErrorStatus(err)
			if status == fiber.StatusInternalServerError {
				logger.Error().Err(err).Str("bucket_id", bucketID).Msg("file upload failed")
			}
			return c.Status(status).JSON(fiber.Map{
				"success":     false,
				"error":       message,
				"failed_file": fh.Filename,
				"uploaded":    uploaded,
			})
		}
		uploaded = append(uploaded, file)
		totalSize += file.Size
		RecordFileUpload(float64(file.Size))
	}

	h.logSvc.Record(service.LogEvent{
		Type:      models.LogTypeUpload,
		Action:    "file.upload",
		Details:   map[string]interface{}{"bucket_id": bucketID, "file_count": len(uploaded), "total_size_bytes": totalSize},
		UserID:    userID,
		APIKeyID:  apiKeyID,
		IPAddress: c.IP(),
		UserAgent: c.Get("User-Agent"),
	})
	for _, file := range uploaded {
		h.webhookSvc.Notify("file.uploaded", map[string]interface{}{
			"file_id":    file.ID,
			"bucket_id":  bucketID,
			"size_bytes": file.Size,
		})
	}

	return response.Created(c, fiber.Map{"uploaded": uploaded})
}

func (h *FileHandler) storeOne(fh *multipart.FileHeader, bucketID string, metadata json.RawMessage, userID, apiKeyID *string) (*models.File, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, service.ErrInvalidInput
	}
	defer src.Close()

	return h.fileSvc.Upload(&service.UploadRequest{
		BucketID:         bucketID,
		OriginalFilename: fh.Filename,
		DeclaredMimeType: fh.Header.Get("Content-Type"),
		Size:             fh.Size,
		Data:             src,
		Metadata:         metadata,
		UploadedBy:       userID,
		APIKeyID:         apiKeyID,
	})
}

func (h *FileHandler) Get(c *fiber.Ctx) error {
	file, err := h.fileSvc.Get(c.Params("id"))
	if err != nil {
		return writeServiceError(c, err)
	}
	return response.Success(c, file)
}

func (h *FileHandler) List(c *fiber.Ctx) error {
	page, limit := pagination.Normalize(c.QueryInt("page", 1), c.QueryInt("limit", 10))
	filter := repository.FileFilter{
		BucketID: c.Query("bucket_id"),
		Search:   c.Query("search"),
		Deleted:  c.QueryBool("trash", false),
	}

	files, total, err := h.fileSvc.List(filter, page, limit)
	if err != nil {
		return writeServiceError(c, err)
	}
	return response.Page(c, files, pagination.Data(total, page, limit))
}

// Download streams the blob with the original filename in the disposition
// header.
func (h *FileHandler) Download(c *fiber.Ctx) error {
	file, path, err := h.fileSvc.Open(c.Params("id"))
	if err != nil {
		return writeServiceError(c, err)
	}

	userID, apiKeyID := currentActor(c)
	h.logSvc.Record(service.LogEvent{
		Type:      models.LogTypeAccess,
		Action:    "file.download",
		Details:   map[string]interface{}{"file_id": file.ID},
		UserID:    userID,
		APIKeyID:  apiKeyID,
		IPAddress: c.IP(),
		UserAgent: c.Get("User-Agent"),
	})

	c.Set("Content-Type", file.MimeType)
	c.Set("Content-Disposition", `attachment; filename="`+sanitize.ForHeader(file.OriginalName)+`"`)
	return c.SendFile(path)
}

// Delete moves a file to trash and releases its usage counters.
func (h *FileHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.fileSvc.SoftDelete(id); err != nil {
		return writeServiceError(c, err)
	}

	userID, apiKeyID := currentActor(c)
	h.logSvc.Record(service.LogEvent{
		Type:      models.LogTypeDelete,
		Action:    "file.deleted",
		Details:   map[string]interface{}{"file_id": id},
		UserID:    userID,
		APIKeyID:  apiKeyID,
		IPAddress: c.IP(),
		UserAgent: c.Get("User-Agent"),
	})
	h.webhookSvc.Notify("file.deleted", map[string]interface{}{"file_id": id})

	return response.Success(c, fiber.Map{"deleted": true})
}

func (h *FileHandler) Restore(c *fiber.Ctx) error {
	file, err := h.fileSvc.Restore(c.Params("id"))
	if err != nil {
		if err == service.ErrQuotaExceeded {
			RecordQuotaRejection()
		}
		return writeServiceError(c, err)
	}
	return response.Success(c, file)
}

// Purge permanently deletes a trashed file and its blob.
func (h *FileHandler) Purge(c *fiber.Ctx) error {
	if err := h.fileSvc.Purge(c.Params("id")); err != nil {
		return writeServiceError(c, err)
	}
	return response.Success(c, fiber.Map{"purged": true})
}
