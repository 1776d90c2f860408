package handler

import (
	"github.com/balkarbucket/backend/internal/models"
	"github.com/balkarbucket/backend/internal/service"
	"github.com/balkarbucket/backend/pkg/pagination"
	"github.com/balkarbucket/backend/pkg/response"
	"github.com/gofiber/fiber/v2"
)

type BucketHandler struct {
	bucketSvc  *service.BucketService
	logSvc     *service.LogService
	webhookSvc *service.WebhookService
}

func NewBucketHandler(bucketSvc *service.BucketService, logSvc *service.LogService, webhookSvc *service.WebhookService) *BucketHandler {
	return &BucketHandler{bucketSvc: bucketSvc, logSvc: logSvc, webhookSvc: webhookSvc}
}

type createBucketRequest struct {
	Name         string `json:"name"`
	Region       string `json:"region"`
	StorageClass string `json:"storage_class"`
	IsPublic     bool   `json:"is_public"`
	Quota        *int64 `json:"quota_bytes"`
}

func (h *BucketHandler) Create(c *fiber.Ctx) error {
	req := &createBucketRequest{}
	if err := c.BodyParser(req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	var ownerID *string
	if principal := CurrentPrincipal(c); principal != nil && principal.Kind == service.PrincipalUser {
		id := principal.User.ID
		ownerID = &id
	}

	bucket, err := h.bucketSvc.Create(service.CreateBucketInput{
		Name:         req.Name,
		Region:       req.Region,
		StorageClass: req.StorageClass,
		IsPublic:     req.IsPublic,
		Quota:        req.Quota,
		OwnerID:      ownerID,
	})
	if err != nil {
		return writeServiceError(c, err)
	}

	userID, apiKeyID := currentActor(c)
	h.logSvc.Record(service.LogEvent{
		Type:      models.LogTypeBucket,
		Action:    "bucket.created",
		Details:   map[string]interface{}{"bucket_id": bucket.ID, "name": bucket.Name},
		UserID:    userID,
		APIKeyID:  apiKeyID,
		IPAddress: c.IP(),
		UserAgent: c.Get("User-Agent"),
	})
	h.webhookSvc.Notify("bucket.created", map[string]interface{}{
		"bucket_id": bucket.ID,
		"name":      bucket.Name,
	})

	return response.Created(c, bucket)
}

func (h *BucketHandler) Get(c *fiber.Ctx) error {
	bucket, err := h.bucketSvc.Get(c.Params("id"))
	if err != nil {
		return writeServiceError(c, err)
	}
	return response.Success(c, bucket)
}

func (h *BucketHandler) List(c *fiber.Ctx) error {
	page, limit := pagination.Normalize(c.QueryInt("page", 1), c.QueryInt("limit", 10))
	search := c.Query("search")

	buckets, total, err := h.bucketSvc.List(search, page, limit)
	if err != nil {
		return writeServiceError(c, err)
	}
	return response.Page(c, buckets, pagination.Data(total, page, limit))
}

type updateBucketRequest struct {
	IsPublic     *bool   `json:"is_public"`
	Quota        *int64  `json:"quota_bytes"`
	ClearQuota   bool    `json:"clear_quota"`
	StorageClass *string `json:"storage_class"`
}

func (h *BucketHandler) Update(c *fiber.Ctx) error {
	req := &updateBucketRequest{}
	if err := c.BodyParser(req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	bucket, err := h.bucketSvc.Update(c.Params("id"), service.UpdateBucketInput{
		IsPublic:     req.IsPublic,
		Quota:        req.Quota,
		ClearQuota:   req.ClearQuota,
		StorageClass: req.StorageClass,
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return response.Success(c, bucket)
}

func (h *BucketHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.bucketSvc.Delete(id); err != nil {
		return writeServiceError(c, err)
	}

	userID, apiKeyID := currentActor(c)
	h.logSvc.Record(service.LogEvent{
		Type:      models.LogTypeBucket,
		Action:    "bucket.deleted",
		Details:   map[string]interface{}{"bucket_id": id},
		UserID:    userID,
		APIKeyID:  apiKeyID,
		IPAddress: c.IP(),
		UserAgent: c.Get("User-Agent"),
	})
	h.webhookSvc.Notify("bucket.deleted", map[string]interface{}{"bucket_id": id})

	return response.Success(c, fiber.Map{"deleted": true})
}
