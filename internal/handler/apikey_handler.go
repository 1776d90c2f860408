package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/balkarbucket/backend/internal/models"
	"github.com/balkarbucket/backend/internal/service"
	"github.com/balkarbucket/backend/pkg/pagination"
	"github.com/balkarbucket/backend/pkg/response"
	"github.com/gofiber/fiber/v2"
)

type APIKeyHandler struct {
	apiKeySvc *service.APIKeyService
	logSvc    *service.LogService
}

func NewAPIKeyHandler(apiKeySvc *service.APIKeyService, logSvc *service.LogService) *APIKeyHandler {
	return &APIKeyHandler{apiKeySvc: apiKeySvc, logSvc: logSvc}
}

// apiKeyView is the read model for keys: the raw credential is replaced by
// its masked form and the counters get a human-readable summary.
type apiKeyView struct {
	*models.APIKey
	MaskedKey string   `json:"masked_key"`
	Usage     keyUsage `json:"usage"`
}

type keyUsage struct {
	Requests int64  `json:"requests"`
	Uploads  int64  `json:"uploads"`
	Storage  string `json:"storage"`
	Errors   int64  `json:"errors"`
}

func newAPIKeyView(key *models.APIKey) *apiKeyView {
	return &apiKeyView{
		APIKey:    key,
		MaskedKey: service.MaskToken(key.Key),
		Usage: keyUsage{
			Requests: key.TotalRequests,
			Uploads:  key.TotalUploads,
			Storage:  formatBytes(key.StorageUsed),
			Errors:   key.ErrorCount,
		},
	}
}

func formatBytes(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}
	units := []string{"B", "KB", "MB", "GB", "TB"}
	value := float64(bytes)
	i := 0
	for value >= 1024 && i < len(units)-1 {
		value /= 1024
		i++
	}
	s := strconv.FormatFloat(value, 'f', 2, 64)
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	return s + " " + units[i]
}

func newAPIKeyViews(keys []*models.APIKey) []*apiKeyView {
	views := make([]*apiKeyView, 0, len(keys))
	for _, key := range keys {
		views = append(views, newAPIKeyView(key))
	}
	return views
}

type createAPIKeyRequest struct {
	Name             string     `json:"name"`
	Permissions      []string   `json:"permissions"`
	RateLimitEnabled bool       `json:"rate_limit_enabled"`
	RateLimitMax     int        `json:"rate_limit_max"`
	RateLimitWindow  int        `json:"rate_limit_window_ms"`
	ExpiresAt        *time.Time `json:"expires_at"`
}

// Create mints a key. The response carries the raw token once; it cannot
// be retrieved again.
func (h *APIKeyHandler) Create(c *fiber.Ctx) error {
	req := &createAPIKeyRequest{}
	if err := c.BodyParser(req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	key, token, err := h.apiKeySvc.Create(service.CreateAPIKeyInput{
		Name:             req.Name,
		Permissions:      req.Permissions,
		RateLimitEnabled: req.RateLimitEnabled,
		RateLimitMax:     req.RateLimitMax,
		RateLimitWindow:  req.RateLimitWindow,
		ExpiresAt:        req.ExpiresAt,
	})
	if err != nil {
		return writeServiceError(c, err)
	}

	userID, apiKeyID := currentActor(c)
	h.logSvc.Record(service.LogEvent{
		Type:      models.LogTypeAccess,
		Action:    "api_key.created",
		Details:   map[string]interface{}{"api_key_id": key.ID, "name": key.Name},
		UserID:    userID,
		APIKeyID:  apiKeyID,
		IPAddress: c.IP(),
		UserAgent: c.Get("User-Agent"),
	})

	return response.Created(c, fiber.Map{
		"api_key": newAPIKeyView(key),
		"key":     token,
	})
}

func (h *APIKeyHandler) Get(c *fiber.Ctx) error {
	key, err := h.apiKeySvc.Get(c.Params("id"))
	if err != nil {
		return writeServiceError(c, err)
	}
	return response.Success(c, newAPIKeyView(key))
}

func (h *APIKeyHandler) List(c *fiber.Ctx) error {
	page, limit := pagination.Normalize(c.QueryInt("page", 1), c.QueryInt("limit", 10))
	status := c.Query("status")

	keys, total, err := h.apiKeySvc.List(status, page, limit)
	if err != nil {
		return writeServiceError(c, err)
	}
	return response.Page(c, newAPIKeyViews(keys), pagination.Data(total, page, limit))
}

type updateAPIKeyRequest struct {
	Name             *string    `json:"name"`
	Permissions      []string   `json:"permissions"`
	RateLimitEnabled *bool      `json:"rate_limit_enabled"`
	RateLimitMax     *int       `json:"rate_limit_max"`
	RateLimitWindow  *int       `json:"rate_limit_window_ms"`
	ExpiresAt        *time.Time `json:"expires_at"`
	ClearExpiry      bool       `json:"clear_expiry"`
}

func (h *APIKeyHandler) Update(c *fiber.Ctx) error {
	req := &updateAPIKeyRequest{}
	if err := c.BodyParser(req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	key, err := h.apiKeySvc.Update(c.Params("id"), service.UpdateAPIKeyInput{
		Name:             req.Name,
		Permissions:      req.Permissions,
		RateLimitEnabled: req.RateLimitEnabled,
		RateLimitMax:     req.RateLimitMax,
		RateLimitWindow:  req.RateLimitWindow,
		ExpiresAt:        req.ExpiresAt,
		ClearExpiry:      req.ClearExpiry,
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return response.Success(c, newAPIKeyView(key))
}

func (h *APIKeyHandler) Revoke(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.apiKeySvc.Revoke(id); err != nil {
		return writeServiceError(c, err)
	}

	userID, apiKeyID := currentActor(c)
	h.logSvc.Record(service.LogEvent{
		Type:      models.LogTypeAccess,
		Action:    "api_key.revoked",
		Details:   map[string]interface{}{"api_key_id": id},
		UserID:    userID,
		APIKeyID:  apiKeyID,
		IPAddress: c.IP(),
		UserAgent: c.Get("User-Agent"),
	})

	return response.Success(c, fiber.Map{"revoked": true})
}

func (h *APIKeyHandler) Delete(c *fiber.Ctx) error {
	if err := h.apiKeySvc.Delete(c.Params("id")); err != nil {
		return writeServiceError(c, err)
	}
	return response.Success(c, fiber.Map{"deleted": true})
}
