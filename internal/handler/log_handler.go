package handler

import (
	"time"

	"github.com/balkarbucket/backend/internal/models"
	"github.com/balkarbucket/backend/internal/repository"
	"github.com/balkarbucket/backend/internal/service"
	"github.com/balkarbucket/backend/pkg/pagination"
	"github.com/balkarbucket/backend/pkg/response"
	"github.com/gofiber/fiber/v2"
)

type LogHandler struct {
	logSvc *service.LogService
}

func NewLogHandler(logSvc *service.LogService) *LogHandler {
	return &LogHandler{logSvc: logSvc}
}

func (h *LogHandler) List(c *fiber.Ctx) error {
	return h.list(c, c.Query("type"))
}

// Uploads lists upload events only.
func (h *LogHandler) Uploads(c *fiber.Ctx) error {
	return h.list(c, models.LogTypeUpload)
}

// Access lists access events only.
func (h *LogHandler) Access(c *fiber.Ctx) error {
	return h.list(c, models.LogTypeAccess)
}

func (h *LogHandler) list(c *fiber.Ctx, logType string) error {
	page, limit := pagination.Normalize(c.QueryInt("page", 1), c.QueryInt("limit", 10))

	filter := repository.LogFilter{
		Type:     logType,
		Status:   c.Query("status"),
		APIKeyID: c.Query("api_key_id"),
	}
	if since := c.Query("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return response.BadRequest(c, "since must be an RFC 3339 timestamp")
		}
		filter.Since = &t
	}
	if until := c.Query("until"); until != "" {
		t, err := time.Parse(time.RFC3339, until)
		if err != nil {
			return response.BadRequest(c, "until must be an RFC 3339 timestamp")
		}
		filter.Until = &t
	}

	entries, total, err := h.logSvc.List(filter, page, limit)
	if err != nil {
		return writeServiceError(c, err)
	}
	return response.Page(c, entries, pagination.Data(total, page, limit))
}
