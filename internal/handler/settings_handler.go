package handler

import (
	"encoding/json"

	"github.com/balkarbucket/backend/internal/service"
	"github.com/balkarbucket/backend/pkg/response"
	"github.com/gofiber/fiber/v2"
)

type SettingsHandler struct {
	settingsSvc *service.SettingsService
}

func NewSettingsHandler(settingsSvc *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{settingsSvc: settingsSvc}
}

func (h *SettingsHandler) List(c *fiber.Ctx) error {
	settings, err := h.settingsSvc.GetAll(c.Query("category"))
	if err != nil {
		return writeServiceError(c, err)
	}
	return response.Success(c, settings)
}

func (h *SettingsHandler) Get(c *fiber.Ctx) error {
	setting, err := h.settingsSvc.Get(c.Params("key"))
	if err != nil {
		return writeServiceError(c, err)
	}
	return response.Success(c, setting)
}

// Update upserts every key/value pair in the body in one call.
func (h *SettingsHandler) Update(c *fiber.Ctx) error {
	updates := map[string]json.RawMessage{}
	if err := json.Unmarshal(c.Body(), &updates); err != nil {
		return response.BadRequest(c, "request body must be a JSON object of settings")
	}
	if len(updates) == 0 {
		return response.BadRequest(c, "no settings provided")
	}

	for key, value := range updates {
		if _, err := h.settingsSvc.Set(key, "", value); err != nil {
			return writeServiceError(c, err)
		}
	}
	return response.Success(c, fiber.Map{"updated": len(updates)})
}

type setSettingRequest struct {
	Value    json.RawMessage `json:"value"`
	Category string          `json:"category"`
}

func (h *SettingsHandler) Set(c *fiber.Ctx) error {
	req := &setSettingRequest{}
	if err := c.BodyParser(req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if len(req.Value) == 0 {
		return response.BadRequest(c, "value is required")
	}

	setting, err := h.settingsSvc.Set(c.Params("key"), req.Category, req.Value)
	if err != nil {
		return writeServiceError(c, err)
	}
	return response.Success(c, setting)
}
