package handler

import (
	"github.com/balkarbucket/backend/internal/service"
	"github.com/balkarbucket/backend/pkg/response"
	"github.com/gofiber/fiber/v2"
)

type StatsHandler struct {
	statsSvc *service.StatsService
}

func NewStatsHandler(statsSvc *service.StatsService) *StatsHandler {
	return &StatsHandler{statsSvc: statsSvc}
}

func (h *StatsHandler) Dashboard(c *fiber.Ctx) error {
	stats, err := h.statsSvc.Dashboard()
	if err != nil {
		return writeServiceError(c, err)
	}
	UpdateStorageUsed(float64(stats.Storage.Used))
	return response.Success(c, stats)
}
