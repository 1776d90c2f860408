package handler

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
)

var errDatabaseNotInitialized = errors.New("database not initialized")

// HealthHandler handles health check endpoints
type HealthHandler struct {
	db          *sql.DB
	storagePath string
}

func NewHealthHandler(db *sql.DB, storagePath string) *HealthHandler {
	return &HealthHandler{db: db, storagePath: storagePath}
}

// Liveness returns basic liveness status (is the server running?)
func (h *HealthHandler) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
	})
}

// Readiness returns readiness status (can the server handle requests?)
func (h *HealthHandler) Readiness(c *fiber.Ctx) error {
	checks := make(map[string]interface{})
	allHealthy := true

	if err := h.checkDatabase(); err != nil {
		checks["database"] = fiber.Map{"status": "unhealthy", "error": err.Error()}
		allHealthy = false
	} else {
		checks["database"] = fiber.Map{"status": "healthy"}
	}

	if err := h.checkStorage(); err != nil {
		checks["storage"] = fiber.Map{"status": "unhealthy", "error": err.Error()}
		allHealthy = false
	} else {
		checks["storage"] = fiber.Map{"status": "healthy"}
	}

	status := "ok"
	statusCode := fiber.StatusOK
	if !allHealthy {
		status = "degraded"
		statusCode = fiber.StatusServiceUnavailable
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"status": status,
		"checks": checks,
	})
}

func (h *HealthHandler) checkDatabase() error {
	if h.db == nil {
		return errDatabaseNotInitialized
	}
	return h.db.Ping()
}

// checkStorage verifies the blob directory is accessible and writable.
func (h *HealthHandler) checkStorage() error {
	if err := os.MkdirAll(h.storagePath, 0750); err != nil {
		return err
	}

	testFile := filepath.Join(h.storagePath, ".healthcheck")
	f, err := os.Create(testFile)
	if err != nil {
		return err
	}
	f.Close()
	os.Remove(testFile)

	return nil
}
