package handler

import (
	"errors"
	"testing"

	"github.com/balkarbucket/backend/internal/service"
	"github.com/gofiber/fiber/v2"
)

func TestServiceErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"missing credential", service.ErrMissingCredential, fiber.StatusUnauthorized},
		{"invalid credential", service.ErrInvalidCredential, fiber.StatusUnauthorized},
		{"credential expired", service.ErrCredentialExpired, fiber.StatusUnauthorized},
		{"inactive account", service.ErrAccountInactive, fiber.StatusUnauthorized},
		{"permission denied", service.ErrPermissionDenied, fiber.StatusForbidden},
		{"bucket not found", service.ErrBucketNotFound, fiber.StatusNotFound},
		{"file gone", service.ErrFileGone, fiber.StatusGone},
		{"bucket not empty", service.ErrBucketNotEmpty, fiber.StatusConflict},
		{"quota exceeded", service.ErrQuotaExceeded, fiber.StatusRequestEntityTooLarge},
		{"file too large", service.ErrFileTooLarge, fiber.StatusRequestEntityTooLarge},
		{"invalid input", service.ErrInvalidInput, fiber.StatusBadRequest},
		{"unknown error", errors.New("boom"), fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, message := serviceErrorStatus(tt.err)
			if status != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, status)
			}
			if tt.want == fiber.StatusInternalServerError && message != "internal server error" {
				t.Errorf("unknown errors must not leak detail, got %q", message)
			}
		})
	}
}
