package handler

import (
	"errors"

	"github.com/balkarbucket/backend/internal/service"
	"github.com/balkarbucket/backend/pkg/logger"
	"github.com/balkarbucket/backend/pkg/response"
	"github.com/gofiber/fiber/v2"
)

// serviceErrorStatus maps service sentinel errors onto an HTTP status and a
// client-safe message. Unknown errors collapse into a 500 without leaking
// detail.
func serviceErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrMissingCredential):
		return fiber.StatusUnauthorized, "missing API key"
	case errors.Is(err, service.ErrInvalidCredential):
		return fiber.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, service.ErrCredentialExpired):
		return fiber.StatusUnauthorized, "API key has expired"
	case errors.Is(err, service.ErrTokenExpired):
		return fiber.StatusUnauthorized, "session has expired"
	case errors.Is(err, service.ErrInvalidLogin):
		return fiber.StatusUnauthorized, "invalid email or password"
	case errors.Is(err, service.ErrAccountInactive):
		return fiber.StatusUnauthorized, "account is inactive"
	case errors.Is(err, service.ErrPermissionDenied):
		return fiber.StatusForbidden, "insufficient permissions"
	case errors.Is(err, service.ErrAPIKeyNotFound):
		return fiber.StatusNotFound, "API key not found"
	case errors.Is(err, service.ErrUserNotFound):
		return fiber.StatusNotFound, "user not found"
	case errors.Is(err, service.ErrRoleNotFound):
		return fiber.StatusNotFound, "role not found"
	case errors.Is(err, service.ErrBucketNotFound):
		return fiber.StatusNotFound, "bucket not found"
	case errors.Is(err, service.ErrFileNotFound):
		return fiber.StatusNotFound, "file not found"
	case errors.Is(err, service.ErrSettingNotFound):
		return fiber.StatusNotFound, "setting not found"
	case errors.Is(err, service.ErrFileGone):
		return fiber.StatusGone, "file has been deleted"
	case errors.Is(err, service.ErrFileNotFoundOnStorage):
		return fiber.StatusNotFound, "file data is missing from storage"
	case errors.Is(err, service.ErrBucketNotEmpty):
		return fiber.StatusConflict, "bucket is not empty"
	case errors.Is(err, service.ErrRoleInUse):
		return fiber.StatusConflict, "role still has assigned users"
	case errors.Is(err, service.ErrDuplicateEntry):
		return fiber.StatusConflict, "resource already exists"
	case errors.Is(err, service.ErrQuotaExceeded):
		return fiber.StatusRequestEntityTooLarge, "bucket quota exceeded"
	case errors.Is(err, service.ErrFileTooLarge):
		return fiber.StatusRequestEntityTooLarge, "file exceeds maximum upload size"
	case errors.Is(err, service.ErrInvalidInput):
		return fiber.StatusBadRequest, "invalid request"
	default:
		return fiber.StatusInternalServerError, "internal server error"
	}
}

// writeServiceError renders the mapped status and message as the standard
// error envelope.
func writeServiceError(c *fiber.Ctx, err error) error {
	status, message := serviceErrorStatus(err)
	if status == fiber.StatusInternalServerError {
		logger.Error().Err(err).Str("path", c.Path()).Msg("unhandled service error")
	}
	return response.Error(c, status, message)
}
