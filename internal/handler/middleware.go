package handler

import (
	"strings"
	"time"

	"github.com/balkarbucket/backend/internal/service"
	"github.com/balkarbucket/backend/pkg/response"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	apiKeyHeader      = "X-API-Key"
	principalLocalKey = "principal"
)

// SecurityHeadersMiddleware adds security-related headers to all responses
func SecurityHeadersMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		c.Set("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
		c.Set("Pragma", "no-cache")
		return c.Next()
	}
}

// RequestIDMiddleware adds a unique request ID to each request
func RequestIDMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("X-Request-ID", requestID)
		c.Locals("request_id", requestID)
		return c.Next()
	}
}

// APIKeyAuthMiddleware authenticates the X-API-Key header and stores the
// resulting principal in locals. Usage accounting happens inside the
// service before any permission check runs, so denied requests still
// count against the key.
func APIKeyAuthMiddleware(accessSvc *service.AccessService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := strings.TrimSpace(c.Get(apiKeyHeader))
		principal, err := accessSvc.AuthenticateAPIKey(token, time.Now().UTC())
		if err != nil {
			RecordAuthFailure("api_key")
			return writeServiceError(c, err)
		}
		c.Locals(principalLocalKey, principal)
		return c.Next()
	}
}

// RequirePermission gates a route on the principal's grant set.
func RequirePermission(accessSvc *service.AccessService, required string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal := CurrentPrincipal(c)
		if principal == nil {
			return response.Unauthorized(c, "authentication required")
		}
		if err := accessSvc.Authorize(principal, required); err != nil {
			if principal.Kind == service.PrincipalAPIKey {
				accessSvc.RecordError(principal.APIKey.ID)
			}
			RecordPermissionDenial(required)
			return writeServiceError(c, err)
		}
		return c.Next()
	}
}

// AuthMiddleware authenticates a user session from the Authorization
// bearer token and stores the principal in locals.
func AuthMiddleware(authSvc *service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return response.Unauthorized(c, "missing authorization token")
		}

		user, err := authSvc.ValidateToken(token)
		if err != nil {
			RecordAuthFailure("session")
			return writeServiceError(c, err)
		}

		c.Locals(principalLocalKey, &service.Principal{Kind: service.PrincipalUser, User: user})
		return c.Next()
	}
}

// OptionalAuthMiddleware resolves a session when one is presented but lets
// anonymous requests through.
func OptionalAuthMiddleware(authSvc *service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return c.Next()
		}
		user, err := authSvc.ValidateToken(token)
		if err != nil {
			return c.Next()
		}
		c.Locals(principalLocalKey, &service.Principal{Kind: service.PrincipalUser, User: user})
		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) string {
	authHeader := strings.TrimSpace(c.Get("Authorization"))
	if authHeader == "" {
		return ""
	}
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

// CurrentPrincipal returns the authenticated principal, or nil on
// unauthenticated routes.
func CurrentPrincipal(c *fiber.Ctx) *service.Principal {
	principal, _ := c.Locals(principalLocalKey).(*service.Principal)
	return principal
}

// currentActor splits the principal into the identifier pair activity logs
// store.
func currentActor(c *fiber.Ctx) (userID, apiKeyID *string) {
	principal := CurrentPrincipal(c)
	if principal == nil {
		return nil, nil
	}
	switch principal.Kind {
	case service.PrincipalUser:
		id := principal.User.ID
		return &id, nil
	case service.PrincipalAPIKey:
		id := principal.APIKey.ID
		return nil, &id
	}
	return nil, nil
}
