package handler

import (
	"crypto/subtle"
	"strings"

	"github.com/balkarbucket/backend/pkg/response"
	"github.com/gofiber/fiber/v2"
)

// MetricsTokenMiddleware gates the metrics endpoint behind a static bearer
// token in production. An empty configured token closes the endpoint
// entirely rather than leaving it open.
func MetricsTokenMiddleware(configuredToken string) fiber.Handler {
	want := strings.TrimSpace(configuredToken)

	return func(c *fiber.Ctx) error {
		if want == "" {
			return response.Forbidden(c, "metrics endpoint is disabled")
		}

		got := bearerToken(c)
		if got == "" {
			return response.Unauthorized(c, "missing or invalid authorization header")
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
			return response.Unauthorized(c, "invalid metrics token")
		}

		return c.Next()
	}
}
