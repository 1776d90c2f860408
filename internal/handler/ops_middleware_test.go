package handler

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestMetricsTokenMiddleware(t *testing.T) {
	newApp := func(token string) *fiber.App {
		app := fiber.New()
		app.Get("/metrics", MetricsTokenMiddleware(token), func(c *fiber.Ctx) error {
			return c.SendString("ok")
		})
		return app
	}

	tests := []struct {
		name       string
		configured string
		header     string
		want       int
	}{
		{"valid token", "observe-secret", "Bearer observe-secret", fiber.StatusOK},
		{"wrong token", "observe-secret", "Bearer guess", fiber.StatusUnauthorized},
		{"missing header", "observe-secret", "", fiber.StatusUnauthorized},
		{"malformed header", "observe-secret", "observe-secret", fiber.StatusUnauthorized},
		{"no token configured", "", "Bearer anything", fiber.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/metrics", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := newApp(tt.configured).Test(req)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			if resp.StatusCode != tt.want {
				t.Errorf("expected %d, got %d", tt.want, resp.StatusCode)
			}
		})
	}
}
