package handler

import (
	"github.com/balkarbucket/backend/internal/models"
	"github.com/balkarbucket/backend/internal/service"
	"github.com/balkarbucket/backend/pkg/response"
	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	authSvc *service.AuthService
	logSvc  *service.LogService
}

func NewAuthHandler(authSvc *service.AuthService, logSvc *service.LogService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, logSvc: logSvc}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	req := &loginRequest{}
	if err := c.BodyParser(req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return response.BadRequest(c, "email and password are required")
	}

	token, user, err := h.authSvc.Login(req.Email, req.Password)
	if err != nil {
		RecordAuthFailure("password")
		h.logSvc.Record(service.LogEvent{
			Type:      models.LogTypeAuth,
			Action:    "auth.login",
			Details:   map[string]interface{}{"email": req.Email},
			IPAddress: c.IP(),
			UserAgent: c.Get("User-Agent"),
			Status:    models.LogStatusFailed,
		})
		return writeServiceError(c, err)
	}

	h.logSvc.Record(service.LogEvent{
		Type:      models.LogTypeAuth,
		Action:    "auth.login",
		UserID:    &user.ID,
		IPAddress: c.IP(),
		UserAgent: c.Get("User-Agent"),
	})

	return response.Success(c, fiber.Map{
		"token": token,
		"user":  user,
	})
}

// Me returns the authenticated user with their role.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal := CurrentPrincipal(c)
	if principal == nil || principal.Kind != service.PrincipalUser {
		return response.Unauthorized(c, "authentication required")
	}
	return response.Success(c, principal.User)
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	principal := CurrentPrincipal(c)
	if principal == nil || principal.Kind != service.PrincipalUser {
		return response.Unauthorized(c, "authentication required")
	}

	token, err := h.authSvc.Refresh(principal.User.ID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return response.Success(c, fiber.Map{"token": token})
}

// Logout is a bookkeeping endpoint: tokens are stateless, so the server
// only records the event and the client discards its copy.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	principal := CurrentPrincipal(c)
	if principal != nil && principal.Kind == service.PrincipalUser {
		h.logSvc.Record(service.LogEvent{
			Type:      models.LogTypeAuth,
			Action:    "auth.logout",
			UserID:    &principal.User.ID,
			IPAddress: c.IP(),
			UserAgent: c.Get("User-Agent"),
		})
	}
	return response.Success(c, fiber.Map{"logged_out": true})
}
