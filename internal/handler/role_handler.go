package handler

import (
	"github.com/balkarbucket/backend/internal/service"
	"github.com/balkarbucket/backend/pkg/response"
	"github.com/gofiber/fiber/v2"
)

type RoleHandler struct {
	roleSvc       *service.RoleService
	permissionSvc *service.PermissionService
}

func NewRoleHandler(roleSvc *service.RoleService, permissionSvc *service.PermissionService) *RoleHandler {
	return &RoleHandler{roleSvc: roleSvc, permissionSvc: permissionSvc}
}

type roleRequest struct {
	Name        string   `json:"name"`
	Description *string  `json:"description"`
	Permissions []string `json:"permissions"`
}

func (h *RoleHandler) Create(c *fiber.Ctx) error {
	req := &roleRequest{}
	if err := c.BodyParser(req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	role, err := h.roleSvc.Create(service.RoleInput{
		Name:        req.Name,
		Description: req.Description,
		Permissions: req.Permissions,
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return response.Created(c, role)
}

func (h *RoleHandler) Get(c *fiber.Ctx) error {
	role, err := h.roleSvc.Get(c.Params("id"))
	if err != nil {
		return writeServiceError(c, err)
	}
	return response.Success(c, role)
}

func (h *RoleHandler) List(c *fiber.Ctx) error {
	roles, err := h.roleSvc.List()
	if err != nil {
		return writeServiceError(c, err)
	}
	return response.Success(c, roles)
}

func (h *RoleHandler) Update(c *fiber.Ctx) error {
	req := &roleRequest{}
	if err := c.BodyParser(req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	role, err := h.roleSvc.Update(c.Params("id"), service.RoleInput{
		Name:        req.Name,
		Description: req.Description,
		Permissions: req.Permissions,
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return response.Success(c, role)
}

func (h *RoleHandler) Delete(c *fiber.Ctx) error {
	if err := h.roleSvc.Delete(c.Params("id")); err != nil {
		return writeServiceError(c, err)
	}
	return response.Success(c, fiber.Map{"deleted": true})
}

// ListPermissions returns the permission catalog, optionally filtered by
// category.
func (h *RoleHandler) ListPermissions(c *fiber.Ctx) error {
	permissions, err := h.permissionSvc.List(c.Query("category"))
	if err != nil {
		return writeServiceError(c, err)
	}
	return response.Success(c, permissions)
}
