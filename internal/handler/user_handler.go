package handler

import (
	"github.com/balkarbucket/backend/internal/service"
	"github.com/balkarbucket/backend/pkg/pagination"
	"github.com/balkarbucket/backend/pkg/response"
	"github.com/gofiber/fiber/v2"
)

type UserHandler struct {
	userSvc *service.UserService
}

func NewUserHandler(userSvc *service.UserService) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

type createUserRequest struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	RoleID   *string `json:"role_id"`
	Avatar   *string `json:"avatar"`
}

func (h *UserHandler) Create(c *fiber.Ctx) error {
	req := &createUserRequest{}
	if err := c.BodyParser(req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	user, err := h.userSvc.Create(service.CreateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		RoleID:   req.RoleID,
		Avatar:   req.Avatar,
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return response.Created(c, user)
}

func (h *UserHandler) Get(c *fiber.Ctx) error {
	user, err := h.userSvc.Get(c.Params("id"))
	if err != nil {
		return writeServiceError(c, err)
	}
	return response.Success(c, user)
}

func (h *UserHandler) List(c *fiber.Ctx) error {
	page, limit := pagination.Normalize(c.QueryInt("page", 1), c.QueryInt("limit", 10))

	users, total, err := h.userSvc.List(c.Query("search"), c.Query("role_id"), c.Query("status"), page, limit)
	if err != nil {
		return writeServiceError(c, err)
	}
	return response.Page(c, users, pagination.Data(total, page, limit))
}

type updateUserRequest struct {
	Name      *string `json:"name"`
	Email     *string `json:"email"`
	Password  *string `json:"password"`
	RoleID    *string `json:"role_id"`
	ClearRole bool    `json:"clear_role"`
	Status    *string `json:"status"`
	Avatar    *string `json:"avatar"`
}

func (h *UserHandler) Update(c *fiber.Ctx) error {
	req := &updateUserRequest{}
	if err := c.BodyParser(req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	user, err := h.userSvc.Update(c.Params("id"), service.UpdateUserInput{
		Name:      req.Name,
		Email:     req.Email,
		Password:  req.Password,
		RoleID:    req.RoleID,
		ClearRole: req.ClearRole,
		Status:    req.Status,
		Avatar:    req.Avatar,
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return response.Success(c, user)
}

func (h *UserHandler) Delete(c *fiber.Ctx) error {
	if err := h.userSvc.Delete(c.Params("id")); err != nil {
		return writeServiceError(c, err)
	}
	return response.Success(c, fiber.Map{"deleted": true})
}
