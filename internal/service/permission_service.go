package service

import (
	"github.com/balkarbucket/backend/internal/models"
	"github.com/balkarbucket/backend/internal/repository"
)

// PermissionService exposes the seeded permission catalog.
type PermissionService struct {
	permissionRepo *repository.PermissionRepository
}

func NewPermissionService(permissionRepo *repository.PermissionRepository) *PermissionService {
	return &PermissionService{permissionRepo: permissionRepo}
}

func (s *PermissionService) List(category string) ([]*models.Permission, error) {
	return s.permissionRepo.List(category)
}
