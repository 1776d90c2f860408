package service

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/balkarbucket/backend/internal/models"
	"github.com/balkarbucket/backend/internal/repository"
	"github.com/google/uuid"
)

type RoleService struct {
	roleRepo *repository.RoleRepository
}

func NewRoleService(roleRepo *repository.RoleRepository) *RoleService {
	return &RoleService{roleRepo: roleRepo}
}

type RoleInput struct {
	Name        string
	Description *string
	Permissions []string
}

func (s *RoleService) Create(input RoleInput) (*models.Role, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrInvalidInput
	}

	role := &models.Role{
		ID:          uuid.New().String(),
		Name:        name,
		Description: input.Description,
		Permissions: input.Permissions,
		CreatedAt:   time.Now().UTC(),
	}
	if role.Permissions == nil {
		role.Permissions = []string{}
	}

	if err := s.roleRepo.Create(role); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEntry
		}
		return nil, err
	}
	return role, nil
}

func (s *RoleService) Get(id string) (*models.Role, error) {
	role, err := s.roleRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoleNotFound
		}
		return nil, err
	}
	return role, nil
}

func (s *RoleService) List() ([]*models.Role, error) {
	return s.roleRepo.List()
}

func (s *RoleService) Update(id string, input RoleInput) (*models.Role, error) {
	role, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(input.Name); name != "" {
		role.Name = name
	}
	if input.Description != nil {
		role.Description = input.Description
	}
	if input.Permissions != nil {
		role.Permissions = input.Permissions
	}

	if err := s.roleRepo.Update(role); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEntry
		}
		return nil, err
	}
	return role, nil
}

// Delete refuses to remove a role that still has members; reassign the
// users first.
func (s *RoleService) Delete(id string) error {
	if _, err := s.Get(id); err != nil {
		return err
	}

	members, err := s.roleRepo.CountUsers(id)
	if err != nil {
		return err
	}
	if members > 0 {
		return ErrRoleInUse
	}

	if err := s.roleRepo.Delete(id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRoleNotFound
		}
		return err
	}
	return nil
}
