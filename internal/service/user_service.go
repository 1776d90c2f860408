package service

import (
	"database/sql"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/balkarbucket/backend/internal/models"
	"github.com/balkarbucket/backend/internal/repository"
	"github.com/balkarbucket/backend/pkg/logger"
	"github.com/google/uuid"
)

type UserService struct {
	userRepo *repository.UserRepository
	roleRepo *repository.RoleRepository
}

func NewUserService(userRepo *repository.UserRepository, roleRepo *repository.RoleRepository) *UserService {
	return &UserService{userRepo: userRepo, roleRepo: roleRepo}
}

type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	RoleID   *string
	Avatar   *string
}

func (s *UserService) Create(input CreateUserInput) (*models.User, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if name == "" || len(input.Password) < 8 {
		return nil, ErrInvalidInput
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidInput
	}

	if input.RoleID != nil {
		if _, err := s.roleRepo.GetByID(*input.RoleID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, ErrRoleNotFound
			}
			return nil, err
		}
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: &hash,
		Avatar:       input.Avatar,
		RoleID:       input.RoleID,
		Status:       models.UserStatusActive,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.userRepo.Create(user); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEntry
		}
		return nil, err
	}

	if input.RoleID != nil {
		if err := s.roleRepo.AdjustUserCount(*input.RoleID, 1); err != nil {
			logger.Warn().Err(err).Str("role_id", *input.RoleID).Msg("failed to bump role member count")
		}
	}

	return s.Get(user.ID)
}

func (s *UserService) Get(id string) (*models.User, error) {
	user, err := s.userRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) List(search, roleID, status string, page, limit int) ([]*models.User, int, error) {
	offset := (page - 1) * limit
	users, err := s.userRepo.List(search, roleID, status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.userRepo.Count(search, roleID, status)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

type UpdateUserInput struct {
	Name      *string
	Email     *string
	Password  *string
	RoleID    *string
	ClearRole bool
	Status    *string
	Avatar    *string
}

func (s *UserService) Update(id string, input UpdateUserInput) (*models.User, error) {
	user, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	previousRole := user.RoleID

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, ErrInvalidInput
		}
		user.Name = strings.TrimSpace(*input.Name)
	}
	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, ErrInvalidInput
		}
		user.Email = email
	}
	if input.ClearRole {
		user.RoleID = nil
	} else if input.RoleID != nil {
		if _, err := s.roleRepo.GetByID(*input.RoleID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, ErrRoleNotFound
			}
			return nil, err
		}
		user.RoleID = input.RoleID
	}
	if input.Status != nil {
		if *input.Status != models.UserStatusActive && *input.Status != models.UserStatusInactive {
			return nil, ErrInvalidInput
		}
		user.Status = *input.Status
	}
	if input.Avatar != nil {
		user.Avatar = input.Avatar
	}

	// Hash before the first write so a rejected password leaves the user
	// untouched.
	var passwordHash string
	if input.Password != nil {
		if len(*input.Password) < 8 {
			return nil, ErrInvalidInput
		}
		hash, err := HashPassword(*input.Password)
		if err != nil {
			return nil, err
		}
		passwordHash = hash
	}

	if err := s.userRepo.Update(user); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEntry
		}
		return nil, err
	}

	if passwordHash != "" {
		if err := s.userRepo.UpdatePasswordHash(id, passwordHash); err != nil {
			return nil, err
		}
	}

	s.settleRoleCounts(previousRole, user.RoleID)
	return s.Get(id)
}

func (s *UserService) Delete(id string) error {
	user, err := s.Get(id)
	if err != nil {
		return err
	}
	if err := s.userRepo.Delete(id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}
	if user.RoleID != nil {
		if err := s.roleRepo.AdjustUserCount(*user.RoleID, -1); err != nil {
			logger.Warn().Err(err).Str("role_id", *user.RoleID).Msg("failed to drop role member count")
		}
	}
	return nil
}

func (s *UserService) settleRoleCounts(previous, current *string) {
	same := previous != nil && current != nil && *previous == *current
	if same {
		return
	}
	if previous != nil {
		if err := s.roleRepo.AdjustUserCount(*previous, -1); err != nil {
			logger.Warn().Err(err).Str("role_id", *previous).Msg("failed to drop role member count")
		}
	}
	if current != nil {
		if err := s.roleRepo.AdjustUserCount(*current, 1); err != nil {
			logger.Warn().Err(err).Str("role_id", *current).Msg("failed to bump role member count")
		}
	}
}
