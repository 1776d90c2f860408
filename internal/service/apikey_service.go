package service

import (
	"crypto/rand"
	"database/sql"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/balkarbucket/backend/internal/models"
	"github.com/balkarbucket/backend/internal/repository"
	"github.com/balkarbucket/backend/pkg/logger"
	"github.com/google/uuid"
)

const (
	apiKeyPrefix      = "sk_live_"
	apiKeyTokenLength = 32
	apiKeyAlphabet    = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

type APIKeyService struct {
	apiKeyRepo *repository.APIKeyRepository
}

func NewAPIKeyService(apiKeyRepo *repository.APIKeyRepository) *APIKeyService {
	return &APIKeyService{apiKeyRepo: apiKeyRepo}
}

// GenerateToken builds a new credential value: a fixed prefix followed by
// 32 random alphanumeric characters.
func GenerateToken() (string, error) {
	var sb strings.Builder
	sb.WriteString(apiKeyPrefix)
	max := big.NewInt(int64(len(apiKeyAlphabet)))
	for i := 0; i < apiKeyTokenLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		sb.WriteByte(apiKeyAlphabet[n.Int64()])
	}
	return sb.String(), nil
}

// MaskToken renders a credential for display: the first 15 characters, an
// ellipsis, and the last 4. Short values are fully masked.
func MaskToken(token string) string {
	if len(token) < 19 {
		return strings.Repeat("*", len(token))
	}
	return token[:15] + "..." + token[len(token)-4:]
}

type CreateAPIKeyInput struct {
	Name             string
	Permissions      []string
	RateLimitEnabled bool
	RateLimitMax     int
	RateLimitWindow  int
	ExpiresAt        *time.Time
}

// Create mints a new key. The raw token is returned exactly once; every
// later read only sees the masked form.
func (s *APIKeyService) Create(input CreateAPIKeyInput) (*models.APIKey, string, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, "", ErrInvalidInput
	}

	token, err := GenerateToken()
	if err != nil {
		return nil, "", err
	}

	key := &models.APIKey{
		ID:               uuid.New().String(),
		Name:             strings.TrimSpace(input.Name),
		Key:              token,
		Permissions:      input.Permissions,
		Status:           models.APIKeyStatusActive,
		RateLimitEnabled: input.RateLimitEnabled,
		RateLimitMax:     input.RateLimitMax,
		RateLimitWindow:  input.RateLimitWindow,
		ExpiresAt:        input.ExpiresAt,
		CreatedAt:        time.Now().UTC(),
	}
	if key.Permissions == nil {
		key.Permissions = []string{}
	}
	if key.RateLimitMax <= 0 {
		key.RateLimitMax = 1000
	}
	if key.RateLimitWindow <= 0 {
		key.RateLimitWindow = 60000
	}

	if err := s.apiKeyRepo.Create(key); err != nil {
		return nil, "", err
	}

	logger.Info().Str("api_key_id", key.ID).Str("name", key.Name).Msg("api key created")
	return key, token, nil
}

func (s *APIKeyService) Get(id string) (*models.APIKey, error) {
	key, err := s.apiKeyRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAPIKeyNotFound
		}
		return nil, err
	}
	return key, nil
}

func (s *APIKeyService) List(status string, page, limit int) ([]*models.APIKey, int, error) {
	offset := (page - 1) * limit
	keys, err := s.apiKeyRepo.List(status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.apiKeyRepo.Count(status)
	if err != nil {
		return nil, 0, err
	}
	return keys, total, nil
}

type UpdateAPIKeyInput struct {
	Name             *string
	Permissions      []string
	RateLimitEnabled *bool
	RateLimitMax     *int
	RateLimitWindow  *int
	ExpiresAt        *time.Time
	ClearExpiry      bool
}

func (s *APIKeyService) Update(id string, input UpdateAPIKeyInput) (*models.APIKey, error) {
	key, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, ErrInvalidInput
		}
		key.Name = strings.TrimSpace(*input.Name)
	}
	if input.Permissions != nil {
		key.Permissions = input.Permissions
	}
	if input.RateLimitEnabled != nil {
		key.RateLimitEnabled = *input.RateLimitEnabled
	}
	if input.RateLimitMax != nil && *input.RateLimitMax > 0 {
		key.RateLimitMax = *input.RateLimitMax
	}
	if input.RateLimitWindow != nil && *input.RateLimitWindow > 0 {
		key.RateLimitWindow = *input.RateLimitWindow
	}
	if input.ClearExpiry {
		key.ExpiresAt = nil
	} else if input.ExpiresAt != nil {
		key.ExpiresAt = input.ExpiresAt
	}

	if err := s.apiKeyRepo.Update(key); err != nil {
		return nil, err
	}
	return key, nil
}

// Revoke permanently disables a key. Revocation is terminal; a revoked key
// cannot be reactivated.
func (s *APIKeyService) Revoke(id string) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	if err := s.apiKeyRepo.SetStatus(id, models.APIKeyStatusRevoked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAPIKeyNotFound
		}
		return err
	}
	logger.Info().Str("api_key_id", id).Msg("api key revoked")
	return nil
}

func (s *APIKeyService) Delete(id string) error {
	if err := s.apiKeyRepo.Delete(id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAPIKeyNotFound
		}
		return err
	}
	return nil
}

// EnsureBootstrapKey creates a full-access key when the table is empty so a
// fresh deployment has a credential to start from. The raw token is logged
// once; it is not recoverable afterwards.
func (s *APIKeyService) EnsureBootstrapKey() error {
	total, err := s.apiKeyRepo.Count("")
	if err != nil {
		return err
	}
	if total > 0 {
		return nil
	}

	_, token, err := s.Create(CreateAPIKeyInput{
		Name:        "bootstrap-admin",
		Permissions: []string{"*"},
	})
	if err != nil {
		return err
	}

	logger.Info().Str("token", token).Msg("bootstrap api key created; store this token now")
	return nil
}
