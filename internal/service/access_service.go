package service

import (
	"database/sql"
	"errors"
	"time"

	"github.com/balkarbucket/backend/internal/models"
	"github.com/balkarbucket/backend/internal/repository"
	"github.com/balkarbucket/backend/pkg/logger"
	"github.com/balkarbucket/backend/pkg/permission"
)

// PrincipalKind discriminates the two credential types that can act on the
// API.
type PrincipalKind string

const (
	PrincipalAPIKey PrincipalKind = "api_key"
	PrincipalUser   PrincipalKind = "user"
)

// Principal is an authenticated caller. Exactly one of APIKey and User is
// set, according to Kind.
type Principal struct {
	Kind   PrincipalKind
	APIKey *models.APIKey
	User   *models.User
}

// Permissions returns the grant set the principal carries. Users inherit
// from their role; a user without a role has no grants.
func (p *Principal) Permissions() []string {
	switch p.Kind {
	case PrincipalAPIKey:
		return p.APIKey.Permissions
	case PrincipalUser:
		if p.User.Role != nil {
			return p.User.Role.Permissions
		}
	}
	return nil
}

// ID returns the stable identifier of the underlying credential.
func (p *Principal) ID() string {
	switch p.Kind {
	case PrincipalAPIKey:
		return p.APIKey.ID
	case PrincipalUser:
		return p.User.ID
	}
	return ""
}

// AccessService authenticates API keys and evaluates permission grants.
type AccessService struct {
	apiKeyRepo *repository.APIKeyRepository
}

func NewAccessService(apiKeyRepo *repository.APIKeyRepository) *AccessService {
	return &AccessService{apiKeyRepo: apiKeyRepo}
}

// AuthenticateAPIKey resolves a raw credential into a Principal.
//
// An active key whose expiry has passed is transitioned to expired on this
// request and rejected; the status guard in the repository makes the
// transition fire exactly once under concurrent use. Usage accounting
// (total_requests, last_used_at) is recorded for every authenticated
// request, before any permission check happens, so denied requests still
// count.
func (s *AccessService) AuthenticateAPIKey(token string, now time.Time) (*Principal, error) {
	if token == "" {
		return nil, ErrMissingCredential
	}

	key, err := s.apiKeyRepo.GetByToken(token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredential
		}
		return nil, err
	}

	// Any non-active status is rejected outright; ErrCredentialExpired is
	// reserved for the request that consumes the expiry below.
	if key.Status != models.APIKeyStatusActive {
		return nil, ErrInvalidCredential
	}

	if key.ExpiresAt != nil && !key.ExpiresAt.After(now) {
		if _, err := s.apiKeyRepo.MarkExpired(key.ID); err != nil {
			return nil, err
		}
		logger.Info().Str("api_key_id", key.ID).Msg("api key expired on use")
		return nil, ErrCredentialExpired
	}

	if err := s.apiKeyRepo.RecordUsage(key.ID, now); err != nil {
		return nil, err
	}
	key.TotalRequests++
	key.LastUsedAt = &now

	return &Principal{Kind: PrincipalAPIKey, APIKey: key}, nil
}

// Authorize checks that the principal's grants cover the required
// permission string. Wildcards in the grant set are honored: "*" covers
// everything and "files.*" covers any "files." action.
func (s *AccessService) Authorize(p *Principal, required string) error {
	if permission.Allows(p.Permissions(), required) {
		return nil
	}
	return ErrPermissionDenied
}

// RecordError bumps the error counter on the key behind a failed request.
func (s *AccessService) RecordError(keyID string) {
	if err := s.apiKeyRepo.IncrementErrors(keyID); err != nil {
		logger.Warn().Err(err).Str("api_key_id", keyID).Msg("failed to record api key error")
	}
}
