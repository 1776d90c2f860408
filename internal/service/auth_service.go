package service

import (
	"database/sql"
	"errors"
	"time"

	"github.com/balkarbucket/backend/internal/config"
	"github.com/balkarbucket/backend/internal/models"
	"github.com/balkarbucket/backend/internal/repository"
	"github.com/balkarbucket/backend/pkg/logger"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles user session authentication with signed tokens.
type AuthService struct {
	userRepo *repository.UserRepository
	config   *config.Config
}

func NewAuthService(userRepo *repository.UserRepository, cfg *config.Config) *AuthService {
	return &AuthService{userRepo: userRepo, config: cfg}
}

type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	RoleID string `json:"role_id,omitempty"`
	jwt.RegisteredClaims
}

// Login verifies credentials and issues a session token. Lookup failures
// and wrong passwords collapse into the same error so the response does not
// reveal whether the email exists.
func (s *AuthService) Login(email, password string) (string, *models.User, error) {
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil, ErrInvalidLogin
		}
		return "", nil, err
	}
	if user.Status != models.UserStatusActive {
		return "", nil, ErrAccountInactive
	}
	if user.PasswordHash == nil {
		return "", nil, ErrInvalidLogin
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidLogin
	}

	now := time.Now().UTC()
	if err := s.userRepo.UpdateLastLogin(user.ID, now); err != nil {
		logger.Warn().Err(err).Str("user_id", user.ID).Msg("failed to record last login")
	}
	user.LastLoginAt = &now

	token, err := s.issueToken(user, now)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// Refresh issues a fresh token for an already authenticated user.
func (s *AuthService) Refresh(userID string) (string, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrUserNotFound
		}
		return "", err
	}
	if user.Status != models.UserStatusActive {
		return "", ErrAccountInactive
	}
	return s.issueToken(user, time.Now().UTC())
}

func (s *AuthService) issueToken(user *models.User, now time.Time) (string, error) {
	claims := &Claims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(s.config.Auth.TokenDuration) * time.Hour)),
		},
	}
	if user.RoleID != nil {
		claims.RoleID = *user.RoleID
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.Auth.JWTSecret))
}

// ValidateToken parses a session token and resolves the current user with
// their role. The signing method is pinned to HS256.
func (s *AuthService) ValidateToken(tokenString string) (*models.User, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.config.Auth.JWTSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidCredential
	}
	if !token.Valid {
		return nil, ErrInvalidCredential
	}

	user, err := s.userRepo.GetByID(claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredential
		}
		return nil, err
	}
	if user.Status != models.UserStatusActive {
		return nil, ErrAccountInactive
	}
	return user, nil
}

// HashPassword wraps bcrypt with the default cost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
