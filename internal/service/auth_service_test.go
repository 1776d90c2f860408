package service

import (
	"errors"
	"testing"

	"github.com/balkarbucket/backend/internal/config"
	"github.com/balkarbucket/backend/internal/models"
	"github.com/balkarbucket/backend/internal/repository"
	"github.com/balkarbucket/backend/pkg/testutil"
	"github.com/google/uuid"
)

func newAuthServiceForTest(t *testing.T) (*AuthService, *UserService, func()) {
	t.Helper()
	db, _, cleanup := testutil.SetupTest(t)

	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	cfg := config.Load()
	cfg.Auth.JWTSecret = "test-secret-used-only-in-tests-0123456789"

	return NewAuthService(userRepo, cfg), NewUserService(userRepo, roleRepo), cleanup
}

func TestAuthService_LoginAndValidate(t *testing.T) {
	authSvc, userSvc, cleanup := newAuthServiceForTest(t)
	defer cleanup()

	user, err := userSvc.Create(CreateUserInput{
		Name:     "Ada",
		Email:    "ada@example.com",
		Password: "correct horse battery",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	token, loggedIn, err := authSvc.Login("ada@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if loggedIn.ID != user.ID {
		t.Errorf("unexpected user: %s", loggedIn.ID)
	}
	if loggedIn.LastLoginAt == nil {
		t.Error("last login should be stamped")
	}

	validated, err := authSvc.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if validated.ID != user.ID {
		t.Errorf("token resolves to wrong user: %s", validated.ID)
	}
}

func TestAuthService_LoginFailures(t *testing.T) {
	authSvc, userSvc, cleanup := newAuthServiceForTest(t)
	defer cleanup()

	if _, err := userSvc.Create(CreateUserInput{
		Name:     "Ada",
		Email:    "ada@example.com",
		Password: "correct horse battery",
	}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	// Unknown email and wrong password return the same error.
	_, _, err := authSvc.Login("nobody@example.com", "whatever!")
	if !errors.Is(err, ErrInvalidLogin) {
		t.Errorf("expected ErrInvalidLogin for unknown email, got %v", err)
	}
	_, _, err = authSvc.Login("ada@example.com", "wrong password")
	if !errors.Is(err, ErrInvalidLogin) {
		t.Errorf("expected ErrInvalidLogin for wrong password, got %v", err)
	}
}

func TestAuthService_InactiveAccount(t *testing.T) {
	authSvc, userSvc, cleanup := newAuthServiceForTest(t)
	defer cleanup()

	user, err := userSvc.Create(CreateUserInput{
		Name:     "Dormant",
		Email:    "dormant@example.com",
		Password: "long enough password",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	token, _, err := authSvc.Login("dormant@example.com", "long enough password")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	inactive := models.UserStatusInactive
	if _, err := userSvc.Update(user.ID, UpdateUserInput{Status: &inactive}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	if _, _, err := authSvc.Login("dormant@example.com", "long enough password"); !errors.Is(err, ErrAccountInactive) {
		t.Errorf("expected ErrAccountInactive on login, got %v", err)
	}
	// Existing tokens stop working once the account goes inactive.
	if _, err := authSvc.ValidateToken(token); !errors.Is(err, ErrAccountInactive) {
		t.Errorf("expected ErrAccountInactive on validate, got %v", err)
	}
}

func TestAuthService_RejectsGarbageTokens(t *testing.T) {
	authSvc, _, cleanup := newAuthServiceForTest(t)
	defer cleanup()

	if _, err := authSvc.ValidateToken("not-a-jwt"); !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("expected ErrInvalidCredential, got %v", err)
	}
}

func TestAuthService_RefreshUnknownUser(t *testing.T) {
	authSvc, _, cleanup := newAuthServiceForTest(t)
	defer cleanup()

	if _, err := authSvc.Refresh(uuid.New().String()); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAuthService_TokenCarriesRole(t *testing.T) {
	db, _, cleanup := testutil.SetupTest(t)
	defer cleanup()

	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	cfg := config.Load()
	cfg.Auth.JWTSecret = "test-secret-used-only-in-tests-0123456789"
	authSvc := NewAuthService(userRepo, cfg)
	userSvc := NewUserService(userRepo, roleRepo)

	role, err := roleRepo.GetByName("Admin")
	if err != nil {
		t.Fatalf("seeded role missing: %v", err)
	}

	if _, err := userSvc.Create(CreateUserInput{
		Name:     "Ops",
		Email:    "ops@example.com",
		Password: "another long password",
		RoleID:   &role.ID,
	}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	token, _, err := authSvc.Login("ops@example.com", "another long password")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	validated, err := authSvc.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if validated.Role == nil || validated.Role.Name != "Admin" {
		t.Errorf("expected joined Admin role, got %+v", validated.Role)
	}
	if len(validated.Role.Permissions) == 0 {
		t.Error("role permissions should round-trip")
	}
}
