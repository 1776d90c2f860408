package service

import (
	"errors"
	"testing"

	"github.com/balkarbucket/backend/internal/repository"
	"github.com/balkarbucket/backend/pkg/testutil"
)

func newUserServiceForTest(t *testing.T) (*UserService, func()) {
	t.Helper()
	db, _, cleanup := testutil.SetupTest(t)
	return NewUserService(repository.NewUserRepository(db), repository.NewRoleRepository(db)), cleanup
}

func TestUserService_UpdateRejectedPasswordChangesNothing(t *testing.T) {
	svc, cleanup := newUserServiceForTest(t)
	defer cleanup()

	user, err := svc.Create(CreateUserInput{
		Name:     "Dana",
		Email:    "dana@example.com",
		Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	newName := "Renamed"
	short := "short"
	_, err = svc.Update(user.ID, UpdateUserInput{
		Name:     &newName,
		Password: &short,
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	// The rejected call must not have persisted any of the other fields.
	stored, err := svc.Get(user.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if stored.Name != "Dana" {
		t.Errorf("expected name unchanged, got %q", stored.Name)
	}
}

func TestUserService_UpdatePassword(t *testing.T) {
	svc, cleanup := newUserServiceForTest(t)
	defer cleanup()

	user, err := svc.Create(CreateUserInput{
		Name:     "Eli",
		Email:    "eli@example.com",
		Password: "initial-password",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	next := "replacement-password"
	if _, err := svc.Update(user.ID, UpdateUserInput{Password: &next}); err != nil {
		t.Fatalf("update password: %v", err)
	}

	stored, err := svc.Get(user.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if stored.PasswordHash == nil || *stored.PasswordHash == *user.PasswordHash {
		t.Error("password hash should have been replaced")
	}
}

func TestUserService_CreateValidation(t *testing.T) {
	svc, cleanup := newUserServiceForTest(t)
	defer cleanup()

	tests := []struct {
		name  string
		input CreateUserInput
	}{
		{"blank name", CreateUserInput{Name: " ", Email: "a@example.com", Password: "long enough"}},
		{"bad email", CreateUserInput{Name: "A", Email: "not-an-email", Password: "long enough"}},
		{"short password", CreateUserInput{Name: "A", Email: "a@example.com", Password: "short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(tt.input); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}
