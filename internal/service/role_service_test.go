package service

import (
	"errors"
	"testing"

	"github.com/balkarbucket/backend/internal/repository"
	"github.com/balkarbucket/backend/pkg/testutil"
)

func TestRoleService_DeleteRefusesInUse(t *testing.T) {
	db, _, cleanup := testutil.SetupTest(t)
	defer cleanup()

	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	roleSvc := NewRoleService(roleRepo)
	userSvc := NewUserService(userRepo, roleRepo)

	role, err := roleSvc.Create(RoleInput{Name: "Auditor", Permissions: []string{"logs.read"}})
	if err != nil {
		t.Fatalf("create role: %v", err)
	}

	user, err := userSvc.Create(CreateUserInput{
		Name:     "Aud",
		Email:    "aud@example.com",
		Password: "password-for-aud",
		RoleID:   &role.ID,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	if err := roleSvc.Delete(role.ID); !errors.Is(err, ErrRoleInUse) {
		t.Fatalf("expected ErrRoleInUse, got %v", err)
	}

	if err := userSvc.Delete(user.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if err := roleSvc.Delete(role.ID); err != nil {
		t.Fatalf("delete unassigned role: %v", err)
	}
}

func TestRoleService_UserCountTracksMembership(t *testing.T) {
	db, _, cleanup := testutil.SetupTest(t)
	defer cleanup()

	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	roleSvc := NewRoleService(roleRepo)
	userSvc := NewUserService(userRepo, roleRepo)

	first, err := roleSvc.Create(RoleInput{Name: "First"})
	if err != nil {
		t.Fatalf("create role: %v", err)
	}
	second, err := roleSvc.Create(RoleInput{Name: "Second"})
	if err != nil {
		t.Fatalf("create role: %v", err)
	}

	user, err := userSvc.Create(CreateUserInput{
		Name:     "Mover",
		Email:    "mover@example.com",
		Password: "password-for-mover",
		RoleID:   &first.ID,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	got, _ := roleSvc.Get(first.ID)
	if got.UserCount != 1 {
		t.Errorf("expected first.user_count=1, got %d", got.UserCount)
	}

	if _, err := userSvc.Update(user.ID, UpdateUserInput{RoleID: &second.ID}); err != nil {
		t.Fatalf("reassign: %v", err)
	}

	got, _ = roleSvc.Get(first.ID)
	if got.UserCount != 0 {
		t.Errorf("expected first.user_count=0 after reassign, got %d", got.UserCount)
	}
	got, _ = roleSvc.Get(second.ID)
	if got.UserCount != 1 {
		t.Errorf("expected second.user_count=1 after reassign, got %d", got.UserCount)
	}
}

func TestRoleService_DuplicateName(t *testing.T) {
	db, _, cleanup := testutil.SetupTest(t)
	defer cleanup()

	roleSvc := NewRoleService(repository.NewRoleRepository(db))
	if _, err := roleSvc.Create(RoleInput{Name: "Admin"}); !errors.Is(err, ErrDuplicateEntry) {
		t.Errorf("expected ErrDuplicateEntry against seeded role, got %v", err)
	}
}
