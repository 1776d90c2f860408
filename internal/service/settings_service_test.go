package service

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/balkarbucket/backend/internal/repository"
	"github.com/balkarbucket/backend/pkg/testutil"
)

func TestSettingsService_SetPreservesCategory(t *testing.T) {
	db, _, cleanup := testutil.SetupTest(t)
	defer cleanup()

	svc := NewSettingsService(repository.NewSettingsRepository(db))

	// Updating a seeded setting without naming a category must not move it
	// out of its category.
	setting, err := svc.Set("webhooks", "", json.RawMessage(`{"enabled":true,"url":"https://example.com","secret":"s"}`))
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if setting.Category != "integration" {
		t.Errorf("expected category integration, got %q", setting.Category)
	}

	integration, err := svc.GetAll("integration")
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	found := false
	for _, s := range integration {
		if s.Key == "webhooks" {
			found = true
		}
	}
	if !found {
		t.Error("webhooks setting missing from its category after update")
	}
}

func TestSettingsService_SetCategoryDefaults(t *testing.T) {
	db, _, cleanup := testutil.SetupTest(t)
	defer cleanup()

	svc := NewSettingsService(repository.NewSettingsRepository(db))

	t.Run("new key without category", func(t *testing.T) {
		setting, err := svc.Set("retention_days", "", json.RawMessage(`{"days":90}`))
		if err != nil {
			t.Fatalf("set: %v", err)
		}
		if setting.Category != "general" {
			t.Errorf("expected category general, got %q", setting.Category)
		}
	})

	t.Run("explicit category wins", func(t *testing.T) {
		setting, err := svc.Set("webhooks", "ops", json.RawMessage(`{"enabled":false,"url":"","secret":""}`))
		if err != nil {
			t.Fatalf("set: %v", err)
		}
		if setting.Category != "ops" {
			t.Errorf("expected category ops, got %q", setting.Category)
		}
	})

	t.Run("invalid json rejected", func(t *testing.T) {
		if _, err := svc.Set("broken", "", json.RawMessage(`{not json`)); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}
