package service

import (
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/balkarbucket/backend/internal/models"
	"github.com/balkarbucket/backend/internal/repository"
)

var ErrSettingNotFound = errors.New("setting not found")

type SettingsService struct {
	settingsRepo *repository.SettingsRepository
}

func NewSettingsService(settingsRepo *repository.SettingsRepository) *SettingsService {
	return &SettingsService{settingsRepo: settingsRepo}
}

func (s *SettingsService) Get(key string) (*models.Setting, error) {
	setting, err := s.settingsRepo.Get(key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSettingNotFound
		}
		return nil, err
	}
	return setting, nil
}

func (s *SettingsService) GetAll(category string) ([]*models.Setting, error) {
	return s.settingsRepo.GetAll(category)
}

// Set validates the value is well-formed JSON and upserts it. An empty
// category leaves an existing row's category untouched.
func (s *SettingsService) Set(key, category string, value json.RawMessage) (*models.Setting, error) {
	if key == "" || !json.Valid(value) {
		return nil, ErrInvalidInput
	}

	setting := &models.Setting{Key: key, Value: value, Category: category}
	if err := s.settingsRepo.Upsert(setting); err != nil {
		return nil, err
	}
	return s.Get(key)
}
