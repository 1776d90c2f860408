package service

import (
	"encoding/json"
	"time"

	"github.com/balkarbucket/backend/internal/models"
	"github.com/balkarbucket/backend/internal/repository"
	"github.com/balkarbucket/backend/pkg/logger"
	"github.com/google/uuid"
)

// LogService records activity entries. Recording never fails the calling
// operation: a lost log line is preferable to a failed upload.
type LogService struct {
	logRepo *repository.LogRepository
}

func NewLogService(logRepo *repository.LogRepository) *LogService {
	return &LogService{logRepo: logRepo}
}

type LogEvent struct {
	Type      string
	Action    string
	Details   map[string]interface{}
	UserID    *string
	APIKeyID  *string
	IPAddress string
	UserAgent string
	Status    string
}

// Record writes an activity entry, swallowing any storage error.
func (s *LogService) Record(event LogEvent) {
	if event.Status == "" {
		event.Status = models.LogStatusSuccess
	}

	var details json.RawMessage
	if event.Details != nil {
		raw, err := json.Marshal(event.Details)
		if err != nil {
			logger.Warn().Err(err).Str("action", event.Action).Msg("failed to encode log details")
		} else {
			details = raw
		}
	}

	entry := &models.LogEntry{
		ID:        uuid.New().String(),
		Type:      event.Type,
		Action:    event.Action,
		Details:   details,
		UserID:    event.UserID,
		APIKeyID:  event.APIKeyID,
		IPAddress: event.IPAddress,
		UserAgent: event.UserAgent,
		Status:    event.Status,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.logRepo.Insert(entry); err != nil {
		logger.Warn().Err(err).Str("action", event.Action).Msg("failed to record activity log")
	}
}

func (s *LogService) List(filter repository.LogFilter, page, limit int) ([]*models.LogEntry, int, error) {
	offset := (page - 1) * limit
	entries, err := s.logRepo.List(filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.logRepo.Count(filter)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// Prune removes entries older than the retention window.
func (s *LogService) Prune(retention time.Duration) (int64, error) {
	return s.logRepo.DeleteOlderThan(time.Now().UTC().Add(-retention))
}
