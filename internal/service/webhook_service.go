package service

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/balkarbucket/backend/internal/repository"
	"github.com/balkarbucket/backend/pkg/logger"
)

const webhookTimeout = 5 * time.Second

// WebhookService delivers event notifications to the endpoint configured
// in settings. Delivery is fire-and-forget: it runs in its own goroutine
// and never blocks or fails the triggering operation.
type WebhookService struct {
	settingsRepo *repository.SettingsRepository
	client       *http.Client
}

func NewWebhookService(settingsRepo *repository.SettingsRepository) *WebhookService {
	return &WebhookService{
		settingsRepo: settingsRepo,
		client:       &http.Client{Timeout: webhookTimeout},
	}
}

type webhookConfig struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url"`
	Secret  string `json:"secret"`
}

type WebhookEvent struct {
	Event     string                 `json:"event"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Notify dispatches an event asynchronously. Disabled or unconfigured
// webhooks are a silent no-op.
func (s *WebhookService) Notify(event string, data map[string]interface{}) {
	cfg, err := s.loadConfig()
	if err != nil {
		logger.Warn().Err(err).Msg("failed to load webhook settings")
		return
	}
	if !cfg.Enabled || cfg.URL == "" {
		return
	}

	payload, err := json.Marshal(WebhookEvent{
		Event:     event,
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
	if err != nil {
		logger.Warn().Err(err).Str("event", event).Msg("failed to encode webhook payload")
		return
	}

	go s.deliver(cfg, event, payload)
}

func (s *WebhookService) loadConfig() (*webhookConfig, error) {
	setting, err := s.settingsRepo.Get("webhooks")
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &webhookConfig{}, nil
		}
		return nil, err
	}
	cfg := &webhookConfig{}
	if err := json.Unmarshal(setting.Value, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *WebhookService) deliver(cfg *webhookConfig, event string, payload []byte) {
	req, err := http.NewRequest(http.MethodPost, cfg.URL, bytes.NewReader(payload))
	if err != nil {
		logger.Warn().Err(err).Str("event", event).Msg("failed to build webhook request")
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.Secret != "" {
		mac := hmac.New(sha256.New, []byte(cfg.Secret))
		mac.Write(payload)
		req.Header.Set("X-Webhook-Signature", hex.EncodeToString(mac.Sum(nil)))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		logger.Warn().Err(err).Str("event", event).Msg("webhook delivery failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		logger.Warn().Int("status", resp.StatusCode).Str("event", event).Msg("webhook endpoint returned an error")
	}
}
