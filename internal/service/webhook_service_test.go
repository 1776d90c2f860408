package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/balkarbucket/backend/internal/repository"
	"github.com/balkarbucket/backend/pkg/testutil"
)

func configureWebhook(t *testing.T, repo *repository.SettingsRepository, enabled bool, url, secret string) {
	t.Helper()
	svc := NewSettingsService(repo)
	value := fmt.Sprintf(`{"enabled":%t,"url":%q,"secret":%q}`, enabled, url, secret)
	if _, err := svc.Set("webhooks", "", json.RawMessage(value)); err != nil {
		t.Fatalf("configure webhook: %v", err)
	}
}

func TestWebhookService_DeliversSignedPayload(t *testing.T) {
	db, _, cleanup := testutil.SetupTest(t)
	defer cleanup()

	received := make(chan *http.Request, 1)
	bodies := make(chan []byte, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		bodies <- body
		received <- r
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	settingsRepo := repository.NewSettingsRepository(db)
	configureWebhook(t, settingsRepo, true, server.URL, "hook-secret")

	svc := NewWebhookService(settingsRepo)
	svc.Notify("file.uploaded", map[string]interface{}{"file_id": "f1"})

	select {
	case req := <-received:
		if req.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected content type %q", req.Header.Get("Content-Type"))
		}
		body := <-bodies

		mac := hmac.New(sha256.New, []byte("hook-secret"))
		mac.Write(body)
		want := hex.EncodeToString(mac.Sum(nil))
		if got := req.Header.Get("X-Webhook-Signature"); got != want {
			t.Errorf("signature mismatch: got %q want %q", got, want)
		}

		event := &WebhookEvent{}
		if err := json.Unmarshal(body, event); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if event.Event != "file.uploaded" {
			t.Errorf("unexpected event %q", event.Event)
		}
		if event.Data["file_id"] != "f1" {
			t.Errorf("unexpected data %v", event.Data)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("webhook was not delivered")
	}
}

func TestWebhookService_DisabledIsNoop(t *testing.T) {
	db, _, cleanup := testutil.SetupTest(t)
	defer cleanup()

	called := make(chan struct{}, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called <- struct{}{}
	}))
	defer server.Close()

	settingsRepo := repository.NewSettingsRepository(db)
	configureWebhook(t, settingsRepo, false, server.URL, "")

	svc := NewWebhookService(settingsRepo)
	svc.Notify("bucket.created", nil)

	select {
	case <-called:
		t.Fatal("disabled webhook must not fire")
	case <-time.After(200 * time.Millisecond):
	}
}
