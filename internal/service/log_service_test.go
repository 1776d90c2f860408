package service

import (
	"testing"
	"time"

	"github.com/balkarbucket/backend/internal/models"
	"github.com/balkarbucket/backend/internal/repository"
	"github.com/balkarbucket/backend/pkg/testutil"
)

func TestLogService_RecordAndList(t *testing.T) {
	db, _, cleanup := testutil.SetupTest(t)
	defer cleanup()

	svc := NewLogService(repository.NewLogRepository(db))

	keyID := "key-1"
	svc.Record(LogEvent{
		Type:      models.LogTypeUpload,
		Action:    "file.upload",
		Details:   map[string]interface{}{"file_id": "f1"},
		APIKeyID:  &keyID,
		IPAddress: "10.0.0.1",
	})
	svc.Record(LogEvent{
		Type:      models.LogTypeUpload,
		Action:    "file.upload",
		APIKeyID:  &keyID,
		IPAddress: "10.0.0.1",
		Status:    models.LogStatusFailed,
	})
	svc.Record(LogEvent{
		Type:   models.LogTypeAuth,
		Action: "auth.login",
	})

	entries, total, err := svc.List(repository.LogFilter{Type: models.LogTypeUpload}, 1, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(entries) != 2 {
		t.Errorf("expected 2 upload entries, got total=%d len=%d", total, len(entries))
	}

	entries, total, err = svc.List(repository.LogFilter{Status: models.LogStatusFailed}, 1, 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 1 {
		t.Errorf("expected 1 failed entry, got %d", total)
	}
	if entries[0].Status != models.LogStatusFailed {
		t.Errorf("unexpected status %s", entries[0].Status)
	}
}

func TestLogService_RecordSwallowsStorageErrors(t *testing.T) {
	db, _, cleanup := testutil.SetupTest(t)
	svc := NewLogService(repository.NewLogRepository(db))
	cleanup()

	// The database is closed; Record must not panic or surface the failure.
	svc.Record(LogEvent{Type: models.LogTypeAccess, Action: "file.download"})
}

func TestLogService_Prune(t *testing.T) {
	db, _, cleanup := testutil.SetupTest(t)
	defer cleanup()

	repo := repository.NewLogRepository(db)
	svc := NewLogService(repo)

	old := &models.LogEntry{
		ID:        "old-entry",
		Type:      models.LogTypeAccess,
		Action:    "file.download",
		Status:    models.LogStatusSuccess,
		CreatedAt: time.Now().UTC().Add(-48 * time.Hour),
	}
	if err := repo.Insert(old); err != nil {
		t.Fatalf("insert: %v", err)
	}
	svc.Record(LogEvent{Type: models.LogTypeAccess, Action: "file.download"})

	pruned, err := svc.Prune(24 * time.Hour)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if pruned != 1 {
		t.Errorf("expected 1 pruned row, got %d", pruned)
	}

	_, total, err := svc.List(repository.LogFilter{}, 1, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 {
		t.Errorf("expected 1 surviving entry, got %d", total)
	}
}
