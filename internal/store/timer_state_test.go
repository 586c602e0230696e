package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/pausalabs/pausa/internal/database"
	"github.com/pausalabs/pausa/internal/model"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func msPtr(v int64) *int64 { return &v }

func TestTimerStoreUpsertAndGet(t *testing.T) {
	s := NewTimerStore(testDB(t))
	now := time.Now().UnixMilli()

	err := s.Upsert(&model.TimerState{
		SessionID:  "session-1",
		EyeEndTime: msPtr(now + 60_000),
		IsRunning:  true,
		SavedAt:    now,
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := s.GetBySession("session-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected timer state")
	}
	if got.EyeEndTime == nil || *got.EyeEndTime != now+60_000 {
		t.Errorf("eyeEndTime = %v, want %d", got.EyeEndTime, now+60_000)
	}
	if got.StretchEndTime != nil || got.WaterEndTime != nil {
		t.Error("unset timers must stay nil")
	}
	if !got.IsRunning {
		t.Error("expected running state")
	}
	if got.SavedAt != now {
		t.Errorf("savedAt = %d, want %d", got.SavedAt, now)
	}
}

func TestTimerStoreGetMissingReturnsNil(t *testing.T) {
	s := NewTimerStore(testDB(t))
	got, err := s.GetBySession("nobody")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Errorf("got = %+v, want nil", got)
	}
}

func TestTimerStoreUpsertPreservesCooldowns(t *testing.T) {
	s := NewTimerStore(testDB(t))
	now := time.Now().UnixMilli()

	if err := s.Upsert(&model.TimerState{SessionID: "session-1", IsRunning: true, SavedAt: now}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.UpdateLastNotified("session-1", model.ReminderEye, now); err != nil {
		t.Fatalf("update last notified: %v", err)
	}

	// A fresh client sync must not reset the scanner-owned cooldown columns.
	if err := s.Upsert(&model.TimerState{
		SessionID:  "session-1",
		EyeEndTime: msPtr(now + 120_000),
		IsRunning:  true,
		SavedAt:    now + 5_000,
	}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := s.GetBySession("session-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.LastNotifiedEye != now {
		t.Errorf("lastNotifiedEye = %d, want %d (survive sync)", got.LastNotifiedEye, now)
	}
	if got.SavedAt != now+5_000 {
		t.Errorf("savedAt = %d, want %d (updated by sync)", got.SavedAt, now+5_000)
	}
}

func TestTimerStoreListRunning(t *testing.T) {
	s := NewTimerStore(testDB(t))
	now := time.Now().UnixMilli()

	for _, st := range []model.TimerState{
		{SessionID: "running-1", IsRunning: true, SavedAt: now},
		{SessionID: "running-2", IsRunning: true, SavedAt: now},
		{SessionID: "paused", IsRunning: false, SavedAt: now},
	} {
		if err := s.Upsert(&st); err != nil {
			t.Fatalf("upsert %s: %v", st.SessionID, err)
		}
	}

	states, err := s.ListRunning()
	if err != nil {
		t.Fatalf("list running: %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("running = %d, want 2", len(states))
	}
	for _, st := range states {
		if st.SessionID == "paused" {
			t.Error("paused session returned by ListRunning")
		}
	}
}

func TestTimerStoreUpdateLastNotifiedPerType(t *testing.T) {
	s := NewTimerStore(testDB(t))
	now := time.Now().UnixMilli()

	if err := s.Upsert(&model.TimerState{SessionID: "session-1", IsRunning: true, SavedAt: now}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if err := s.UpdateLastNotified("session-1", model.ReminderStretch, now); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, _ := s.GetBySession("session-1")
	if got.LastNotifiedStretch != now {
		t.Errorf("lastNotifiedStretch = %d, want %d", got.LastNotifiedStretch, now)
	}
	if got.LastNotifiedEye != 0 || got.LastNotifiedWater != 0 {
		t.Error("other type cooldowns must stay untouched")
	}

	if err := s.UpdateLastNotified("session-1", "nap", now); err == nil {
		t.Error("expected error for unknown reminder type")
	}
}

func TestTimerStoreDelete(t *testing.T) {
	s := NewTimerStore(testDB(t))
	now := time.Now().UnixMilli()

	if err := s.Upsert(&model.TimerState{SessionID: "session-1", IsRunning: true, SavedAt: now}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.Delete("session-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	got, err := s.GetBySession("session-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Error("expected state removed")
	}
}
