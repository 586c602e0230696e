package store

import (
	"testing"
	"time"

	"github.com/pausalabs/pausa/internal/model"
)

func newSub(sessionID, endpoint string) *model.PushSubscription {
	return &model.PushSubscription{
		SessionID: sessionID,
		Endpoint:  endpoint,
		P256dhKey: "BPubKey",
		AuthKey:   "authsecret",
	}
}

func TestSubscriptionStoreUpsertByEndpoint(t *testing.T) {
	s := NewSubscriptionStore(testDB(t))

	created, err := s.Upsert(newSub("session-1", "https://push.example/send/a"))
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if !created.IsActive {
		t.Error("new subscription must be active")
	}

	// Same endpoint, new session: one row, updated in place.
	updated, err := s.Upsert(newSub("session-2", "https://push.example/send/a"))
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if updated.ID != created.ID {
		t.Errorf("id = %d, want %d (endpoint is the identity)", updated.ID, created.ID)
	}
	if updated.SessionID != "session-2" {
		t.Errorf("sessionId = %q, want session-2", updated.SessionID)
	}
}

func TestSubscriptionStoreUpsertReactivates(t *testing.T) {
	s := NewSubscriptionStore(testDB(t))
	endpoint := "https://push.example/send/b"

	if _, err := s.Upsert(newSub("session-1", endpoint)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.Deactivate(endpoint); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	sub, err := s.Upsert(newSub("session-1", endpoint))
	if err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	if !sub.IsActive {
		t.Error("re-subscription must reactivate the endpoint")
	}
}

func TestSubscriptionStoreListActiveFilters(t *testing.T) {
	s := NewSubscriptionStore(testDB(t))

	a := newSub("session-1", "https://push.example/send/1")
	a.DeviceToken = "device-1"
	b := newSub("session-1", "https://push.example/send/2")
	c := newSub("session-2", "https://push.example/send/3")
	for _, sub := range []*model.PushSubscription{a, b, c} {
		if _, err := s.Upsert(sub); err != nil {
			t.Fatalf("upsert %s: %v", sub.Endpoint, err)
		}
	}
	if err := s.Deactivate(b.Endpoint); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	bySession, err := s.ListActiveBySession("session-1")
	if err != nil {
		t.Fatalf("list by session: %v", err)
	}
	if len(bySession) != 1 || bySession[0].Endpoint != a.Endpoint {
		t.Errorf("by session = %+v, want only the active session-1 endpoint", bySession)
	}

	byDevice, err := s.ListActiveByDevice("device-1")
	if err != nil {
		t.Fatalf("list by device: %v", err)
	}
	if len(byDevice) != 1 {
		t.Errorf("by device = %d, want 1", len(byDevice))
	}

	all, err := s.ListActive()
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("active = %d, want 2", len(all))
	}
}

func TestSubscriptionStoreDelete(t *testing.T) {
	s := NewSubscriptionStore(testDB(t))
	endpoint := "https://push.example/send/gone"

	if _, err := s.Upsert(newSub("session-1", endpoint)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.DeleteByEndpoint(endpoint); err != nil {
		t.Fatalf("delete: %v", err)
	}

	got, err := s.GetByEndpoint(endpoint)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Error("expected subscription removed")
	}
}

func TestSubscriptionStoreRecordDelivery(t *testing.T) {
	s := NewSubscriptionStore(testDB(t))
	endpoint := "https://push.example/send/tele"

	if _, err := s.Upsert(newSub("session-1", endpoint)); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	at := time.Now().Truncate(time.Second)
	if err := s.RecordDelivery(endpoint, "Eye break", at); err != nil {
		t.Fatalf("record delivery: %v", err)
	}

	got, _ := s.GetByEndpoint(endpoint)
	if got.LastPushTitle != "Eye break" {
		t.Errorf("lastPushTitle = %q, want Eye break", got.LastPushTitle)
	}
	if got.LastPushReceivedAt == nil || !got.LastPushReceivedAt.Equal(at.UTC()) {
		t.Errorf("lastPushReceivedAt = %v, want %v", got.LastPushReceivedAt, at.UTC())
	}
}
