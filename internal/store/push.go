package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/pausalabs/pausa/internal/model"
)

// SubscriptionStore persists Web Push subscriptions, keyed by endpoint.
type SubscriptionStore struct {
	db *sql.DB
}

func NewSubscriptionStore(db *sql.DB) *SubscriptionStore {
	return &SubscriptionStore{db: db}
}

const subscriptionColumns = `id, session_id, user_id, device_token, endpoint, p256dh_key, auth_key,
	 is_active, last_push_received_at, last_push_title, created_at, updated_at`

// Upsert creates or updates a subscription by endpoint. A re-subscription for
// a previously deactivated endpoint reactivates it.
func (s *SubscriptionStore) Upsert(sub *model.PushSubscription) (*model.PushSubscription, error) {
	_, err := s.db.Exec(
		`INSERT INTO push_subscriptions (session_id, user_id, device_token, endpoint, p256dh_key, auth_key, is_active)
		 VALUES (?, ?, ?, ?, ?, ?, 1)
		 ON CONFLICT(endpoint) DO UPDATE SET
		   session_id = excluded.session_id,
		   user_id = excluded.user_id,
		   device_token = excluded.device_token,
		   p256dh_key = excluded.p256dh_key,
		   auth_key = excluded.auth_key,
		   is_active = 1,
		   updated_at = CURRENT_TIMESTAMP`,
		sub.SessionID, sub.UserID, sub.DeviceToken, sub.Endpoint, sub.P256dhKey, sub.AuthKey,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert push subscription: %w", err)
	}
	return s.GetByEndpoint(sub.Endpoint)
}

// GetByEndpoint returns the subscription for an endpoint, or nil if none.
func (s *SubscriptionStore) GetByEndpoint(endpoint string) (*model.PushSubscription, error) {
	row := s.db.QueryRow(
		`SELECT `+subscriptionColumns+` FROM push_subscriptions WHERE endpoint = ?`, endpoint,
	)
	sub, err := scanSubscription(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get push subscription: %w", err)
	}
	return sub, nil
}

// ListActiveBySession returns the active subscriptions for a session.
func (s *SubscriptionStore) ListActiveBySession(sessionID string) ([]model.PushSubscription, error) {
	return s.listActive(`session_id = ?`, sessionID)
}

// ListActiveByDevice returns the active subscriptions for a device token.
func (s *SubscriptionStore) ListActiveByDevice(deviceToken string) ([]model.PushSubscription, error) {
	return s.listActive(`device_token = ?`, deviceToken)
}

// ListActive returns every active subscription.
func (s *SubscriptionStore) ListActive() ([]model.PushSubscription, error) {
	return s.listActive(`1 = 1`)
}

func (s *SubscriptionStore) listActive(where string, args ...any) ([]model.PushSubscription, error) {
	rows, err := s.db.Query(
		`SELECT `+subscriptionColumns+` FROM push_subscriptions
		 WHERE is_active = 1 AND `+where+` ORDER BY created_at DESC`, args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list push subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []model.PushSubscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan push subscription: %w", err)
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

// Deactivate soft-deletes a subscription after the push service reported the
// endpoint permanently gone. The row is kept for audit.
func (s *SubscriptionStore) Deactivate(endpoint string) error {
	_, err := s.db.Exec(
		`UPDATE push_subscriptions SET is_active = 0, updated_at = CURRENT_TIMESTAMP WHERE endpoint = ?`,
		endpoint,
	)
	if err != nil {
		return fmt.Errorf("deactivate push subscription: %w", err)
	}
	return nil
}

// DeleteByEndpoint removes a subscription on explicit unsubscribe.
func (s *SubscriptionStore) DeleteByEndpoint(endpoint string) error {
	_, err := s.db.Exec(`DELETE FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	if err != nil {
		return fmt.Errorf("delete push subscription: %w", err)
	}
	return nil
}

// RecordDelivery stores delivery telemetry after a successful push.
func (s *SubscriptionStore) RecordDelivery(endpoint, title string, at time.Time) error {
	_, err := s.db.Exec(
		`UPDATE push_subscriptions SET last_push_received_at = ?, last_push_title = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE endpoint = ?`,
		at.UTC(), title, endpoint,
	)
	if err != nil {
		return fmt.Errorf("record push delivery: %w", err)
	}
	return nil
}

func scanSubscription(r rowScanner) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	var active int
	var receivedAt sql.NullTime
	err := r.Scan(
		&sub.ID, &sub.SessionID, &sub.UserID, &sub.DeviceToken, &sub.Endpoint, &sub.P256dhKey, &sub.AuthKey,
		&active, &receivedAt, &sub.LastPushTitle, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	sub.IsActive = active != 0
	if receivedAt.Valid {
		sub.LastPushReceivedAt = &receivedAt.Time
	}
	return &sub, nil
}
