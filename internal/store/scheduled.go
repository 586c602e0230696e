package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pausalabs/pausa/internal/model"
)

// ScheduleStore persists scheduled/recurring notifications and their
// processing history.
type ScheduleStore struct {
	db *sql.DB
}

func NewScheduleStore(db *sql.DB) *ScheduleStore {
	return &ScheduleStore{db: db}
}

const scheduleColumns = `id, title, body, icon, url, scheduled_for_ms, recurrence_type, recurrence_end_ms,
	 target_type, target_session_ids, status, error_message, sent_count, failed_count, next_run_at_ms,
	 created_at, updated_at`

// Create inserts a new pending scheduled notification.
func (s *ScheduleStore) Create(n *model.ScheduledNotification) (*model.ScheduledNotification, error) {
	targets, err := json.Marshal(n.TargetSessionIDs)
	if err != nil {
		return nil, fmt.Errorf("marshal target sessions: %w", err)
	}
	result, err := s.db.Exec(
		`INSERT INTO scheduled_notifications
		   (title, body, icon, url, scheduled_for_ms, recurrence_type, recurrence_end_ms, target_type, target_session_ids, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.Title, n.Body, n.Icon, n.URL, n.ScheduledFor, n.RecurrenceType, n.RecurrenceEnd,
		n.TargetType, string(targets), model.ScheduleStatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("create scheduled notification: %w", err)
	}
	id, _ := result.LastInsertId()
	return s.GetByID(id)
}

// GetByID returns a scheduled notification, or nil if none exists.
func (s *ScheduleStore) GetByID(id int64) (*model.ScheduledNotification, error) {
	row := s.db.QueryRow(`SELECT `+scheduleColumns+` FROM scheduled_notifications WHERE id = ?`, id)
	n, err := scanSchedule(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get scheduled notification: %w", err)
	}
	return n, nil
}

// List returns all scheduled notifications, newest first.
func (s *ScheduleStore) List() ([]model.ScheduledNotification, error) {
	return s.list(`SELECT ` + scheduleColumns + ` FROM scheduled_notifications ORDER BY created_at DESC`)
}

// ListDue returns pending rows whose scheduled time has passed, earliest
// first.
func (s *ScheduleStore) ListDue(nowMs int64) ([]model.ScheduledNotification, error) {
	return s.list(
		`SELECT `+scheduleColumns+` FROM scheduled_notifications
		 WHERE status = ? AND scheduled_for_ms <= ? ORDER BY scheduled_for_ms ASC`,
		model.ScheduleStatusPending, nowMs,
	)
}

func (s *ScheduleStore) list(query string, args ...any) ([]model.ScheduledNotification, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list scheduled notifications: %w", err)
	}
	defer rows.Close()

	var items []model.ScheduledNotification
	for rows.Next() {
		n, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan scheduled notification: %w", err)
		}
		items = append(items, *n)
	}
	return items, rows.Err()
}

// MarkSent moves a one-off row to its terminal sent state and adds the run's
// delivery counters.
func (s *ScheduleStore) MarkSent(id int64, sent, failed int) error {
	return s.finish(id, model.ScheduleStatusSent, sent, failed)
}

// MarkCompleted terminates a recurring row whose next occurrence would pass
// its end date.
func (s *ScheduleStore) MarkCompleted(id int64, sent, failed int) error {
	return s.finish(id, model.ScheduleStatusCompleted, sent, failed)
}

func (s *ScheduleStore) finish(id int64, status string, sent, failed int) error {
	_, err := s.db.Exec(
		`UPDATE scheduled_notifications
		 SET status = ?, sent_count = sent_count + ?, failed_count = failed_count + ?, next_run_at_ms = NULL,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		status, sent, failed, id,
	)
	if err != nil {
		return fmt.Errorf("finish scheduled notification: %w", err)
	}
	return nil
}

// Reschedule advances a recurring row to its next occurrence, keeping it
// pending.
func (s *ScheduleStore) Reschedule(id, nextMs int64, sent, failed int) error {
	_, err := s.db.Exec(
		`UPDATE scheduled_notifications
		 SET scheduled_for_ms = ?, next_run_at_ms = ?, sent_count = sent_count + ?, failed_count = failed_count + ?,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		nextMs, nextMs, sent, failed, id,
	)
	if err != nil {
		return fmt.Errorf("reschedule notification: %w", err)
	}
	return nil
}

// MarkError records a per-row processing failure. An errored row stops
// recurring; this is the only cancellation surface.
func (s *ScheduleStore) MarkError(id int64, msg string) error {
	_, err := s.db.Exec(
		`UPDATE scheduled_notifications SET status = ?, error_message = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		model.ScheduleStatusError, msg, id,
	)
	if err != nil {
		return fmt.Errorf("mark scheduled notification error: %w", err)
	}
	return nil
}

// AppendHistory logs one processing outcome for a scheduled row.
func (s *ScheduleStore) AppendHistory(h *model.NotificationHistory) error {
	_, err := s.db.Exec(
		`INSERT INTO notification_history (schedule_id, title, body, target_description, sent_count, failed_count, processed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		h.ScheduleID, h.Title, h.Body, h.TargetDescription, h.SentCount, h.FailedCount, h.ProcessedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("append notification history: %w", err)
	}
	return nil
}

// ListHistory returns the history entries for one scheduled row, newest
// first.
func (s *ScheduleStore) ListHistory(scheduleID int64) ([]model.NotificationHistory, error) {
	rows, err := s.db.Query(
		`SELECT id, schedule_id, title, body, target_description, sent_count, failed_count, processed_at
		 FROM notification_history WHERE schedule_id = ? ORDER BY processed_at DESC, id DESC`,
		scheduleID,
	)
	if err != nil {
		return nil, fmt.Errorf("list notification history: %w", err)
	}
	defer rows.Close()

	var items []model.NotificationHistory
	for rows.Next() {
		var h model.NotificationHistory
		if err := rows.Scan(&h.ID, &h.ScheduleID, &h.Title, &h.Body, &h.TargetDescription, &h.SentCount, &h.FailedCount, &h.ProcessedAt); err != nil {
			return nil, fmt.Errorf("scan notification history: %w", err)
		}
		items = append(items, h)
	}
	return items, rows.Err()
}

func scanSchedule(r rowScanner) (*model.ScheduledNotification, error) {
	var n model.ScheduledNotification
	var targets string
	err := r.Scan(
		&n.ID, &n.Title, &n.Body, &n.Icon, &n.URL, &n.ScheduledFor, &n.RecurrenceType, &n.RecurrenceEnd,
		&n.TargetType, &targets, &n.Status, &n.ErrorMessage, &n.SentCount, &n.FailedCount, &n.NextRunAt,
		&n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if targets != "" {
		if err := json.Unmarshal([]byte(targets), &n.TargetSessionIDs); err != nil {
			return nil, fmt.Errorf("unmarshal target sessions: %w", err)
		}
	}
	return &n, nil
}
