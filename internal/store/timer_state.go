package store

import (
	"database/sql"
	"fmt"

	"github.com/pausalabs/pausa/internal/model"
)

// TimerStore persists client timer state, one row per session. Writes are
// upserts by session_id so repeated syncs from the same device converge.
type TimerStore struct {
	db *sql.DB
}

func NewTimerStore(db *sql.DB) *TimerStore {
	return &TimerStore{db: db}
}

const timerColumns = `session_id, eye_end_ms, stretch_end_ms, water_end_ms, is_running,
	 last_notified_eye_ms, last_notified_stretch_ms, last_notified_water_ms, saved_at_ms, updated_at`

// Upsert creates or overwrites the timer state for a session. Notification
// cooldown timestamps are owned by the scanner and are deliberately not
// overwritten by the client sync path.
func (s *TimerStore) Upsert(st *model.TimerState) error {
	_, err := s.db.Exec(
		`INSERT INTO timer_states (session_id, eye_end_ms, stretch_end_ms, water_end_ms, is_running, saved_at_ms, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(session_id) DO UPDATE SET
		   eye_end_ms = excluded.eye_end_ms,
		   stretch_end_ms = excluded.stretch_end_ms,
		   water_end_ms = excluded.water_end_ms,
		   is_running = excluded.is_running,
		   saved_at_ms = excluded.saved_at_ms,
		   updated_at = CURRENT_TIMESTAMP`,
		st.SessionID, st.EyeEndTime, st.StretchEndTime, st.WaterEndTime, boolToInt(st.IsRunning), st.SavedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert timer state: %w", err)
	}
	return nil
}

// GetBySession returns the timer state for a session, or nil if none exists.
func (s *TimerStore) GetBySession(sessionID string) (*model.TimerState, error) {
	row := s.db.QueryRow(
		`SELECT `+timerColumns+` FROM timer_states WHERE session_id = ?`, sessionID,
	)
	st, err := scanTimerState(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get timer state: %w", err)
	}
	return st, nil
}

// ListRunning returns all timer states with an active timer set.
func (s *TimerStore) ListRunning() ([]model.TimerState, error) {
	rows, err := s.db.Query(`SELECT ` + timerColumns + ` FROM timer_states WHERE is_running = 1`)
	if err != nil {
		return nil, fmt.Errorf("list running timer states: %w", err)
	}
	defer rows.Close()

	var states []model.TimerState
	for rows.Next() {
		st, err := scanTimerState(rows)
		if err != nil {
			return nil, fmt.Errorf("scan timer state: %w", err)
		}
		states = append(states, *st)
	}
	return states, rows.Err()
}

// UpdateLastNotified records a notification attempt timestamp for one timer
// type. The timestamp governs attempt frequency, not delivery confirmation.
func (s *TimerStore) UpdateLastNotified(sessionID string, t model.ReminderType, ms int64) error {
	var column string
	switch t {
	case model.ReminderEye:
		column = "last_notified_eye_ms"
	case model.ReminderStretch:
		column = "last_notified_stretch_ms"
	case model.ReminderWater:
		column = "last_notified_water_ms"
	default:
		return fmt.Errorf("unknown reminder type: %q", t)
	}
	_, err := s.db.Exec(
		`UPDATE timer_states SET `+column+` = ?, updated_at = CURRENT_TIMESTAMP WHERE session_id = ?`,
		ms, sessionID,
	)
	if err != nil {
		return fmt.Errorf("update last notified: %w", err)
	}
	return nil
}

// Delete removes a session's timer state (client reset).
func (s *TimerStore) Delete(sessionID string) error {
	_, err := s.db.Exec(`DELETE FROM timer_states WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("delete timer state: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTimerState(r rowScanner) (*model.TimerState, error) {
	var st model.TimerState
	var running int
	err := r.Scan(
		&st.SessionID, &st.EyeEndTime, &st.StretchEndTime, &st.WaterEndTime, &running,
		&st.LastNotifiedEye, &st.LastNotifiedStretch, &st.LastNotifiedWater, &st.SavedAt, &st.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	st.IsRunning = running != 0
	return &st, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
