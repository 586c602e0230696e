package model

import "time"

// TimerState is the durable record of a client session's running countdown
// timers. Deadlines and notification timestamps are epoch milliseconds to
// match the client wire contract.
type TimerState struct {
	SessionID           string    `json:"sessionId"`
	EyeEndTime          *int64    `json:"eyeEndTime"`
	StretchEndTime      *int64    `json:"stretchEndTime"`
	WaterEndTime        *int64    `json:"waterEndTime"`
	IsRunning           bool      `json:"isRunning"`
	LastNotifiedEye     int64     `json:"lastNotifiedEye"`
	LastNotifiedStretch int64     `json:"lastNotifiedStretch"`
	LastNotifiedWater   int64     `json:"lastNotifiedWater"`
	SavedAt             int64     `json:"savedAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// EndTime returns the deadline for the given timer type, or nil if the timer
// is not set.
func (s *TimerState) EndTime(t ReminderType) *int64 {
	switch t {
	case ReminderEye:
		return s.EyeEndTime
	case ReminderStretch:
		return s.StretchEndTime
	case ReminderWater:
		return s.WaterEndTime
	}
	return nil
}

// LastNotified returns the epoch-millisecond timestamp of the last
// notification attempt for the given timer type (0 = never).
func (s *TimerState) LastNotified(t ReminderType) int64 {
	switch t {
	case ReminderEye:
		return s.LastNotifiedEye
	case ReminderStretch:
		return s.LastNotifiedStretch
	case ReminderWater:
		return s.LastNotifiedWater
	}
	return 0
}

// SetLastNotified records a notification attempt timestamp for the given type.
func (s *TimerState) SetLastNotified(t ReminderType, ms int64) {
	switch t {
	case ReminderEye:
		s.LastNotifiedEye = ms
	case ReminderStretch:
		s.LastNotifiedStretch = ms
	case ReminderWater:
		s.LastNotifiedWater = ms
	}
}
