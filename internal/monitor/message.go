package monitor

import "github.com/pausalabs/pausa/internal/model"

// Inbound message types, sent by the UI client to the monitor.
const (
	MsgStartChecking      = "START_CHECKING"
	MsgStopChecking       = "STOP_CHECKING"
	MsgSyncTimerState     = "SYNC_TIMER_STATE"
	MsgCheckTimers        = "CHECK_TIMERS"
	MsgAppResumed         = "APP_RESUMED"
	MsgResetCooldown      = "RESET_COOLDOWN"
	MsgResetAllCooldowns  = "RESET_ALL_COOLDOWNS"
	MsgTrialNotification  = "TRIAL_NOTIFICATION"
	MsgClearNotifications = "CLEAR_NOTIFICATIONS"
	MsgPing               = "PING"
)

// Outbound message types, broadcast by the monitor to connected UI clients.
const (
	MsgPong            = "PONG"
	MsgPlaySound       = "PLAY_NOTIFICATION_SOUND"
	MsgSnoozeRequested = "SNOOZE_REQUESTED"
	MsgFocusApp        = "FOCUS_APP"
)

// Message is the client-to-monitor control envelope. Fields beyond Type are
// populated per message type: State for SYNC_TIMER_STATE, TimerType for
// RESET_COOLDOWN, PlanName/DaysRemaining for TRIAL_NOTIFICATION.
type Message struct {
	Type          string             `json:"type"`
	State         *model.TimerState  `json:"state,omitempty"`
	TimerType     model.ReminderType `json:"timerType,omitempty"`
	PlanName      string             `json:"planName,omitempty"`
	DaysRemaining int                `json:"daysRemaining,omitempty"`
}

// SoundCommand asks every connected client to play the notification sound.
// RepeatCount and RepeatInterval shape the urgency: a live expiry repeats,
// a resume catch-up plays once.
type SoundCommand struct {
	Type           string             `json:"type"`
	ReminderType   model.ReminderType `json:"reminderType,omitempty"`
	Timestamp      int64              `json:"timestamp"`
	RepeatCount    int                `json:"repeatCount"`
	RepeatInterval int                `json:"repeatInterval"`
}

// SnoozeEvent tells clients a reminder was snoozed from a notification
// action, so open windows can reflect the deferred deadline. Duration is in
// milliseconds.
type SnoozeEvent struct {
	Type         string             `json:"type"`
	ReminderType model.ReminderType `json:"reminderType"`
	Duration     int64              `json:"duration"`
}

// FocusEvent asks clients to bring the application to the foreground. Sent
// when the user clicks a notification body rather than an action button.
type FocusEvent struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}
