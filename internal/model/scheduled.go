package model

import "time"

// Scheduled notification statuses.
const (
	ScheduleStatusPending   = "pending"
	ScheduleStatusSent      = "sent"
	ScheduleStatusCompleted = "completed"
	ScheduleStatusError     = "error"
)

// Scheduled notification target types.
const (
	TargetAll      = "all"
	TargetSpecific = "specific"
)

// ScheduledNotification is a one-off or recurring broadcast notification,
// created by an admin surface and driven to completion by the processor.
type ScheduledNotification struct {
	ID               int64     `json:"id"`
	Title            string    `json:"title"`
	Body             string    `json:"body"`
	Icon             string    `json:"icon,omitempty"`
	URL              string    `json:"url,omitempty"`
	ScheduledFor     int64     `json:"scheduledFor"`
	RecurrenceType   string    `json:"recurrenceType"`
	RecurrenceEnd    *int64    `json:"recurrenceEndDate,omitempty"`
	TargetType       string    `json:"targetType"`
	TargetSessionIDs []string  `json:"targetSessionIds,omitempty"`
	Status           string    `json:"status"`
	ErrorMessage     string    `json:"errorMessage,omitempty"`
	SentCount        int       `json:"sentCount"`
	FailedCount      int       `json:"failedCount"`
	NextRunAt        *int64    `json:"nextRunAt,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// NotificationHistory is one log entry appended per processed scheduled row,
// regardless of delivery outcome.
type NotificationHistory struct {
	ID                int64     `json:"id"`
	ScheduleID        int64     `json:"scheduleId"`
	Title             string    `json:"title"`
	Body              string    `json:"body"`
	TargetDescription string    `json:"targetDescription"`
	SentCount         int       `json:"sentCount"`
	FailedCount       int       `json:"failedCount"`
	ProcessedAt       time.Time `json:"processedAt"`
}
