package model

import "time"

// PushSubscription maps a client identity to a Web Push endpoint and its
// encryption keys. One row per device/browser installation; endpoint is
// unique. Deactivated (not deleted) when the push service reports the
// endpoint gone, so the audit trail survives.
type PushSubscription struct {
	ID                 int64      `json:"id"`
	SessionID          string     `json:"sessionId"`
	UserID             string     `json:"userId,omitempty"`
	DeviceToken        string     `json:"deviceToken,omitempty"`
	Endpoint           string     `json:"endpoint"`
	P256dhKey          string     `json:"p256dh"`
	AuthKey            string     `json:"auth"`
	IsActive           bool       `json:"isActive"`
	LastPushReceivedAt *time.Time `json:"lastPushReceivedAt,omitempty"`
	LastPushTitle      string     `json:"lastPushTitle,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}
