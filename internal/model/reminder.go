package model

// ReminderType identifies one of the wellness break timers.
type ReminderType string

const (
	ReminderEye     ReminderType = "eye"
	ReminderStretch ReminderType = "stretch"
	ReminderWater   ReminderType = "water"
)

// ReminderTypes lists all timer types in evaluation order.
func ReminderTypes() []ReminderType {
	return []ReminderType{ReminderEye, ReminderStretch, ReminderWater}
}

// Valid reports whether t is a known reminder type.
func (t ReminderType) Valid() bool {
	switch t {
	case ReminderEye, ReminderStretch, ReminderWater:
		return true
	}
	return false
}

// Title returns the notification title for the reminder type.
func (t ReminderType) Title() string {
	switch t {
	case ReminderEye:
		return "Eye break"
	case ReminderStretch:
		return "Stretch break"
	case ReminderWater:
		return "Water break"
	}
	return "Wellness break"
}

// Body returns the notification body for the reminder type.
func (t ReminderType) Body() string {
	switch t {
	case ReminderEye:
		return "Look away from the screen and rest your eyes for 20 seconds."
	case ReminderStretch:
		return "Stand up and stretch for a minute."
	case ReminderWater:
		return "Time to drink some water."
	}
	return "Time for a break."
}

// Tag returns the notification tag for the reminder type. Raising a second
// notification with the same tag replaces the first instead of stacking.
func (t ReminderType) Tag() string {
	return "pausa-" + string(t)
}
