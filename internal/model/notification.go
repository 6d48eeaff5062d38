package model

import "time"

// NotificationType selects how a notification is presented.
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
	NotificationWarning NotificationType = "warning"
	NotificationInfo    NotificationType = "info"
)

// Icon returns the chat glyph for the notification type.
func (t NotificationType) Icon() string {
	switch t {
	case NotificationSuccess:
		return "✅"
	case NotificationError:
		return "❌"
	case NotificationWarning:
		return "⚠️"
	default:
		return "ℹ️"
	}
}

// NotificationAction is an optional button attached to a notification.
type NotificationAction struct {
	Label   string
	Handler func()
}

// Notification is a short-lived user-facing message.
// A zero Duration keeps it until dismissed.
type Notification struct {
	ID        string
	Type      NotificationType
	Title     string
	Message   string
	Duration  time.Duration
	Action    *NotificationAction
	CreatedAt time.Time
}
