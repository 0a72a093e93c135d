package notify

import "context"

// Notifier asks the notification system to send pending meeting reminders
type Notifier interface {
	SendReminders(ctx context.Context) error
}
