package pagecache

import "github.com/rs/zerolog"

// NotificationLevel is the severity of a Notification
type NotificationLevel string

const (
	NotificationSuccess NotificationLevel = "success"
	NotificationError   NotificationLevel = "error"
)

// Notification is a transient, user-facing message about a mutation
type Notification struct {
	Level   NotificationLevel
	Message string
	Err     error
}

// Notifier receives mutation notifications
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(Notification)

// Notify calls f(n)
func (f NotifierFunc) Notify(n Notification) {
	f(n)
}

// LogNotifier writes notifications to a zerolog logger
type LogNotifier struct {
	Logger zerolog.Logger
}

// Notify logs n at info level, or error level for failures
func (l LogNotifier) Notify(n Notification) {
	event := l.Logger.Info()
	if n.Level == NotificationError {
		event = l.Logger.Error().Err(n.Err)
	}
	event.Str("notification", string(n.Level)).Msg(n.Message)
}
