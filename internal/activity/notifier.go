package activity

import "github.com/banshee-data/activity.report/internal/monitoring"

// Notifier triggers user-facing side effects. Calls are fire-and-forget:
// implementations must not block for long and are never retried.
type Notifier interface {
	// NotifySuccess signals that a step milestone was reached.
	NotifySuccess()
	// NotifyWarning signals that the inactivity timeout elapsed.
	NotifyWarning()
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) NotifySuccess() {}
func (NopNotifier) NotifyWarning() {}

// LogNotifier writes notifications to the diagnostic log.
type LogNotifier struct{}

func (LogNotifier) NotifySuccess() { monitoring.Logf("notify: success") }
func (LogNotifier) NotifyWarning() { monitoring.Logf("notify: warning") }

// MultiNotifier fans a notification out to several notifiers in order.
type MultiNotifier []Notifier

func (m MultiNotifier) NotifySuccess() {
	for _, n := range m {
		n.NotifySuccess()
	}
}

func (m MultiNotifier) NotifyWarning() {
	for _, n := range m {
		n.NotifyWarning()
	}
}
