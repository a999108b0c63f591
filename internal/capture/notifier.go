package capture

import "plate_reader/internal/domain"

// MultiNotifier forwards every notification to each of its members.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(n domain.CaptureNotification) {
	for _, target := range m {
		if target != nil {
			target.Notify(n)
		}
	}
}
