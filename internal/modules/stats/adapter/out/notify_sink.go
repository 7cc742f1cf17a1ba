package out

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/beeep"

	statsdto "recall/internal/modules/stats/dto"
)

// Notifier shows one desktop notification.
type Notifier func(title, message string) error

// BeeepNotifier posts through the platform notification center.
func BeeepNotifier(appName string) Notifier {
	return func(title, message string) error {
		beeep.AppName = appName
		return beeep.Notify(title, message, "")
	}
}

// NotifySink raises a notification when the data source changes tier, such
// as Live dropping to Fallback. The first publish only sets the baseline.
type NotifySink struct {
	notify Notifier

	mu     sync.Mutex
	source string
	seen   bool
}

func NewNotifySink(notify Notifier) *NotifySink {
	return &NotifySink{notify: notify}
}

func (s *NotifySink) OnStatsUpdated(_ context.Context, out statsdto.StatsOutput) error {
	s.mu.Lock()
	prev, seen := s.source, s.seen
	s.source, s.seen = out.DataSource, true
	s.mu.Unlock()

	if !seen || prev == out.DataSource || s.notify == nil {
		return nil
	}
	title := "recall: back online"
	if !out.Connected {
		title = "recall: offline"
	}
	if err := s.notify(title, fmt.Sprintf("Stats now from %s data (was %s)", out.DataSource, prev)); err != nil {
		return fmt.Errorf("notify source change: %w", err)
	}
	return nil
}
