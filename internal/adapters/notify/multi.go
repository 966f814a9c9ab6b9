// Package notify fans notifications out to several channels.
package notify

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"collectorkit/internal/domain/entities"
	"collectorkit/internal/observability/metrics"
	"collectorkit/internal/ports/output"
)

var _ output.Notifier = (*MultiNotifier)(nil)

// Channel is a named notifier; the name labels metrics and errors.
type Channel struct {
	Name     string
	Notifier output.Notifier
}

// MultiNotifier dispatches notifications to multiple channels.
type MultiNotifier struct {
	channels []Channel
}

// NewMultiNotifier constructs a MultiNotifier. Channels without a notifier are
// skipped.
func NewMultiNotifier(channels ...Channel) *MultiNotifier {
	m := &MultiNotifier{}
	for _, c := range channels {
		if c.Notifier != nil {
			m.channels = append(m.channels, c)
		}
	}
	return m
}

// Len returns the number of active channels.
func (m *MultiNotifier) Len() int { return len(m.channels) }

// Notify forwards n to every channel, even after a failure, and returns the
// failures combined.
func (m *MultiNotifier) Notify(ctx context.Context, n entities.Notification) error {
	var errs error
	for _, c := range m.channels {
		if err := c.Notifier.Notify(ctx, n); err != nil {
			metrics.Notification(c.Name, metrics.ResultError)
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", c.Name, err))
			continue
		}
		metrics.Notification(c.Name, metrics.ResultSuccess)
	}
	return errs
}
