package output

import (
	"context"

	"collectorkit/internal/domain/entities"
)

// Notifier delivers a notification over one channel.
type Notifier interface {
	Notify(ctx context.Context, n entities.Notification) error
}
