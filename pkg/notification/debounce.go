package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const defaultDebounceWindow = 24 * time.Hour

// DedupeStore is the slice of the redis API the debouncer needs.
// redis.UniversalClient satisfies it.
type DedupeStore interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// Debouncer suppresses duplicate sends of the same template to the same
// recipient within a window. Used for re-auth prompts, where the monitor may
// detect the same unresolved expiry on every sweep.
type Debouncer struct {
	next   Dispatcher
	client DedupeStore
	window time.Duration
	logger *slog.Logger
}

// NewDebouncer wraps a dispatcher with redis-backed deduplication. A zero
// window falls back to 24h.
func NewDebouncer(next Dispatcher, client DedupeStore, window time.Duration, logger *slog.Logger) *Debouncer {
	if window <= 0 {
		window = defaultDebounceWindow
	}

	return &Debouncer{
		next:   next,
		client: client,
		window: window,
		logger: logger.With("module", "notification_debouncer"),
	}
}

// Send forwards the message unless an identical template/recipient pair was
// sent within the window. If redis is unreachable the message is sent anyway:
// a duplicate prompt beats a silently dropped one.
func (d *Debouncer) Send(ctx context.Context, msg Message) error {
	key := fmt.Sprintf("mailbridge:notify:%s:%s", msg.Template, msg.To)

	acquired, err := d.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), d.window).Result()
	if err != nil {
		d.logger.Warn("Debounce check failed, sending anyway", "to", msg.To, "template", msg.Template, "error", err)

		return d.next.Send(ctx, msg)
	}

	if !acquired {
		d.logger.Debug("Notification debounced", "to", msg.To, "template", msg.Template)

		return nil
	}

	return d.next.Send(ctx, msg)
}
