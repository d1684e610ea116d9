// Package broadcast fans booking status updates out to live subscribers
// over Redis pub/sub, one channel per booking.
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"

	"lokals/models"
	"lokals/utils"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Broadcaster publishes booking events and lets callers subscribe to the
// stream for a single booking.
type Broadcaster interface {
	Publish(ctx context.Context, event models.BookingEvent) error
	Subscribe(ctx context.Context, bookingID string) (<-chan models.BookingEvent, func())
}

// ChannelFor returns the pub/sub channel carrying updates for a booking.
func ChannelFor(bookingID string) string {
	return fmt.Sprintf("booking-updates:%s", bookingID)
}

// RedisBroadcaster implements Broadcaster on Redis pub/sub.
type RedisBroadcaster struct {
	Client *redis.Client
	Logger *zap.Logger
}

// NewRedisBroadcaster returns a Broadcaster backed by the shared pub/sub client.
func NewRedisBroadcaster() *RedisBroadcaster {
	return &RedisBroadcaster{
		Client: utils.GetPubSubClient(),
		Logger: utils.GetLogger(),
	}
}

func (b *RedisBroadcaster) Publish(ctx context.Context, event models.BookingEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal booking event: %w", err)
	}
	if err := b.Client.Publish(ctx, ChannelFor(event.BookingID), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish booking event: %w", err)
	}
	return nil
}

// Subscribe opens a live stream of events for one booking. The returned
// cancel func must be called to release the underlying subscription; the
// event channel is closed once the subscription ends.
func (b *RedisBroadcaster) Subscribe(ctx context.Context, bookingID string) (<-chan models.BookingEvent, func()) {
	sub := b.Client.Subscribe(ctx, ChannelFor(bookingID))
	out := make(chan models.BookingEvent, 8)

	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			var event models.BookingEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.Logger.Warn("dropping malformed booking event",
					zap.String("bookingID", bookingID), zap.Error(err))
				continue
			}
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	cancel := func() {
		if err := sub.Close(); err != nil {
			b.Logger.Debug("error closing subscription",
				zap.String("bookingID", bookingID), zap.Error(err))
		}
	}
	return out, cancel
}
