package realtime

import (
	"context"

	"github.com/huddlehq/huddle/internal/bus"
	"github.com/huddlehq/huddle/internal/messaging"
	"github.com/huddlehq/huddle/internal/store"
	"go.uber.org/zap"
)

// Publisher is the slice of the feed the relay needs.
type Publisher interface {
	PublishMessage(ctx context.Context, m *store.Message) error
	PublishThreadUpdate(ctx context.Context, userID string, upd ThreadUpdate) error
}

// Relay bridges the in-process bus onto the external change feed. It
// subscribes to "message." events and republishes each as a per-thread
// message plus per-participant sidebar updates.
type Relay struct {
	pub    Publisher
	bus    *bus.Bus
	logger *zap.Logger
	cancel context.CancelFunc
}

// NewRelay creates a relay. logger may be nil in tests.
func NewRelay(pub Publisher, b *bus.Bus, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{pub: pub, bus: b, logger: logger}
}

// Start subscribes to message events on the bus.
func (r *Relay) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	ch, unsub := r.bus.Subscribe("message.", 256)

	go func() {
		defer unsub()
		for {
			select {
			case evt := <-ch:
				r.handleEvent(ctx, evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the relay.
func (r *Relay) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
}

func (r *Relay) handleEvent(ctx context.Context, evt bus.Event) {
	if evt.Kind != "message.created" {
		return
	}
	me, ok := evt.Payload.(*messaging.MessageEvent)
	if !ok {
		return
	}

	if err := r.pub.PublishMessage(ctx, &me.Message); err != nil {
		r.logger.Error("failed to publish message to feed",
			zap.Error(err), zap.String("msg_id", me.Message.ID))
		// Connected viewers miss the push; the polling fallback and the
		// next fetch still converge on the stored message.
		return
	}

	upd := ThreadUpdate{
		ThreadID:     me.Message.ThreadID,
		LastSenderID: me.Message.SenderID,
		LastBody:     me.Message.Body,
		UpdatedAt:    me.Message.CreatedAt,
	}
	for _, userID := range me.Participants {
		if err := r.pub.PublishThreadUpdate(ctx, userID, upd); err != nil {
			r.logger.Error("failed to publish thread update",
				zap.Error(err), zap.String("user_id", userID))
		}
	}
}
