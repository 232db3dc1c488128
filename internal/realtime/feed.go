// Package realtime carries newly stored messages to connected browsers.
// The in-process bus feeds a relay that republishes onto NATS JetStream;
// websocket sessions consume per-thread subjects from there. Delivery is
// at-least-once, so consumers deduplicate by message ID.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/huddlehq/huddle/internal/store"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"
)

const (
	streamName    = "HUDDLE_MSGS"
	msgSubjects   = "msgs.*"    // msgs.<threadID>
	userSubjects  = "updates.*" // updates.<userID>
	feedRetention = 24 * time.Hour
)

// ThreadUpdate is the lightweight per-user event that keeps the
// conversation sidebar fresh without a full refetch.
type ThreadUpdate struct {
	ThreadID     string `json:"thread_id"`
	LastSenderID string `json:"last_sender_id"`
	LastBody     string `json:"last_body"`
	UpdatedAt    int64  `json:"updated_at"`
}

// Feed is the NATS JetStream change-feed for message and thread events.
type Feed struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger *zap.Logger
}

// Connect dials NATS and ensures the feed stream exists.
func Connect(url string, logger *zap.Logger) (*Feed, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = js.Stream(ctx, streamName)
	if err != nil {
		logger.Info("feed stream not found, creating", zap.String("stream", streamName))
		_, err = js.CreateStream(ctx, jetstream.StreamConfig{
			Name:        streamName,
			Description: "Message and conversation-list change feed",
			Subjects:    []string{msgSubjects, userSubjects},
			MaxAge:      feedRetention,
			Storage:     jetstream.FileStorage,
		})
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("create stream %q: %w", streamName, err)
		}
	}

	return &Feed{nc: nc, js: js, logger: logger}, nil
}

// Close closes the NATS connection. Safe to call on nil receiver.
func (f *Feed) Close() {
	if f == nil || f.nc == nil {
		return
	}
	f.nc.Close()
}

// PublishMessage publishes a stored message to its thread subject.
func (f *Feed) PublishMessage(ctx context.Context, m *store.Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	subject := "msgs." + m.ThreadID
	if _, err := f.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("publish to %q: %w", subject, err)
	}
	return nil
}

// PublishThreadUpdate publishes a sidebar update to a participant's subject.
func (f *Feed) PublishThreadUpdate(ctx context.Context, userID string, upd ThreadUpdate) error {
	data, err := json.Marshal(upd)
	if err != nil {
		return fmt.Errorf("marshal thread update: %w", err)
	}
	subject := "updates." + userID
	if _, err := f.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("publish to %q: %w", subject, err)
	}
	return nil
}

// SubscribeThread delivers messages inserted into one thread, starting from
// now. The returned ConsumeContext must be stopped when the viewer switches
// threads or disconnects; there is one live subscription per open thread.
func (f *Feed) SubscribeThread(ctx context.Context, threadID string, handler func(*store.Message)) (jetstream.ConsumeContext, error) {
	subject := "msgs." + threadID
	cons, err := f.js.CreateOrUpdateConsumer(ctx, streamName, jetstream.ConsumerConfig{
		FilterSubject: subject,
		DeliverPolicy: jetstream.DeliverNewPolicy,
		AckPolicy:     jetstream.AckNonePolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("create consumer for %q: %w", subject, err)
	}

	consumeCtx, err := cons.Consume(func(jsMsg jetstream.Msg) {
		var m store.Message
		if err := json.Unmarshal(jsMsg.Data(), &m); err != nil {
			f.logger.Warn("bad message on feed", zap.Error(err), zap.String("subject", jsMsg.Subject()))
			return
		}
		handler(&m)
	})
	if err != nil {
		return nil, fmt.Errorf("consume %q: %w", subject, err)
	}
	return consumeCtx, nil
}

// SubscribeUpdates delivers conversation-list updates for one user,
// starting from now.
func (f *Feed) SubscribeUpdates(ctx context.Context, userID string, handler func(ThreadUpdate)) (jetstream.ConsumeContext, error) {
	subject := "updates." + userID
	cons, err := f.js.CreateOrUpdateConsumer(ctx, streamName, jetstream.ConsumerConfig{
		FilterSubject: subject,
		DeliverPolicy: jetstream.DeliverNewPolicy,
		AckPolicy:     jetstream.AckNonePolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("create consumer for %q: %w", subject, err)
	}

	consumeCtx, err := cons.Consume(func(jsMsg jetstream.Msg) {
		var upd ThreadUpdate
		if err := json.Unmarshal(jsMsg.Data(), &upd); err != nil {
			f.logger.Warn("bad update on feed", zap.Error(err), zap.String("subject", jsMsg.Subject()))
			return
		}
		handler(upd)
	})
	if err != nil {
		return nil, fmt.Errorf("consume %q: %w", subject, err)
	}
	return consumeCtx, nil
}
