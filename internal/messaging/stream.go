package messaging

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/huddlehq/huddle/internal/bus"
	"github.com/huddlehq/huddle/internal/store"
	"go.uber.org/zap"
)

// MessageEvent is the payload of "message.created" bus events. It carries
// the participant IDs so downstream consumers can fan out without another
// query.
type MessageEvent struct {
	Message      store.Message
	Participants []string
}

// Stream is the append-only message list of a thread: the source of truth
// for both display and unread computation.
type Stream struct {
	db     *store.DB
	bus    *bus.Bus
	logger *zap.Logger
}

// NewStream creates a message stream service. bus and logger may be nil in
// tests.
func NewStream(db *store.DB, b *bus.Bus, logger *zap.Logger) *Stream {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stream{db: db, bus: b, logger: logger}
}

// Messages returns a page of the thread's messages in ascending creation
// order, newest page first when beforeTS/limit are set. Only participants
// may read a thread.
func (s *Stream) Messages(_ context.Context, threadID, viewerID string, beforeTS int64, limit int) ([]store.Message, error) {
	if err := s.requireParticipant(threadID, viewerID); err != nil {
		return nil, err
	}
	msgs, err := s.db.ListMessages(threadID, beforeTS, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

// Send appends a message to the thread. The body is trimmed and must be
// non-empty. The thread's last-activity timestamp is bumped as a side
// effect (it drives conversation-list sort order), and a "message.created"
// event is published for the realtime relay. The stored message, including
// its server-assigned ID and timestamp, is returned so the caller can
// render it confirmed.
func (s *Stream) Send(_ context.Context, threadID, senderID, body string) (*store.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyBody
	}
	if err := s.requireParticipant(threadID, senderID); err != nil {
		return nil, err
	}

	m := &store.Message{
		ID:        uuid.NewString(),
		ThreadID:  threadID,
		SenderID:  senderID,
		Body:      body,
		CreatedAt: time.Now().UnixMilli(),
	}
	if err := s.db.InsertMessage(m); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	if err := s.db.TouchThread(threadID, m.CreatedAt); err != nil {
		// The message is already stored; a stale updated_at only affects
		// list ordering until the next send. Log and carry on.
		s.logger.Warn("touch thread failed", zap.Error(err), zap.String("thread_id", threadID))
	}

	if s.bus != nil {
		participants, err := s.db.Participants(threadID)
		if err != nil {
			s.logger.Warn("load participants for event failed", zap.Error(err))
		}
		ids := make([]string, 0, len(participants))
		for _, p := range participants {
			ids = append(ids, p.UserID)
		}
		s.bus.Publish(bus.Event{
			Kind:      "message.created",
			Timestamp: time.Now(),
			Payload:   &MessageEvent{Message: *m, Participants: ids},
		})
	}

	return m, nil
}

func (s *Stream) requireParticipant(threadID, userID string) error {
	th, err := s.db.GetThread(threadID)
	if err != nil {
		return fmt.Errorf("get thread: %w", err)
	}
	if th == nil {
		return ErrThreadNotFound
	}
	ok, err := s.db.IsParticipant(threadID, userID)
	if err != nil {
		return fmt.Errorf("check participant: %w", err)
	}
	if !ok {
		return ErrNotParticipant
	}
	return nil
}
