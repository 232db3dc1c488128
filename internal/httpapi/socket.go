package httpapi

import (
	"context"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/huddlehq/huddle/internal/realtime"
	"github.com/huddlehq/huddle/internal/store"
)

const (
	socketWriteWait = 10 * time.Second
	socketPongWait  = 60 * time.Second
	socketPingEvery = 30 * time.Second
	socketDedupCap  = 512
)

func (s *Server) socketRoutes() {
	ws := s.app.Group("/ws", s.requireAuth, s.requireFeed)
	ws.Get("/threads/:id", s.requireThreadAccess, websocket.New(s.threadSession))
	ws.Get("/updates", websocket.New(s.updatesSession))
}

// requireFeed rejects websocket routes while the daemon runs degraded.
// Clients fall back to polling the conversation list.
func (s *Server) requireFeed(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	if s.feed == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "realtime feed unavailable"})
	}
	return c.Next()
}

// requireThreadAccess verifies membership before the upgrade; outsiders
// get a 403 response, not an opened-then-closed socket.
func (s *Server) requireThreadAccess(c *fiber.Ctx) error {
	threadID := c.Params("id")
	th, err := s.db.GetThread(threadID)
	if err != nil {
		return s.renderError(c, err)
	}
	if th == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "thread not found"})
	}
	ok, err := s.db.IsParticipant(threadID, currentUser(c))
	if err != nil {
		return s.renderError(c, err)
	}
	if !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "not a participant"})
	}
	return c.Next()
}

// threadSession streams a thread's new messages to one open viewer and
// accepts sends over the same socket. Opening the session marks the thread
// read, and so does every counterpart message delivered while it is open,
// since the viewer is by definition looking at the thread.
func (s *Server) threadSession(conn *websocket.Conn) {
	userID, _ := conn.Locals("userID").(string)
	threadID := conn.Params("id")
	logger := s.logger.With(zap.String("thread_id", threadID), zap.String("user_id", userID))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.readState.MarkRead(ctx, threadID, userID); err != nil {
		logger.Warn("mark read on open failed", zap.Error(err))
	}

	outbound := make(chan store.Message, 64)
	sub, err := s.feed.SubscribeThread(ctx, threadID, func(m *store.Message) {
		select {
		case outbound <- *m:
		default:
			logger.Warn("slow websocket client, dropping message", zap.String("message_id", m.ID))
		}
	})
	if err != nil {
		logger.Error("subscribe thread failed", zap.Error(err))
		_ = conn.Close()
		return
	}
	defer sub.Stop()

	done := make(chan struct{})
	go s.threadWriter(ctx, conn, logger, threadID, userID, outbound, done)

	conn.SetReadLimit(64 * 1024)
	_ = conn.SetReadDeadline(time.Now().Add(socketPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(socketPongWait))
	})

	for {
		var req struct {
			Body string `json:"body"`
		}
		if err := conn.ReadJSON(&req); err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(socketPongWait))
		if _, err := s.stream.Send(ctx, threadID, userID, req.Body); err != nil {
			logger.Warn("socket send rejected", zap.Error(err))
		}
	}

	cancel()
	<-done
}

// threadWriter owns all writes to the socket: deliveries, dedup and pings.
// The feed is at-least-once, so duplicates by message ID are dropped here.
func (s *Server) threadWriter(ctx context.Context, conn *websocket.Conn, logger *zap.Logger, threadID, userID string, outbound <-chan store.Message, done chan<- struct{}) {
	defer close(done)

	dedup := realtime.NewDedup(socketDedupCap)
	ping := time.NewTicker(socketPingEvery)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case m := <-outbound:
			if dedup.Seen(m.ID) {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
			if err := conn.WriteJSON(m); err != nil {
				_ = conn.Close()
				return
			}
			if m.SenderID != userID {
				if err := s.readState.MarkRead(context.Background(), threadID, userID); err != nil {
					logger.Warn("mark read on delivery failed", zap.Error(err))
				}
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = conn.Close()
				return
			}
		}
	}
}

// updatesSession streams conversation-list updates for the signed-in user.
// Read-only from the client's side.
func (s *Server) updatesSession(conn *websocket.Conn) {
	userID, _ := conn.Locals("userID").(string)
	logger := s.logger.With(zap.String("user_id", userID))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	outbound := make(chan realtime.ThreadUpdate, 64)
	sub, err := s.feed.SubscribeUpdates(ctx, userID, func(upd realtime.ThreadUpdate) {
		select {
		case outbound <- upd:
		default:
			logger.Warn("slow websocket client, dropping update")
		}
	})
	if err != nil {
		logger.Error("subscribe updates failed", zap.Error(err))
		_ = conn.Close()
		return
	}
	defer sub.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		ping := time.NewTicker(socketPingEvery)
		defer ping.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case upd := <-outbound:
				_ = conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
				if err := conn.WriteJSON(upd); err != nil {
					_ = conn.Close()
					return
				}
			case <-ping.C:
				_ = conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					_ = conn.Close()
					return
				}
			}
		}
	}()

	conn.SetReadLimit(1024)
	_ = conn.SetReadDeadline(time.Now().Add(socketPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(socketPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(socketPongWait))
	}

	cancel()
	<-done
}
