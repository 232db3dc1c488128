package messaging

import (
	"context"
	"fmt"
	"sort"

	"github.com/huddlehq/huddle/internal/directory"
	"github.com/huddlehq/huddle/internal/store"
	"go.uber.org/zap"
)

// Summary is the derived projection rendered in the conversation sidebar:
// the counterpart's identity, the most recent message and the viewer's
// unread count. Recomputed on each fetch, never persisted.
type Summary struct {
	ThreadID    string             `json:"thread_id"`
	Counterpart directory.Identity `json:"counterpart"`
	LastMessage *store.Message     `json:"last_message,omitempty"`
	UnreadCount int                `json:"unread_count"`
	// SortedAt is the recency used for ordering: the last message's
	// timestamp, or the thread's creation time when no message exists yet.
	SortedAt int64 `json:"sorted_at"`
}

// Aggregator assembles conversation summaries for the sidebar list.
type Aggregator struct {
	db     *store.DB
	dir    *directory.Directory
	logger *zap.Logger
}

// NewAggregator creates a conversation list aggregator. logger may be nil
// in tests.
func NewAggregator(db *store.DB, dir *directory.Directory, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{db: db, dir: dir, logger: logger}
}

// ListConversations returns one summary per thread the user participates
// in, sorted descending by recency. The unread predicate lives in
// UnreadCount alone; the aggregator feeds it the fetched message set rather
// than duplicating the comparison in SQL.
func (a *Aggregator) ListConversations(ctx context.Context, userID string) ([]Summary, error) {
	threads, err := a.db.ThreadsForUser(userID)
	if err != nil {
		return nil, fmt.Errorf("threads for user: %w", err)
	}

	summaries := make([]Summary, 0, len(threads))
	for _, th := range threads {
		parts, err := a.db.Participants(th.ID)
		if err != nil {
			return nil, fmt.Errorf("participants of %s: %w", th.ID, err)
		}
		var viewer, counterpart *store.Participant
		for i := range parts {
			if parts[i].UserID == userID {
				viewer = &parts[i]
			} else {
				counterpart = &parts[i]
			}
		}
		if viewer == nil || counterpart == nil {
			// Threads always carry exactly two participants; anything else
			// is a data bug worth logging, not worth failing the list over.
			a.logger.Warn("thread with malformed participants", zap.String("thread_id", th.ID))
			continue
		}

		ident, err := a.dir.Lookup(ctx, counterpart.UserID)
		if err != nil {
			return nil, err
		}

		msgs, err := a.db.ListMessages(th.ID, 0, 0)
		if err != nil {
			return nil, fmt.Errorf("messages of %s: %w", th.ID, err)
		}

		sum := Summary{
			ThreadID:    th.ID,
			Counterpart: *ident,
			UnreadCount: UnreadCount(msgs, userID, viewer.LastReadAt),
			SortedAt:    th.CreatedAt,
		}
		if len(msgs) > 0 {
			last := msgs[len(msgs)-1]
			sum.LastMessage = &last
			sum.SortedAt = last.CreatedAt
		}
		summaries = append(summaries, sum)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].SortedAt > summaries[j].SortedAt
	})
	return summaries, nil
}
