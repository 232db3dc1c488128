package store

// Profile is a registered business profile in the directory.
type Profile struct {
	ID           string
	Email        string
	PasswordHash string
	DisplayName  string
	Title        string
	Company      string
	AvatarURL    string
	CreatedAt    int64
}

// Thread is a conversation container between exactly two participants.
// PairKey is derived from the two participant IDs and unique per pair.
type Thread struct {
	ID        string
	PairKey   string
	CreatedAt int64
	UpdatedAt int64
}

// Participant is a user's membership record within a thread.
// LastReadAt is nil until the user first views the thread.
type Participant struct {
	ThreadID   string
	UserID     string
	LastReadAt *int64
}

// Message is an immutable unit of conversation content. Messages are
// append-only: never edited or deleted.
type Message struct {
	ID        string `json:"id"`
	ThreadID  string `json:"thread_id"`
	SenderID  string `json:"sender_id"`
	Body      string `json:"body"`
	CreatedAt int64  `json:"created_at"`
}
