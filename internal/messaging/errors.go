package messaging

import "errors"

// Domain errors surfaced by the messaging core. The HTTP layer maps these
// to status codes.
var (
	ErrSelfThread           = errors.New("cannot open a thread with yourself")
	ErrThreadCreationFailed = errors.New("thread creation failed")
	ErrThreadNotFound       = errors.New("thread not found")
	ErrNotParticipant       = errors.New("not a participant of this thread")
	ErrEmptyBody            = errors.New("message body is empty")
)
