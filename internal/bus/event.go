package bus

import "time"

// Event represents a domain event published on the bus.
//
// Kinds are dot-separated namespaces: "message.created" for newly stored
// messages and "daemon.status_changed" for runtime state transitions.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
