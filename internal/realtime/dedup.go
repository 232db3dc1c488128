package realtime

// Dedup filters at-least-once feed deliveries down to exactly-once for a
// single websocket session. Capacity bounds memory; the oldest IDs are
// evicted first.
type Dedup struct {
	seen  map[string]struct{}
	order []string
	cap   int
}

// NewDedup creates a dedup filter remembering up to capacity IDs.
func NewDedup(capacity int) *Dedup {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Dedup{
		seen: make(map[string]struct{}, capacity),
		cap:  capacity,
	}
}

// Seen records id and reports whether it was already present.
func (d *Dedup) Seen(id string) bool {
	if _, ok := d.seen[id]; ok {
		return true
	}
	if len(d.order) >= d.cap {
		oldest := d.order[0]
		d.order = d.order[1:]
		delete(d.seen, oldest)
	}
	d.seen[id] = struct{}{}
	d.order = append(d.order, id)
	return false
}

// Len returns the number of remembered IDs.
func (d *Dedup) Len() int {
	return len(d.seen)
}
