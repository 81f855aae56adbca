package ticket

import "time"

// TicketStatus represents the current state of a ticket
type TicketStatus string

const (
	StatusUninitialized TicketStatus = "uninitialized" // Persisted, not yet picked up
	StatusProcessing    TicketStatus = "processing"    // A worker is generating the answer
	StatusDone          TicketStatus = "done"          // Answer available
)

// statusRank orders the lifecycle. Transitions never move backwards.
var statusRank = map[TicketStatus]int{
	StatusUninitialized: 0,
	StatusProcessing:    1,
	StatusDone:          2,
}

// Valid reports whether s is a known status value.
func (s TicketStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// CanTransitionTo reports whether moving from s to next respects the
// forward-only lifecycle.
func (s TicketStatus) CanTransitionTo(next TicketStatus) bool {
	cur, ok := statusRank[s]
	if !ok {
		return false
	}
	nxt, ok := statusRank[next]
	if !ok {
		return false
	}
	return nxt >= cur
}

// Ticket is the persisted unit of work. Timestamps are stored as RFC 3339
// strings to match the wire format of the store.
type Ticket struct {
	ID        string       `json:"id"`
	Question  string       `json:"question"`
	Status    TicketStatus `json:"status"`
	CreatedAt string       `json:"created_at"`
	UpdatedAt string       `json:"updated_at"`
	Answer    *string      `json:"answer,omitempty"`
	Note      *string      `json:"note,omitempty"`
}

// New builds a ticket in the uninitialized state with both timestamps set
// to now.
func New(id, question string) *Ticket {
	now := time.Now().Format(time.RFC3339Nano)
	return &Ticket{
		ID:        id,
		Question:  question,
		Status:    StatusUninitialized,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch refreshes the updated_at timestamp, never moving it backwards.
func (t *Ticket) Touch() {
	now := time.Now()
	if prev, err := time.Parse(time.RFC3339Nano, t.UpdatedAt); err == nil && now.Before(prev) {
		return
	}
	t.UpdatedAt = now.Format(time.RFC3339Nano)
}

// IsDone checks if this ticket has reached its terminal state.
func (t *Ticket) IsDone() bool {
	return t.Status == StatusDone
}
