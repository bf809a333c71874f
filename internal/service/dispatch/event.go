package dispatch

import (
	"time"

	"github.com/zhouzirui/arix-mart/backend/internal/model/chat"
)

// State is the dispatcher's request lifecycle state.
type State string

const (
	StateIdle        State = "idle"
	StateDispatching State = "dispatching"
)

// Busy reports whether input must be disabled.
func (s State) Busy() bool {
	return s == StateDispatching
}

// PendingRequest is the single request in flight.
type PendingRequest struct {
	Prompt   string    `json:"prompt"`
	IssuedAt time.Time `json:"issuedAt"`
}

// EventKind tells presentation layers what changed.
type EventKind string

const (
	EventTurn    EventKind = "turn"
	EventCleared EventKind = "cleared"
	EventState   EventKind = "state"
)

// Event notifies listeners of a transcript or state change. Cleared events
// carry the reset turn and invalidate any view state a listener holds.
type Event struct {
	Seq   uint64     `json:"seq"`
	Kind  EventKind  `json:"kind"`
	Turn  *chat.Turn `json:"turn,omitempty"`
	State State      `json:"state"`
	Busy  bool       `json:"busy"`
}

// Snapshot is a consistent copy of a dispatcher's visible state.
type Snapshot struct {
	State   State           `json:"state"`
	Busy    bool            `json:"busy"`
	Pending *PendingRequest `json:"pending,omitempty"`
	Turns   []chat.Turn     `json:"turns"`
}
