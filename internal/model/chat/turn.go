package chat

import (
	"time"

	"github.com/google/uuid"
)

// Role attributes a turn to one side of the conversation.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one immutable message of the visible transcript.
type Turn struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewTurn stamps a turn with a fresh identifier.
func NewTurn(role Role, text string, at time.Time) Turn {
	return Turn{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		CreatedAt: at,
	}
}

// UserTurn builds a turn attributed to the user.
func UserTurn(text string, at time.Time) Turn {
	return NewTurn(RoleUser, text, at)
}

// AssistantTurn builds a turn attributed to the assistant.
func AssistantTurn(text string, at time.Time) Turn {
	return NewTurn(RoleAssistant, text, at)
}

// IsUser reports whether the user authored the turn.
func (t Turn) IsUser() bool {
	return t.Role == RoleUser
}

// Clock renders the bubble timestamp, e.g. "03:04 PM".
func (t Turn) Clock() string {
	return t.CreatedAt.Local().Format("03:04 PM")
}
