// Package conversation defines conversation turns and the bounded context
// window included in generation requests.
package conversation

import "time"

// Roles for conversation turns.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message in a user's conversation, ordered by CreatedAt.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// DefaultMaxTurns bounds how much history a generation request carries.
// It is a service constant, never user-controlled: without the bound,
// request cost and latency grow with conversation length.
const DefaultMaxTurns = 10

// Window returns the most recent maxTurns entries of history in their
// original chronological order. Shorter histories are returned as-is.
// The input slice is never mutated; re-windowing an already windowed
// slice is a no-op.
func Window(history []Turn, maxTurns int) []Turn {
	if maxTurns <= 0 || len(history) <= maxTurns {
		return history
	}
	return history[len(history)-maxTurns:]
}
