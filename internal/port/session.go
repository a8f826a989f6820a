package port

import "ragchat/internal/domain"

// SessionStore keeps per-session conversation history.
type SessionStore interface {
	// Create starts a new empty session and returns its ID.
	Create() string

	// Exists reports whether the session is live, refreshing its idle timer.
	Exists(id string) bool

	Messages(id string) []domain.Message

	Append(id string, msgs ...domain.Message)

	Clear(id string)
}
