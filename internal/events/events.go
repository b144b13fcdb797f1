package events

import "time"

// Event types for account lifecycle transitions.
const (
	UserRegistered  = "user.registered"
	UserUpdated     = "user.updated"
	UserDeactivated = "user.deactivated"
)

// Stream names
const (
	UserEventsStream = "user.events"
)

// Event is the envelope carried on the stream.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// UserRegisteredEvent is published once per successful registration.
type UserRegisteredEvent struct {
	AccountID string `json:"accountId"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

// UserUpdatedEvent carries only the fields the caller supplied.
type UserUpdatedEvent struct {
	AccountID     string         `json:"accountId"`
	UpdatedFields map[string]any `json:"updatedFields"`
}

type UserDeactivatedEvent struct {
	AccountID string `json:"accountId"`
}
