package domain

import "time"

// AuthEventType names what happened to a credential.
type AuthEventType string

const (
	EventUserRegistered  AuthEventType = "user.registered"
	EventUserLoggedIn    AuthEventType = "user.logged_in"
	EventUserLoginFailed AuthEventType = "user.login_failed"
)

// AuthEvent is emitted after register and login attempts. It feeds the audit
// trail and the message queue.
type AuthEvent struct {
	ID         string        `json:"id" bson:"event_id"`
	Type       AuthEventType `json:"type" bson:"type"`
	Subject    string        `json:"subject,omitempty" bson:"subject,omitempty"`
	Email      string        `json:"email" bson:"email"`
	OccurredAt time.Time     `json:"occurred_at" bson:"occurred_at"`
}
