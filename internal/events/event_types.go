package events

import (
	"time"

	"github.com/campus-nfc/card-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered         EventType = "user.registered"
	EventUserCreated            EventType = "user.created"
	EventUserApproved           EventType = "user.approved"
	EventUserRejected           EventType = "user.rejected"
	EventUserActivated          EventType = "user.activated"
	EventUserDeactivated        EventType = "user.deactivated"
	EventNFCAssigned            EventType = "user.nfc_assigned"
	EventPasswordResetRequested EventType = "password.reset_requested"
	EventPasswordChanged        EventType = "password.changed"
	EventPermissionChanged      EventType = "staff.permission_changed"
)

// TransitionEventType maps a workflow transition to the event it emits.
func TransitionEventType(t domain.Transition) EventType {
	switch t {
	case domain.TransitionApprove:
		return EventUserApproved
	case domain.TransitionReject:
		return EventUserRejected
	case domain.TransitionActivate:
		return EventUserActivated
	default:
		return EventUserDeactivated
	}
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID string      `json:"user_id,omitempty"`
	Role   domain.Role `json:"role,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(eventType EventType, userID string, actor Actor, payload interface{}) Event {
	return Event{
		ID:        NewID(),
		Type:      eventType,
		UserID:    userID,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// Recipient is the addressee snapshot captured when the event fires. Rejected
// users are deleted, so notifications cannot look them up afterwards.
type Recipient struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// RecipientOf snapshots the contact details of u.
func RecipientOf(u *domain.User) Recipient {
	return Recipient{Email: u.Email, FirstName: u.FirstName, LastName: u.LastName}
}

// UserRegisteredPayload payload.
type UserRegisteredPayload struct {
	Recipient  Recipient   `json:"recipient"`
	Role       domain.Role `json:"role"`
	Department string      `json:"department"`
	CardNumber string      `json:"card_number"`
}

// StateChangedPayload is emitted for approve, reject, activate and deactivate.
type StateChangedPayload struct {
	Recipient Recipient           `json:"recipient"`
	From      domain.AccountState `json:"from"`
	To        domain.AccountState `json:"to"`
}

// NFCAssignedPayload payload.
type NFCAssignedPayload struct {
	Recipient Recipient `json:"recipient"`
	NFCID     string    `json:"nfc_id"`
}

// PasswordResetRequestedPayload payload.
type PasswordResetRequestedPayload struct {
	Recipient Recipient `json:"recipient"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PasswordChangedPayload payload.
type PasswordChangedPayload struct {
	Recipient Recipient `json:"recipient"`
}

// PermissionChangedPayload is emitted when an admin toggles staff approval rights.
type PermissionChangedPayload struct {
	Allowed bool `json:"allowed"`
}
