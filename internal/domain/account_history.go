package domain

import "time"

// AccountChangeType captures what changed in a history entry.
type AccountChangeType string

const (
	ChangeTypeCreated    AccountChangeType = "ACCOUNT_CREATED"
	ChangeTypeState      AccountChangeType = "STATE_CHANGE"
	ChangeTypeNFC        AccountChangeType = "NFC_CHANGE"
	ChangeTypeDeleted    AccountChangeType = "ACCOUNT_DELETED"
	ChangeTypePermission AccountChangeType = "PERMISSION_CHANGE"
)

// AccountHistory is an immutable audit trail entry. Entries outlive the
// account so rejections stay traceable.
type AccountHistory struct {
	ID            string
	UserID        string
	ChangedByID   *string
	ChangedByRole Role
	ChangeType    AccountChangeType
	EventType     string
	OldValue      map[string]any
	NewValue      map[string]any
	CreatedAt     time.Time
}
