package domain

import (
	"strings"
	"time"
)

// Role enumerates account kinds. A user's role never changes after creation.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStaff   Role = "staff"
	RoleStudent Role = "student"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleStudent:
		return true
	}
	return false
}

// AccountState is the lifecycle state of a user account.
type AccountState string

const (
	StatePending  AccountState = "pending"
	StateApproved AccountState = "approved"
	StateActive   AccountState = "active"
	// StateRejected is terminal. Rejected accounts are deleted, so the state
	// only appears in transition outcomes and events, never in storage.
	StateRejected AccountState = "rejected"
)

// Valid reports whether s is a storable state.
func (s AccountState) Valid() bool {
	switch s {
	case StatePending, StateApproved, StateActive:
		return true
	}
	return false
}

// User is a card holder: admin, staff member or student.
type User struct {
	ID                 string
	FirstName          string
	LastName           string
	Email              string
	PasswordHash       string
	CardNumber         string
	NFCID              *string
	ImageKey           *string
	Role               Role
	Department         string
	State              AccountState
	CanApproveStudents bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// FullName joins the display name parts.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// IsApproved mirrors the legacy isApproved flag.
func (u *User) IsApproved() bool {
	return u.State == StateApproved || u.State == StateActive
}

// IsActive mirrors the legacy isActive flag.
func (u *User) IsActive() bool {
	return u.State == StateActive
}

// Usable reports whether the account may use the system.
func (u *User) Usable() bool {
	return u.State == StateActive
}

// CardID is the identifier presented to NFC readers; users without an
// assigned tag fall back to their account id.
func (u *User) CardID() string {
	if u.NFCID != nil && *u.NFCID != "" {
		return *u.NFCID
	}
	return u.ID
}

// UserPatch carries a partial update. Nil fields are left untouched.
// Role is immutable and has no patch field.
type UserPatch struct {
	FirstName          *string
	LastName           *string
	PasswordHash       *string
	State              *AccountState
	NFCID              *string
	ImageKey           *string
	CanApproveStudents *bool
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.PasswordHash == nil && p.State == nil &&
		p.NFCID == nil && p.ImageKey == nil && p.CanApproveStudents == nil
}

// UserFilter narrows directory listings.
type UserFilter struct {
	Role       *Role
	Department *string
	State      *AccountState
	Search     string
	Limit      int
	Offset     int
}

// SameDepartment compares department labels the way users type them.
func SameDepartment(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a != "" && strings.EqualFold(a, b)
}
