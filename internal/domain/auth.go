package domain

import "time"

// Actor is the identity performing an operation, as seen by authorization
// checks. The zero value is an unauthenticated caller.
type Actor struct {
	ID                 string
	Role               Role
	Department         string
	CanApproveStudents bool
	Usable             bool
}

// ActorFromUser derives the actor view of an authenticated user.
func ActorFromUser(u *User) Actor {
	if u == nil {
		return Actor{}
	}
	return Actor{
		ID:                 u.ID,
		Role:               u.Role,
		Department:         u.Department,
		CanApproveStudents: u.CanApproveStudents,
		Usable:             u.Usable(),
	}
}

// IsAuthenticated reports whether the actor carries an identity.
func (a Actor) IsAuthenticated() bool {
	return a.ID != ""
}

// Token represents issued access token metadata.
type Token struct {
	ID        string
	UserID    string
	Role      Role
	ExpiresAt time.Time
	IssuedAt  time.Time
}
