package domain

import "time"

// Department is a catalog entry offered at registration. Users reference
// departments by name, not id.
type Department struct {
	ID          string
	Name        string
	Description string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
