package domain

import "time"

// User is the domain model for registered accounts. Rows are created once at
// registration and never mutated or deleted afterwards.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
