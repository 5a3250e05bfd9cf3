package model

import "time"

// User owns catalog edits. Authentication lives outside this module;
// the catalog only needs a stable identity for override ownership.
type User struct {
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Email        string
	PasswordHash string
	ID           int64
}
