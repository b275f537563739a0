package models

import "time"

// User is an identity as stored by the users repository. PasswordHash is a
// bcrypt hash and never leaves the server.
type User struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}
