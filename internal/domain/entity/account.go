package entity

import "time"

// Account is the auth backend's record of a signed-up identity.
// PasswordHash is a bcrypt hash.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
