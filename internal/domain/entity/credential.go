package entity

// Credential is one allow-listed login: a short username mapped to a password
// and the canonical email the auth backend knows the account by.
type Credential struct {
	Username string
	Password string
	Email    string
}
