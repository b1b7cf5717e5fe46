package entity

// Profile carries per-user authorization flags. ID equals the account ID.
type Profile struct {
	ID      string
	IsAdmin bool
}
