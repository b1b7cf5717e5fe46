package entity

import "time"

const (
	ActivitySignedIn     = "signed_in"
	ActivitySignedOut    = "signed_out"
	ActivityEntryCreated = "entry_created"
	ActivityEntryUpdated = "entry_updated"
	ActivityEntryDeleted = "entry_deleted"
)

// Activity is a user-visible event published to the activity queue.
type Activity struct {
	Kind    string    `json:"kind"`
	UserID  string    `json:"user_id"`
	Email   string    `json:"email,omitempty"`
	EntryID string    `json:"entry_id,omitempty"`
	At      time.Time `json:"at"`
}
