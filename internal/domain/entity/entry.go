package entity

import "time"

// Entry is a single dated diary record owned by one user.
// UserID is set at creation and never changes.
type Entry struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	AuthorEmail string    `json:"author_email,omitempty"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
