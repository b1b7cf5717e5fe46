package entity

import "time"

// Session is an authenticated identity plus the token pair that proves it.
type Session struct {
	ID               string
	UserID           string
	Email            string
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// SessionEventKind names a session state transition.
type SessionEventKind string

const (
	SessionSignedIn       SessionEventKind = "signed_in"
	SessionSignedOut      SessionEventKind = "signed_out"
	SessionTokenRefreshed SessionEventKind = "token_refreshed"
)

// SessionEvent is delivered to session-change subscribers.
// Session is nil for SessionSignedOut.
type SessionEvent struct {
	Kind    SessionEventKind
	Session *Session
}
