package authbackend

import (
	"context"
	"sync"
	"time"
)

// SessionRecord is the server-side half of a session. RefreshID is the jti of
// the refresh token that may be exchanged. PrevRefreshID is the jti it
// replaced at RotatedAt.
type SessionRecord struct {
	ID            string
	UserID        string
	Email         string
	RefreshID     string
	PrevRefreshID string
	RotatedAt     time.Time
	CreatedAt     time.Time
}

// SessionStore persists session records. Get returns repository.ErrNotFound
// for unknown or expired ids.
//
// Rotate atomically replaces RefreshID from -> to, remembers from as
// PrevRefreshID and resets the expiry. It reports false when the record is
// gone or its RefreshID is no longer from.
type SessionStore interface {
	Save(ctx context.Context, rec SessionRecord, ttl time.Duration) error
	Get(ctx context.Context, id string) (*SessionRecord, error)
	Rotate(ctx context.Context, id, from, to string, at time.Time, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, id string) error
}

// TokenStore is the client-side storage of the token pair, e.g. cookies.
type TokenStore interface {
	Load() (access, refresh string)
	Save(access string, accessExp time.Time, refresh string, refreshExp time.Time)
	Clear()
}

// MemoryTokens keeps the token pair in memory. Used by tools and tests that
// act as a single long-lived client.
type MemoryTokens struct {
	mu      sync.Mutex
	access  string
	refresh string
}

func (t *MemoryTokens) Load() (string, string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.access, t.refresh
}

func (t *MemoryTokens) Save(access string, _ time.Time, refresh string, _ time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.access, t.refresh = access, refresh
}

func (t *MemoryTokens) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.access, t.refresh = "", ""
}
