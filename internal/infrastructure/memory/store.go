// Package memory is a process-local implementation of the repositories and
// the session store. It backs STORE_DRIVER=memory and the tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/go-ddd-diary/internal/domain/entity"
	"github.com/oksasatya/go-ddd-diary/internal/domain/repository"
	"github.com/oksasatya/go-ddd-diary/internal/infrastructure/authbackend"
)

// Store holds every table in maps guarded by one lock.
type Store struct {
	// Now stamps created and updated times. Defaults to time.Now.
	Now func() time.Time

	mu       sync.RWMutex
	accounts map[string]entity.Account
	byEmail  map[string]string
	profiles map[string]entity.Profile
	entries  map[string]entity.Entry
	sessions map[string]sessionItem
}

type sessionItem struct {
	rec     authbackend.SessionRecord
	expires time.Time
}

func NewStore() *Store {
	return &Store{
		Now:      time.Now,
		accounts: map[string]entity.Account{},
		byEmail:  map[string]string{},
		profiles: map[string]entity.Profile{},
		entries:  map[string]entity.Entry{},
		sessions: map[string]sessionItem{},
	}
}

func (s *Store) Accounts() *AccountRepository { return &AccountRepository{s: s} }
func (s *Store) Profiles() *ProfileRepository { return &ProfileRepository{s: s} }
func (s *Store) Entries() *EntryRepository    { return &EntryRepository{s: s} }
func (s *Store) Sessions() *SessionStore      { return &SessionStore{s: s} }

func (s *Store) now() time.Time { return s.Now().UTC() }

type AccountRepository struct{ s *Store }

var _ repository.AccountRepository = (*AccountRepository)(nil)

func (r *AccountRepository) Create(_ context.Context, a *entity.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.byEmail[a.Email]; ok {
		return repository.ErrDuplicate
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = r.s.now()
	r.s.accounts[a.ID] = *a
	r.s.byEmail[a.Email] = a.ID
	return nil
}

func (r *AccountRepository) GetByID(_ context.Context, id string) (*entity.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*entity.Account, error) {
	r.s.mu.RLock()
	id, ok := r.s.byEmail[email]
	r.s.mu.RUnlock()
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

type ProfileRepository struct{ s *Store }

var _ repository.ProfileRepository = (*ProfileRepository)(nil)

func (r *ProfileRepository) GetByID(_ context.Context, id string) (*entity.Profile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.profiles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *ProfileRepository) Create(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.profiles[id]; !ok {
		r.s.profiles[id] = entity.Profile{ID: id}
	}
	return nil
}

func (r *ProfileRepository) SetAdmin(_ context.Context, id string, isAdmin bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.profiles[id]; !ok {
		return repository.ErrNotFound
	}
	r.s.profiles[id] = entity.Profile{ID: id, IsAdmin: isAdmin}
	return nil
}

type EntryRepository struct{ s *Store }

var _ repository.EntryRepository = (*EntryRepository)(nil)

func (r *EntryRepository) ListCreatedBetween(_ context.Context, from, to time.Time, ownerID string) ([]entity.Entry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []entity.Entry{}
	for _, e := range r.s.entries {
		if ownerID != "" && e.UserID != ownerID {
			continue
		}
		if e.CreatedAt.Before(from) || !e.CreatedAt.Before(to) {
			continue
		}
		out = append(out, r.withAuthor(e))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *EntryRepository) GetByID(_ context.Context, id string) (*entity.Entry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e, ok := r.s.entries[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	e = r.withAuthor(e)
	return &e, nil
}

func (r *EntryRepository) Create(_ context.Context, e *entity.Entry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if _, ok := r.s.entries[e.ID]; ok {
		return repository.ErrDuplicate
	}
	now := r.s.now()
	e.CreatedAt, e.UpdatedAt = now, now
	*e = r.withAuthor(*e)
	r.s.entries[e.ID] = *e
	return nil
}

func (r *EntryRepository) UpdateContent(_ context.Context, id, ownerID, content string) (*entity.Entry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.entries[id]
	if !ok || (ownerID != "" && e.UserID != ownerID) {
		return nil, repository.ErrNotFound
	}
	e.Content = content
	e.UpdatedAt = r.s.now()
	r.s.entries[id] = e
	e = r.withAuthor(e)
	return &e, nil
}

func (r *EntryRepository) Delete(_ context.Context, id, ownerID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.entries[id]
	if !ok || (ownerID != "" && e.UserID != ownerID) {
		return repository.ErrNotFound
	}
	delete(r.s.entries, id)
	return nil
}

// withAuthor fills AuthorEmail from the accounts table. Callers hold the lock.
func (r *EntryRepository) withAuthor(e entity.Entry) entity.Entry {
	if a, ok := r.s.accounts[e.UserID]; ok {
		e.AuthorEmail = a.Email
	}
	return e
}

// SessionStore keeps session records with an expiry.
type SessionStore struct{ s *Store }

var _ authbackend.SessionStore = (*SessionStore)(nil)

// Save also drops every expired record.
func (r *SessionStore) Save(_ context.Context, rec authbackend.SessionRecord, ttl time.Duration) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.Now()
	for id, it := range r.s.sessions {
		if !now.Before(it.expires) {
			delete(r.s.sessions, id)
		}
	}
	r.s.sessions[rec.ID] = sessionItem{rec: rec, expires: now.Add(ttl)}
	return nil
}

func (r *SessionStore) Rotate(_ context.Context, id, from, to string, at time.Time, ttl time.Duration) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.Now()
	it, ok := r.s.sessions[id]
	if !ok || !now.Before(it.expires) || it.rec.RefreshID != from {
		return false, nil
	}
	it.rec.PrevRefreshID, it.rec.RefreshID, it.rec.RotatedAt = from, to, at
	it.expires = now.Add(ttl)
	r.s.sessions[id] = it
	return true, nil
}

func (r *SessionStore) Get(_ context.Context, id string) (*authbackend.SessionRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	it, ok := r.s.sessions[id]
	if !ok || !r.s.Now().Before(it.expires) {
		return nil, repository.ErrNotFound
	}
	rec := it.rec
	return &rec, nil
}

func (r *SessionStore) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.sessions, id)
	return nil
}
