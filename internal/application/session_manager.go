package application

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-diary/internal/domain/credential"
	"github.com/oksasatya/go-ddd-diary/internal/domain/entity"
	"github.com/oksasatya/go-ddd-diary/internal/domain/repository"
	"github.com/oksasatya/go-ddd-diary/pkg/events"
	"github.com/oksasatya/go-ddd-diary/pkg/helpers"
)

// Subscription is a registration returned by SessionManager.Subscribe.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// Unsubscribe releases the registration. Calling it more than once is a no-op.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(s.cancel)
}

// SessionManager owns one client's session state. The state is either
// Unauthenticated (Current() == nil) or Authenticated. It changes only in
// response to auth backend notifications, and each change is forwarded exactly
// once to every subscriber, in order, on a dispatcher goroutine.
type SessionManager struct {
	Backend   repository.AuthBackend
	Directory *credential.Directory
	Logger    *logrus.Logger
	// Activity, when set, receives signed_in / signed_out events.
	Activity ActivityPublisher

	mu      sync.Mutex
	current *entity.Session

	broker         *events.Broker[entity.SessionEvent]
	releaseBackend func()
	closeOnce      sync.Once
}

func NewSessionManager(backend repository.AuthBackend, dir *credential.Directory, logger *logrus.Logger) *SessionManager {
	if logger == nil {
		logger = helpers.NopLogger()
	}
	m := &SessionManager{
		Backend:   backend,
		Directory: dir,
		Logger:    logger,
		broker:    events.NewBroker[entity.SessionEvent](events.DefaultBuffer),
	}
	m.releaseBackend = backend.OnSessionChange(m.apply)
	return m
}

// Bootstrap loads the session persisted for this client, if any, and makes it
// the initial state. It does not notify subscribers: the returned session is the
// initial state, not a transition.
func (m *SessionManager) Bootstrap(ctx context.Context) (*entity.Session, error) {
	// Held across the backend call so a notification raised by CurrentSession
	// (token refresh, expiry) is applied after the initial state is set.
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, err := m.Backend.CurrentSession(ctx)
	if err != nil {
		m.Logger.WithError(err).Warn("session bootstrap failed")
		return nil, &AuthBackendError{Op: "load session", Err: err}
	}
	m.current = sess
	return copySession(sess), nil
}

// Subscribe registers fn for session transitions. Release it with Unsubscribe.
func (m *SessionManager) Subscribe(fn func(entity.SessionEvent)) *Subscription {
	return &Subscription{cancel: m.broker.Subscribe(fn)}
}

// Current returns a copy of the active session, or nil.
func (m *SessionManager) Current() *entity.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copySession(m.current)
}

// Login resolves username through the credential directory and signs in with
// the canonical email. An unknown account is created and signed in once more.
// The new session arrives through Subscribe, not as a return value.
func (m *SessionManager) Login(ctx context.Context, username, password string) error {
	cred, ok := m.Directory.Verify(username, password)
	if !ok {
		m.Logger.WithField("username", username).Info("login rejected by credential directory")
		return ErrInvalidCredentials
	}
	log := m.Logger.WithField("username", username)

	_, err := m.Backend.SignIn(ctx, cred.Email, password)
	if err == nil {
		log.Info("signed in")
		return nil
	}
	log.WithError(err).Warn("sign in failed, trying sign up")

	if _, err := m.Backend.SignUp(ctx, cred.Email, password); err != nil {
		log.WithError(err).Error("sign up failed")
		return &AuthBackendError{Op: "sign up", Err: err}
	}
	if _, err := m.Backend.SignIn(ctx, cred.Email, password); err != nil {
		log.WithError(err).Error("sign in after sign up failed")
		return &AuthBackendError{Op: "sign in", Err: err}
	}
	log.Info("account created and signed in")
	return nil
}

// Logout ends the session. Subscribers see the SignedOut transition.
func (m *SessionManager) Logout(ctx context.Context) error {
	if err := m.Backend.SignOut(ctx); err != nil {
		m.Logger.WithError(err).Error("sign out failed")
		return &AuthBackendError{Op: "sign out", Err: err}
	}
	return nil
}

// Close releases the backend registration and stops event delivery.
// It must not be called from a subscriber callback.
func (m *SessionManager) Close() {
	m.closeOnce.Do(func() {
		m.releaseBackend()
		m.broker.Close()
	})
}

// apply folds a backend notification into the state and forwards it when it
// is a real transition. Notifications arrive one at a time from the backend's
// dispatcher, so forwarding outside the lock keeps their order.
func (m *SessionManager) apply(ev entity.SessionEvent) {
	out, prev, ok := m.transition(ev)
	if !ok {
		return
	}
	m.Logger.WithField("transition", out.Kind).Debug("session changed")
	m.broker.Publish(out)
	m.publishActivity(out, prev)
}

func (m *SessionManager) transition(ev entity.SessionEvent) (out entity.SessionEvent, prev *entity.Session, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev = m.current
	switch ev.Kind {
	case entity.SessionSignedIn, entity.SessionTokenRefreshed:
		if ev.Session == nil {
			return out, prev, false
		}
		switch {
		case prev == nil, prev.ID != ev.Session.ID:
			out.Kind = entity.SessionSignedIn
		case prev.AccessToken == ev.Session.AccessToken:
			return out, prev, false
		default:
			out.Kind = entity.SessionTokenRefreshed
		}
		m.current = copySession(ev.Session)
		out.Session = copySession(ev.Session)
	case entity.SessionSignedOut:
		if prev == nil {
			return out, prev, false
		}
		m.current = nil
		out.Kind = entity.SessionSignedOut
	default:
		m.Logger.WithField("kind", ev.Kind).Warn("ignoring unknown session event")
		return out, prev, false
	}
	return out, prev, true
}

func (m *SessionManager) publishActivity(ev entity.SessionEvent, prev *entity.Session) {
	if m.Activity == nil {
		return
	}
	var a entity.Activity
	switch {
	case ev.Kind == entity.SessionSignedIn:
		a = entity.Activity{Kind: entity.ActivitySignedIn, UserID: ev.Session.UserID, Email: ev.Session.Email}
	case ev.Kind == entity.SessionSignedOut && prev != nil:
		a = entity.Activity{Kind: entity.ActivitySignedOut, UserID: prev.UserID, Email: prev.Email}
	default:
		return
	}
	a.At = time.Now().UTC()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := m.Activity.Publish(ctx, a); err != nil {
		m.Logger.WithError(err).WithField("kind", a.Kind).Warn("publish activity failed")
	}
}

func copySession(s *entity.Session) *entity.Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
