package application_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/oksasatya/go-ddd-diary/internal/application"
	"github.com/oksasatya/go-ddd-diary/internal/domain/credential"
	"github.com/oksasatya/go-ddd-diary/internal/domain/entity"
	"github.com/oksasatya/go-ddd-diary/pkg/events"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testDirectory(t *testing.T) *credential.Directory {
	t.Helper()
	d, err := credential.NewDirectory([]entity.Credential{
		{Username: "Kabilan", Password: "Kabilan_M123", Email: "kabilan.diary@example.com"},
		{Username: "Afrin_Tabassum", Password: "Harry James Potter", Email: "afrin.diary@example.com"},
		{Username: "Admin", Password: "Admin123", Email: "admin.diary@example.com"},
	})
	require.NoError(t, err)
	return d
}

// scriptedBackend is an auth backend whose results are set by the test.
type scriptedBackend struct {
	broker *events.Broker[entity.SessionEvent]

	mu         sync.Mutex
	calls      []string
	signInErrs []error
	signUpErr  error
	signOutErr error
	current    *entity.Session
	currentErr error
	issued     int
}

func newScriptedBackend(t *testing.T) *scriptedBackend {
	b := &scriptedBackend{broker: events.NewBroker[entity.SessionEvent](0)}
	t.Cleanup(b.broker.Close)
	return b
}

func (b *scriptedBackend) record(call string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, call)
}

func (b *scriptedBackend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func (b *scriptedBackend) SignIn(_ context.Context, email, _ string) (*entity.Session, error) {
	b.record("sign_in " + email)
	b.mu.Lock()
	var err error
	if len(b.signInErrs) > 0 {
		err, b.signInErrs = b.signInErrs[0], b.signInErrs[1:]
	}
	b.issued++
	n := b.issued
	b.mu.Unlock()
	if err != nil {
		return nil, err
	}
	sess := &entity.Session{
		ID:          fmt.Sprintf("sid-%d", n),
		UserID:      "user-" + email,
		Email:       email,
		AccessToken: fmt.Sprintf("access-%d", n),
	}
	b.emit(entity.SessionSignedIn, sess)
	return sess, nil
}

func (b *scriptedBackend) SignUp(_ context.Context, email, _ string) (*entity.Account, error) {
	b.record("sign_up " + email)
	if b.signUpErr != nil {
		return nil, b.signUpErr
	}
	return &entity.Account{ID: "user-" + email, Email: email}, nil
}

func (b *scriptedBackend) SignOut(context.Context) error {
	b.record("sign_out")
	if b.signOutErr != nil {
		return b.signOutErr
	}
	b.emit(entity.SessionSignedOut, nil)
	return nil
}

func (b *scriptedBackend) CurrentSession(context.Context) (*entity.Session, error) {
	b.record("current")
	return b.current, b.currentErr
}

func (b *scriptedBackend) OnSessionChange(fn func(entity.SessionEvent)) func() {
	return b.broker.Subscribe(fn)
}

func (b *scriptedBackend) emit(kind entity.SessionEventKind, s *entity.Session) {
	b.broker.Publish(entity.SessionEvent{Kind: kind, Session: s})
}

type recorder struct {
	ch chan entity.SessionEvent
}

func newRecorder() *recorder { return &recorder{ch: make(chan entity.SessionEvent, 32)} }

func (r *recorder) fn(ev entity.SessionEvent) { r.ch <- ev }

func (r *recorder) next(t *testing.T) entity.SessionEvent {
	t.Helper()
	select {
	case ev := <-r.ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("no session event delivered")
		return entity.SessionEvent{}
	}
}

func (r *recorder) quiet(t *testing.T) {
	t.Helper()
	select {
	case ev := <-r.ch:
		t.Fatalf("unexpected session event %q", ev.Kind)
	case <-time.After(50 * time.Millisecond):
	}
}

type activityLog struct {
	mu  sync.Mutex
	got []entity.Activity
	err error
}

func (a *activityLog) Publish(_ context.Context, act entity.Activity) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.got = append(a.got, act)
	return a.err
}

func (a *activityLog) Kinds() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.got))
	for _, act := range a.got {
		out = append(out, act.Kind)
	}
	return out
}

func newManager(t *testing.T, b *scriptedBackend) *application.SessionManager {
	t.Helper()
	m := application.NewSessionManager(b, testDirectory(t), nil)
	t.Cleanup(m.Close)
	return m
}

func TestLogin_RejectedByDirectoryWithoutBackendCall(t *testing.T) {
	b := newScriptedBackend(t)
	m := newManager(t, b)

	tests := []struct{ username, password string }{
		{"nobody", "whatever"},
		{"Kabilan", "wrong"},
		{"kabilan", "Kabilan_M123"},
		{"", ""},
	}
	for _, tt := range tests {
		err := m.Login(context.Background(), tt.username, tt.password)
		assert.ErrorIs(t, err, application.ErrInvalidCredentials, tt.username)
	}
	assert.Empty(t, b.Calls())
	assert.Nil(t, m.Current())
}

func TestLogin_SignsInWithCanonicalEmail(t *testing.T) {
	b := newScriptedBackend(t)
	m := newManager(t, b)
	rec := newRecorder()
	m.Subscribe(rec.fn)

	require.NoError(t, m.Login(context.Background(), "Afrin_Tabassum", "Harry James Potter"))

	ev := rec.next(t)
	assert.Equal(t, entity.SessionSignedIn, ev.Kind)
	assert.Equal(t, "afrin.diary@example.com", ev.Session.Email)
	assert.Equal(t, []string{"sign_in afrin.diary@example.com"}, b.Calls())
	require.NotNil(t, m.Current())
	assert.Equal(t, "sid-1", m.Current().ID)
}

func TestLogin_FallsBackToSignUpThenSignsInAgain(t *testing.T) {
	b := newScriptedBackend(t)
	b.signInErrs = []error{errors.New("invalid login credentials")}
	m := newManager(t, b)
	rec := newRecorder()
	m.Subscribe(rec.fn)

	require.NoError(t, m.Login(context.Background(), "Kabilan", "Kabilan_M123"))

	assert.Equal(t, entity.SessionSignedIn, rec.next(t).Kind)
	assert.Equal(t, []string{
		"sign_in kabilan.diary@example.com",
		"sign_up kabilan.diary@example.com",
		"sign_in kabilan.diary@example.com",
	}, b.Calls())
}

func TestLogin_BackendFailuresAreWrapped(t *testing.T) {
	signInErr := errors.New("invalid login credentials")
	tests := []struct {
		name   string
		setup  func(b *scriptedBackend)
		wantOp string
	}{
		{
			name: "sign up rejected",
			setup: func(b *scriptedBackend) {
				b.signInErrs = []error{signInErr}
				b.signUpErr = errors.New("user already registered")
			},
			wantOp: "sign up",
		},
		{
			name: "retry rejected",
			setup: func(b *scriptedBackend) {
				b.signInErrs = []error{signInErr, errors.New("email not confirmed")}
			},
			wantOp: "sign in",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newScriptedBackend(t)
			tt.setup(b)
			m := newManager(t, b)
			rec := newRecorder()
			m.Subscribe(rec.fn)

			err := m.Login(context.Background(), "Admin", "Admin123")
			var be *application.AuthBackendError
			require.ErrorAs(t, err, &be)
			assert.Equal(t, tt.wantOp, be.Op)
			assert.Nil(t, m.Current())
			rec.quiet(t)
		})
	}
}

func TestLogout_PublishesSignedOut(t *testing.T) {
	b := newScriptedBackend(t)
	m := newManager(t, b)
	rec := newRecorder()
	m.Subscribe(rec.fn)

	require.NoError(t, m.Login(context.Background(), "Admin", "Admin123"))
	require.Equal(t, entity.SessionSignedIn, rec.next(t).Kind)

	require.NoError(t, m.Logout(context.Background()))
	ev := rec.next(t)
	assert.Equal(t, entity.SessionSignedOut, ev.Kind)
	assert.Nil(t, ev.Session)
	assert.Nil(t, m.Current())
}

func TestLogout_BackendFailure(t *testing.T) {
	b := newScriptedBackend(t)
	b.signOutErr = errors.New("network down")
	m := newManager(t, b)

	err := m.Logout(context.Background())
	var be *application.AuthBackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "sign out", be.Op)
	assert.EqualError(t, err, "sign out: network down")
}

func TestBootstrap(t *testing.T) {
	t.Run("no persisted session", func(t *testing.T) {
		b := newScriptedBackend(t)
		m := newManager(t, b)
		sess, err := m.Bootstrap(context.Background())
		require.NoError(t, err)
		assert.Nil(t, sess)
		assert.Nil(t, m.Current())
	})
	t.Run("persisted session becomes the initial state silently", func(t *testing.T) {
		b := newScriptedBackend(t)
		b.current = &entity.Session{ID: "sid-9", UserID: "u", AccessToken: "a"}
		m := newManager(t, b)
		rec := newRecorder()
		m.Subscribe(rec.fn)

		sess, err := m.Bootstrap(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "sid-9", sess.ID)
		assert.Equal(t, "sid-9", m.Current().ID)
		rec.quiet(t)
	})
	t.Run("backend failure", func(t *testing.T) {
		b := newScriptedBackend(t)
		b.currentErr = errors.New("redis unavailable")
		m := newManager(t, b)
		_, err := m.Bootstrap(context.Background())
		var be *application.AuthBackendError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, "load session", be.Op)
	})
}

func TestSessionManager_SuppressesDuplicateNotifications(t *testing.T) {
	b := newScriptedBackend(t)
	m := newManager(t, b)
	rec := newRecorder()
	m.Subscribe(rec.fn)

	s1 := &entity.Session{ID: "sid-1", UserID: "u", AccessToken: "a1"}
	s1Refreshed := &entity.Session{ID: "sid-1", UserID: "u", AccessToken: "a2"}
	s2 := &entity.Session{ID: "sid-2", UserID: "u", AccessToken: "b1"}

	b.emit(entity.SessionSignedOut, nil) // already signed out
	b.emit(entity.SessionSignedIn, s1)
	b.emit(entity.SessionSignedIn, s1) // same tokens
	b.emit(entity.SessionTokenRefreshed, s1Refreshed)
	b.emit(entity.SessionSignedIn, s2) // new session id
	b.emit(entity.SessionSignedOut, nil)
	b.emit(entity.SessionSignedOut, nil)

	want := []struct {
		kind   entity.SessionEventKind
		access string
	}{
		{entity.SessionSignedIn, "a1"},
		{entity.SessionTokenRefreshed, "a2"},
		{entity.SessionSignedIn, "b1"},
		{entity.SessionSignedOut, ""},
	}
	for _, w := range want {
		ev := rec.next(t)
		assert.Equal(t, w.kind, ev.Kind)
		if w.access != "" {
			require.NotNil(t, ev.Session)
			assert.Equal(t, w.access, ev.Session.AccessToken)
		}
	}
	rec.quiet(t)
}

func TestSubscription_UnsubscribeIsIdempotent(t *testing.T) {
	b := newScriptedBackend(t)
	m := newManager(t, b)
	first, second := newRecorder(), newRecorder()
	sub := m.Subscribe(first.fn)
	m.Subscribe(second.fn)

	sub.Unsubscribe()
	sub.Unsubscribe()

	require.NoError(t, m.Login(context.Background(), "Admin", "Admin123"))
	assert.Equal(t, entity.SessionSignedIn, second.next(t).Kind)
	first.quiet(t)
}

func TestSessionManager_PublishesSignInAndOutActivity(t *testing.T) {
	b := newScriptedBackend(t)
	m := newManager(t, b)
	acts := &activityLog{err: errors.New("queue down")}
	m.Activity = acts
	rec := newRecorder()
	m.Subscribe(rec.fn)

	require.NoError(t, m.Login(context.Background(), "Kabilan", "Kabilan_M123"))
	rec.next(t)
	require.NoError(t, m.Logout(context.Background()))
	rec.next(t)

	assert.Eventually(t, func() bool {
		return len(acts.Kinds()) == 2
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{entity.ActivitySignedIn, entity.ActivitySignedOut}, acts.Kinds())
}
