// Package authbackend implements the auth backend contract on top of the
// account repository, a server-side session store and JWT token pairs kept
// in the client's token store.
package authbackend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-diary/internal/domain/entity"
	"github.com/oksasatya/go-ddd-diary/internal/domain/repository"
	"github.com/oksasatya/go-ddd-diary/pkg/events"
	"github.com/oksasatya/go-ddd-diary/pkg/helpers"
)

const MinPasswordLength = 6

// RefreshGrace is how long the refresh token replaced by a rotation still
// follows the session instead of counting as reuse. Parallel requests that
// carried the same expired pair land inside it.
const RefreshGrace = 30 * time.Second

// Rejections. Each one matches repository.ErrAuthRejected.
var (
	ErrInvalidLogin      error = rejection("invalid login credentials")
	ErrAlreadyRegistered error = rejection("user already registered")
	ErrPasswordTooShort  error = rejection(fmt.Sprintf("password should be at least %d characters", MinPasswordLength))
	ErrInvalidEmail      error = rejection("unable to validate email address: invalid format")
)

type rejectError struct{ msg string }

func rejection(msg string) *rejectError { return &rejectError{msg: msg} }

func (e *rejectError) Error() string        { return e.msg }
func (e *rejectError) Is(target error) bool { return target == repository.ErrAuthRejected }

// Backend serves one client. Its token store holds that client's tokens.
type Backend struct {
	Accounts repository.AccountRepository
	Profiles repository.ProfileRepository
	Sessions SessionStore
	JWT      *helpers.JWTManager
	Tokens   TokenStore
	Logger   *logrus.Logger
	Now      func() time.Time

	broker *events.Broker[entity.SessionEvent]
}

func New(accounts repository.AccountRepository, profiles repository.ProfileRepository, sessions SessionStore, jwt *helpers.JWTManager, tokens TokenStore, logger *logrus.Logger) *Backend {
	if logger == nil {
		logger = helpers.NopLogger()
	}
	return &Backend{
		Accounts: accounts,
		Profiles: profiles,
		Sessions: sessions,
		JWT:      jwt,
		Tokens:   tokens,
		Logger:   logger,
		Now:      time.Now,
		broker:   events.NewBroker[entity.SessionEvent](events.DefaultBuffer),
	}
}

var _ repository.AuthBackend = (*Backend)(nil)

func (b *Backend) OnSessionChange(fn func(entity.SessionEvent)) func() {
	return b.broker.Subscribe(fn)
}

// Close stops event delivery.
func (b *Backend) Close() { b.broker.Close() }

// SignIn checks the password, opens a new session and stores its tokens.
// Any session the client held before is revoked.
func (b *Backend) SignIn(ctx context.Context, email, password string) (*entity.Session, error) {
	email = normalizeEmail(email)
	acc, err := b.Accounts.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidLogin
	}
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	if !helpers.CompareHashAndPassword(acc.PasswordHash, password) {
		return nil, ErrInvalidLogin
	}

	b.revokeCurrent(ctx)

	rec := SessionRecord{
		ID:        uuid.NewString(),
		UserID:    acc.ID,
		Email:     acc.Email,
		RefreshID: uuid.NewString(),
		CreatedAt: b.Now().UTC(),
	}
	if err := b.Sessions.Save(ctx, rec, b.JWT.RefreshTTL); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	sess, err := b.issue(rec)
	if err != nil {
		return nil, err
	}
	b.Logger.WithFields(logrus.Fields{"user_id": acc.ID, "sid": rec.ID}).Info("session opened")
	b.broker.Publish(entity.SessionEvent{Kind: entity.SessionSignedIn, Session: sess})
	return sess, nil
}

// SignUp creates the account and its profile. It does not open a session.
func (b *Backend) SignUp(ctx context.Context, email, password string) (*entity.Account, error) {
	email = normalizeEmail(email)
	if !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return nil, ErrPasswordTooShort
	}
	if _, err := b.Accounts.GetByEmail(ctx, email); err == nil {
		return nil, ErrAlreadyRegistered
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("load account: %w", err)
	}

	hash, err := helpers.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	acc := &entity.Account{Email: email, PasswordHash: hash}
	if err := b.Accounts.Create(ctx, acc); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadyRegistered
		}
		return nil, fmt.Errorf("create account: %w", err)
	}
	if err := b.Profiles.Create(ctx, acc.ID); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	b.Logger.WithField("user_id", acc.ID).Info("account created")
	return acc, nil
}

// SignOut deletes the client's session and clears its tokens. An expired
// access token still identifies the session to end.
func (b *Backend) SignOut(ctx context.Context) error {
	if sid, ok := b.currentSID(); ok {
		if err := b.Sessions.Delete(ctx, sid); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		b.Logger.WithField("sid", sid).Info("session closed")
	}
	b.Tokens.Clear()
	b.broker.Publish(entity.SessionEvent{Kind: entity.SessionSignedOut})
	return nil
}

// CurrentSession returns the session behind the client's tokens. An expired
// access token is exchanged once for a new pair (TokenRefreshed). A session
// that no longer exists server-side, or a refresh token that was already
// used, signs the client out and returns nil.
func (b *Backend) CurrentSession(ctx context.Context) (*entity.Session, error) {
	access, refresh := b.Tokens.Load()
	if access == "" && refresh == "" {
		return nil, nil
	}

	if claims, err := b.JWT.ParseAccessToken(access); err == nil {
		rec, err := b.Sessions.Get(ctx, claims.SessionID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return b.expire("session revoked")
		case err != nil:
			return nil, fmt.Errorf("load session: %w", err)
		case rec.UserID != claims.UserID:
			return b.expire("session owner mismatch")
		}
		sess := sessionFrom(*rec, access, claims.ExpiresAt.Time, refresh, time.Time{})
		if rc, err := b.JWT.ParseRefreshToken(refresh); err == nil {
			sess.RefreshExpiresAt = rc.ExpiresAt.Time
		}
		return sess, nil
	}

	rc, err := b.JWT.ParseRefreshToken(refresh)
	if err != nil {
		return b.expire("refresh token invalid")
	}
	return b.refresh(ctx, rc)
}

// refresh exchanges the refresh token rc for a new pair. Only the current
// refresh id rotates. The id it replaced is followed to the current one
// during RefreshGrace. Anything older is reuse and ends the session.
func (b *Backend) refresh(ctx context.Context, rc *helpers.Claims) (*entity.Session, error) {
	for attempt := 0; attempt < 2; attempt++ {
		rec, err := b.Sessions.Get(ctx, rc.SessionID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return b.expire("session revoked")
		case err != nil:
			return nil, fmt.Errorf("load session: %w", err)
		case rec.UserID != rc.UserID:
			return b.expire("session owner mismatch")
		}

		now := b.Now()
		switch {
		case rec.RefreshID == rc.ID:
			next := uuid.NewString()
			ok, err := b.Sessions.Rotate(ctx, rec.ID, rc.ID, next, now.UTC(), b.JWT.RefreshTTL)
			if err != nil {
				return nil, fmt.Errorf("rotate session: %w", err)
			}
			if !ok {
				// another request rotated first
				continue
			}
			rec.PrevRefreshID, rec.RefreshID, rec.RotatedAt = rc.ID, next, now.UTC()
		case rec.PrevRefreshID == rc.ID && now.Sub(rec.RotatedAt) < RefreshGrace:
			b.Logger.WithField("sid", rec.ID).Debug("refresh raced a rotation, following it")
		default:
			if err := b.Sessions.Delete(ctx, rec.ID); err != nil {
				b.Logger.WithError(err).WithField("sid", rec.ID).Warn("revoke session failed")
			}
			return b.expire("refresh token reused")
		}

		sess, err := b.issue(*rec)
		if err != nil {
			return nil, err
		}
		b.Logger.WithField("sid", rec.ID).Debug("tokens refreshed")
		b.broker.Publish(entity.SessionEvent{Kind: entity.SessionTokenRefreshed, Session: sess})
		return sess, nil
	}
	return nil, fmt.Errorf("rotate session: %w", errRotationContended)
}

var errRotationContended = errors.New("refresh id kept changing")

// issue signs a token pair for rec and stores the tokens. rec must already
// be persisted.
func (b *Backend) issue(rec SessionRecord) (*entity.Session, error) {
	access, aexp, err := b.JWT.GenerateAccessToken(rec.UserID, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	refresh, rexp, err := b.JWT.GenerateRefreshToken(rec.UserID, rec.ID, rec.RefreshID)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	b.Tokens.Save(access, aexp, refresh, rexp)
	return sessionFrom(rec, access, aexp, refresh, rexp), nil
}

func (b *Backend) expire(reason string) (*entity.Session, error) {
	b.Logger.WithField("reason", reason).Info("client session ended")
	b.Tokens.Clear()
	b.broker.Publish(entity.SessionEvent{Kind: entity.SessionSignedOut})
	return nil, nil
}

func (b *Backend) revokeCurrent(ctx context.Context) {
	sid, ok := b.currentSID()
	if !ok {
		return
	}
	if err := b.Sessions.Delete(ctx, sid); err != nil {
		b.Logger.WithError(err).WithField("sid", sid).Warn("revoke previous session failed")
	}
}

func (b *Backend) currentSID() (string, bool) {
	access, refresh := b.Tokens.Load()
	if sid, ok := b.JWT.SessionIDOf(access, false); ok {
		return sid, true
	}
	return b.JWT.SessionIDOf(refresh, true)
}

func sessionFrom(rec SessionRecord, access string, aexp time.Time, refresh string, rexp time.Time) *entity.Session {
	return &entity.Session{
		ID:               rec.ID,
		UserID:           rec.UserID,
		Email:            rec.Email,
		AccessToken:      access,
		AccessExpiresAt:  aexp,
		RefreshToken:     refresh,
		RefreshExpiresAt: rexp,
	}
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
