package repository

import (
	"context"

	"github.com/oksasatya/go-ddd-diary/internal/domain/entity"
)

// AuthBackend is the hosted-auth contract one client talks to. An
// implementation is bound to a single client's token storage.
//
// Session changes caused by SignIn, SignOut or CurrentSession are delivered
// asynchronously to OnSessionChange callbacks, not through the return values.
type AuthBackend interface {
	SignIn(ctx context.Context, email, password string) (*entity.Session, error)
	// SignUp creates the account. It does not sign the client in.
	SignUp(ctx context.Context, email, password string) (*entity.Account, error)
	SignOut(ctx context.Context) error
	// CurrentSession returns the persisted session, or nil when there is none.
	CurrentSession(ctx context.Context) (*entity.Session, error)
	OnSessionChange(fn func(entity.SessionEvent)) (unsubscribe func())
}
