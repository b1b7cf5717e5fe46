package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-diary/internal/domain/credential"
	"github.com/oksasatya/go-ddd-diary/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-diary/internal/domain/repository"
	"github.com/oksasatya/go-ddd-diary/pkg/helpers"
)

// ProvisionResult describes what Provision did for one directory user.
type ProvisionResult struct {
	Username string
	Email    string
	UserID   string
	Created  bool
	IsAdmin  bool
}

// Provisioner signs up every directory account ahead of first login and sets
// each profile's admin flag from an email allow-list.
type Provisioner struct {
	Backend  repo.AuthBackend
	Accounts repo.AccountRepository
	Profiles repo.ProfileRepository
	Logger   *logrus.Logger
}

func NewProvisioner(backend repo.AuthBackend, accounts repo.AccountRepository, profiles repo.ProfileRepository, logger *logrus.Logger) *Provisioner {
	if logger == nil {
		logger = helpers.NopLogger()
	}
	return &Provisioner{Backend: backend, Accounts: accounts, Profiles: profiles, Logger: logger}
}

// Provision is idempotent. Accounts that already exist keep their password.
// Admin flags are set to exactly the allow-list: listed emails are promoted,
// everyone else in the directory is demoted.
func (p *Provisioner) Provision(ctx context.Context, dir *credential.Directory, adminEmails []string) ([]ProvisionResult, error) {
	admins := make(map[string]bool, len(adminEmails))
	for _, e := range adminEmails {
		admins[strings.ToLower(strings.TrimSpace(e))] = true
	}

	var out []ProvisionResult
	for _, c := range dir.All() {
		res := ProvisionResult{Username: c.Username, Email: c.Email, IsAdmin: admins[strings.ToLower(c.Email)]}

		acc, err := p.Accounts.GetByEmail(ctx, c.Email)
		switch {
		case errors.Is(err, repo.ErrNotFound):
			if acc, err = p.create(ctx, c); err != nil {
				return out, fmt.Errorf("sign up %s: %w", c.Username, err)
			}
			res.Created = true
		case err != nil:
			return out, &StoreError{Op: "look up account", Err: err}
		}
		res.UserID = acc.ID

		if err := p.Profiles.Create(ctx, acc.ID); err != nil {
			return out, &StoreError{Op: "create profile", Err: err}
		}
		if err := p.Profiles.SetAdmin(ctx, acc.ID, res.IsAdmin); err != nil {
			return out, &StoreError{Op: "set admin", Err: err}
		}
		p.Logger.WithFields(logrus.Fields{
			"username": c.Username,
			"user_id":  acc.ID,
			"created":  res.Created,
			"is_admin": res.IsAdmin,
		}).Info("account provisioned")
		out = append(out, res)
	}
	return out, nil
}

// create signs up a plaintext credential. A credential that already holds a
// bcrypt hash becomes the account's hash as is, so the plaintext behind it
// signs in.
func (p *Provisioner) create(ctx context.Context, c entity.Credential) (*entity.Account, error) {
	if !helpers.IsBcryptHash(c.Password) {
		return p.Backend.SignUp(ctx, c.Email, c.Password)
	}
	acc := &entity.Account{Email: c.Email, PasswordHash: c.Password}
	if err := p.Accounts.Create(ctx, acc); err != nil {
		return nil, err
	}
	return acc, nil
}
