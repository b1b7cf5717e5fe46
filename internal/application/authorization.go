package application

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-diary/internal/domain/repository"
	"github.com/oksasatya/go-ddd-diary/pkg/helpers"
)

// AdminResolver decides whether a signed-in user holds the admin role.
type AdminResolver struct {
	Profiles repository.ProfileRepository
	Logger   *logrus.Logger
}

func NewAdminResolver(profiles repository.ProfileRepository, logger *logrus.Logger) *AdminResolver {
	if logger == nil {
		logger = helpers.NopLogger()
	}
	return &AdminResolver{Profiles: profiles, Logger: logger}
}

// ResolveIsAdmin reads the user's profile. A missing profile or a failed
// lookup yields false.
func (r *AdminResolver) ResolveIsAdmin(ctx context.Context, userID string) bool {
	if userID == "" {
		return false
	}
	p, err := r.Profiles.GetByID(ctx, userID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		r.Logger.WithField("user_id", userID).Debug("no profile, treating as non-admin")
		return false
	case err != nil:
		r.Logger.WithError(err).WithField("user_id", userID).Warn("profile lookup failed, treating as non-admin")
		return false
	case p == nil:
		return false
	}
	return p.IsAdmin
}
