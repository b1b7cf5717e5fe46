package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-diary/internal/application"
	"github.com/oksasatya/go-ddd-diary/internal/domain/repository"
	"github.com/oksasatya/go-ddd-diary/pkg/response"
	"github.com/oksasatya/go-ddd-diary/pkg/validation"
)

// ErrorWriter maps application errors onto HTTP responses.
type ErrorWriter struct {
	Logger *logrus.Logger
}

// Status returns the HTTP status and public message for err.
func Status(err error) (int, string) {
	var (
		verr *application.ValidationError
		aerr *application.AuthBackendError
		serr *application.StoreError
	)
	switch {
	case errors.Is(err, application.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid username or password"
	case errors.Is(err, application.ErrNotAuthenticated):
		return http.StatusUnauthorized, "sign in required"
	case errors.Is(err, application.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, application.ErrEntryNotFound):
		return http.StatusNotFound, "entry not found"
	case errors.Is(err, application.ErrSearchDisabled), errors.Is(err, application.ErrExportDisabled):
		return http.StatusServiceUnavailable, err.Error()
	case errors.As(err, &verr):
		return http.StatusBadRequest, "invalid input"
	case errors.As(err, &aerr):
		switch {
		case errors.Is(aerr.Err, repository.ErrAuthRejected):
			return http.StatusUnauthorized, aerr.Err.Error()
		case aerr.Op == "sign out":
			return http.StatusInternalServerError, "sign out failed"
		default:
			return http.StatusServiceUnavailable, "authentication service unavailable"
		}
	case errors.As(err, &serr):
		return http.StatusInternalServerError, "storage error"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// Write responds with the mapped status. Server-side failures are logged.
func (w ErrorWriter) Write(c *gin.Context, err error) {
	status, msg := Status(err)
	var details interface{}
	var verr *application.ValidationError
	if errors.As(err, &verr) {
		details = map[string]string{verr.Field: verr.Message}
	}
	if status >= http.StatusInternalServerError && w.Logger != nil {
		w.Logger.WithError(err).WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"path":       c.FullPath(),
		}).Error("request failed")
	}
	response.Abort(c, status, msg, details)
}

// Binding responds 400 with per-field details for a bind error.
func (w ErrorWriter) Binding(c *gin.Context, err error) {
	response.Abort(c, http.StatusBadRequest, "invalid input", validation.ToDetails(err))
}
