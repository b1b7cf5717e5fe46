package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-ddd-diary/internal/application"
	"github.com/oksasatya/go-ddd-diary/pkg/response"
)

const (
	DiaryKey = "diary"
	// UserIDKey holds the signed-in user's id for rate limiting and logs.
	UserIDKey = "userID"
)

// DiaryOpener builds a diary bound to the request's cookies. The returned
// func releases it.
type DiaryOpener func(c *gin.Context) (*application.Diary, func(), error)

// ErrorFunc writes an error response and aborts.
type ErrorFunc func(c *gin.Context, err error)

// Diary opens a per-request diary, bootstraps it on the day in ?date (today
// when absent) and stores it under DiaryKey. With required set, requests
// without a session are rejected with 401.
func Diary(open DiaryOpener, required bool, onError ErrorFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		day, ok := dayParam(c)
		if !ok {
			return
		}
		d, release, err := open(c)
		if err != nil {
			onError(c, err)
			return
		}
		defer release()

		v, err := d.Bootstrap(c.Request.Context(), day)
		if err != nil {
			onError(c, err)
			return
		}
		if v.Authenticated() {
			c.Set(UserIDKey, v.Session.UserID)
		} else if required {
			onError(c, application.ErrNotAuthenticated)
			return
		}
		c.Set(DiaryKey, d)
		c.Next()
	}
}

// DiaryFrom returns the diary stored by Diary.
func DiaryFrom(c *gin.Context) *application.Diary {
	if v, ok := c.Get(DiaryKey); ok {
		if d, ok := v.(*application.Diary); ok {
			return d
		}
	}
	return nil
}

func dayParam(c *gin.Context) (application.Day, bool) {
	raw := c.Query("date")
	if raw == "" {
		return application.Day{}, true
	}
	day, err := application.ParseDay(raw)
	if err != nil {
		response.Abort(c, http.StatusBadRequest, "invalid input", map[string]string{"date": "must be a date formatted as YYYY-MM-DD"})
		return application.Day{}, false
	}
	return day, true
}

// AdminOnly rejects callers whose view is not an admin's. Use after Diary.
func AdminOnly(onError ErrorFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		d := DiaryFrom(c)
		if d == nil || !d.View().Authenticated() {
			onError(c, application.ErrNotAuthenticated)
			return
		}
		if !d.View().IsAdmin {
			onError(c, application.ErrForbidden)
			return
		}
		c.Next()
	}
}
