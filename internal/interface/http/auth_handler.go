package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-diary/internal/application"
	"github.com/oksasatya/go-ddd-diary/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-diary/pkg/helpers"
	"github.com/oksasatya/go-ddd-diary/pkg/response"
)

type AuthHandler struct {
	Logger *logrus.Logger
	Errors ErrorWriter
}

func NewAuthHandler(logger *logrus.Logger) *AuthHandler {
	if logger == nil {
		logger = helpers.NopLogger()
	}
	return &AuthHandler{Logger: logger, Errors: ErrorWriter{Logger: logger}}
}

type loginRequest struct {
	Username string `json:"username" binding:"required,username"`
	Password string `json:"password" binding:"required"`
}

// Login POST /api/login
// Signs in (signing up on first use) and returns the view once the session is
// established. The token pair is set as HttpOnly cookies.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Errors.Binding(c, err)
		return
	}
	d := middleware.DiaryFrom(c)
	ctx := c.Request.Context()

	v, err := d.Login(ctx, req.Username, req.Password)
	if err != nil {
		metrics.Add(metricLoginFailures, 1)
		h.Logger.WithFields(logrus.Fields{
			"username": req.Username,
			"ip":       c.GetString("real_ip"),
		}).WithError(err).Info("login rejected")
		h.Errors.Write(c, err)
		return
	}
	metrics.Add(metricLogins, 1)

	if raw := c.Query("date"); raw != "" {
		if day, perr := application.ParseDay(raw); perr == nil && day != v.Day {
			if v, err = d.SelectDay(ctx, day); err != nil {
				h.Errors.Write(c, err)
				return
			}
		}
	}
	response.Success(c, http.StatusOK, toView(v), "signed in", nil)
}

// Logout POST /api/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	v, err := middleware.DiaryFrom(c).Logout(c.Request.Context())
	if err != nil {
		h.Errors.Write(c, err)
		return
	}
	metrics.Add(metricLogouts, 1)
	response.Success(c, http.StatusOK, toView(v), "signed out", nil)
}

// Session GET /api/session
// Reports the bootstrapped view. Anonymous callers get authenticated=false.
func (h *AuthHandler) Session(c *gin.Context) {
	response.Success(c, http.StatusOK, toView(middleware.DiaryFrom(c).View()), "ok", nil)
}
