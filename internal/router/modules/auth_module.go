package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-ddd-diary/internal/interface/http"
	"github.com/oksasatya/go-ddd-diary/internal/interface/middleware"
)

// AuthModule registers the session endpoints.
// Public: POST /login (rate limited per IP), POST /logout, GET /session
type AuthModule struct {
	Handler    *handlers.AuthHandler
	Guards     Guards
	LoginLimit int
}

func NewAuthModule(h *handlers.AuthHandler, g Guards, loginLimit int) *AuthModule {
	return &AuthModule{Handler: h, Guards: g, LoginLimit: loginLimit}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	loginLimiter := m.Guards.limit(m.LoginLimit, middleware.KeyByIPAndPath())

	rg.POST("/login", loginLimiter, m.Guards.session(false), m.Handler.Login)
	rg.POST("/logout", m.Guards.session(false), m.Handler.Logout)
	rg.GET("/session", m.Guards.session(false), m.Handler.Session)
}
