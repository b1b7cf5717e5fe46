package helpers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
)

type Manager struct {
	Domain string
	Secure bool
}

func NewCookie(domain string, secure bool) *Manager {
	return &Manager{Domain: domain, Secure: secure}
}

func (m *Manager) SetPair(c *gin.Context, access string, aexp time.Time, refresh string, rexp time.Time) {
	c.SetSameSite(http.SameSiteLaxMode)
	aMax := maxAgeFrom(aexp)
	rMax := maxAgeFrom(rexp)

	c.SetCookie(AccessTokenCookie, access, aMax, "/", m.Domain, m.Secure, true)
	c.SetCookie(RefreshTokenCookie, refresh, rMax, "/", m.Domain, m.Secure, true)
}

func (m *Manager) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(AccessTokenCookie, "", -1, "/", m.Domain, m.Secure, true)
	c.SetCookie(RefreshTokenCookie, "", -1, "/", m.Domain, m.Secure, true)
}

// Jar binds the manager to a single request. The jar remembers what it wrote so
// later reads in the same request see the new tokens, not the request's cookies.
func (m *Manager) Jar(c *gin.Context) *CookieJar {
	return &CookieJar{m: m, c: c}
}

// CookieJar stores a client's token pair in HttpOnly cookies.
type CookieJar struct {
	m *Manager
	c *gin.Context

	written bool
	access  string
	refresh string
}

func (j *CookieJar) Load() (access, refresh string) {
	if j.written {
		return j.access, j.refresh
	}
	access, _ = j.c.Cookie(AccessTokenCookie)
	refresh, _ = j.c.Cookie(RefreshTokenCookie)
	return access, refresh
}

func (j *CookieJar) Save(access string, aexp time.Time, refresh string, rexp time.Time) {
	j.written, j.access, j.refresh = true, access, refresh
	j.m.SetPair(j.c, access, aexp, refresh, rexp)
}

func (j *CookieJar) Clear() {
	j.written, j.access, j.refresh = true, "", ""
	j.m.Clear(j.c)
}

func maxAgeFrom(exp time.Time) int {
	sec := int(time.Until(exp).Seconds())
	if sec < 0 {
		return 0
	}
	return sec
}
