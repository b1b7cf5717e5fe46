package modules

import (
	"expvar"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-ddd-diary/internal/interface/middleware"
)

type DebugModule struct {
	Guards Guards
	Limit  int
}

func NewDebugModule(g Guards, limit int) *DebugModule { return &DebugModule{Guards: g, Limit: limit} }

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	// expvar counters, rate-limited per IP; private callers are not limited
	rl := middleware.RateLimit(m.Guards.Redis, m.Limit, m.Guards.Window, middleware.KeyByIP(), middleware.AllowPrivateIP())
	rg.GET("/debug/vars", rl, gin.WrapH(expvar.Handler()))
}
