package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-ddd-diary/internal/interface/middleware"
)

// Guards are the middleware inputs shared by the diary modules.
type Guards struct {
	Open    middleware.DiaryOpener
	OnError middleware.ErrorFunc
	// Redis backs the rate limiters. Nil disables limiting.
	Redis  goredis.Scripter
	Window time.Duration
}

func (g Guards) session(required bool) gin.HandlerFunc {
	return middleware.Diary(g.Open, required, g.OnError)
}

func (g Guards) limit(max int, key middleware.KeyFunc) gin.HandlerFunc {
	return middleware.RateLimit(g.Redis, max, g.Window, key, nil)
}
