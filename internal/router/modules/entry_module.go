package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-ddd-diary/internal/interface/http"
	"github.com/oksasatya/go-ddd-diary/internal/interface/middleware"
)

// EntryModule registers the entry endpoints. All require a session and are
// rate limited per user.
type EntryModule struct {
	Handler  *handlers.EntryHandler
	Guards   Guards
	APILimit int
}

func NewEntryModule(h *handlers.EntryHandler, g Guards, apiLimit int) *EntryModule {
	return &EntryModule{Handler: h, Guards: g, APILimit: apiLimit}
}

func (m *EntryModule) Register(rg *gin.RouterGroup) {
	entries := rg.Group("/entries")
	entries.Use(m.Guards.session(true), m.Guards.limit(m.APILimit, middleware.KeyByUserID()))
	{
		entries.GET("", m.Handler.List)
		entries.POST("", m.Handler.Create)
		entries.GET("/search", m.Handler.Search)
		entries.PUT("/:id", m.Handler.Update)
		entries.DELETE("/:id", m.Handler.Delete)
	}
}
