package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-ddd-diary/internal/interface/http"
	"github.com/oksasatya/go-ddd-diary/internal/interface/middleware"
)

// AdminModule registers admin-only endpoints under /admin.
type AdminModule struct {
	Handler *handlers.EntryHandler
	Guards  Guards
}

func NewAdminModule(h *handlers.EntryHandler, g Guards) *AdminModule {
	return &AdminModule{Handler: h, Guards: g}
}

func (m *AdminModule) Register(rg *gin.RouterGroup) {
	admin := rg.Group("/admin")
	admin.Use(m.Guards.session(true), middleware.AdminOnly(m.Guards.OnError))
	admin.POST("/exports", m.Handler.Export)
}
