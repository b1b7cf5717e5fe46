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

type EntryHandler struct {
	Logger *logrus.Logger
	Errors ErrorWriter
}

func NewEntryHandler(logger *logrus.Logger) *EntryHandler {
	if logger == nil {
		logger = helpers.NopLogger()
	}
	return &EntryHandler{Logger: logger, Errors: ErrorWriter{Logger: logger}}
}

type contentRequest struct {
	Content string `json:"content" binding:"max=65536"`
}

type entryURI struct {
	ID string `uri:"id" binding:"required,entryid"`
}

type searchQuery struct {
	Q    string `form:"q" binding:"required,max=256"`
	Size int    `form:"size" binding:"omitempty,min=1,max=50"`
}

type exportResult struct {
	Day      string `json:"day"`
	Location string `json:"location"`
}

// List GET /api/entries?date=YYYY-MM-DD
// The middleware already loaded the requested day.
func (h *EntryHandler) List(c *gin.Context) {
	response.Success(c, http.StatusOK, toView(middleware.DiaryFrom(c).View()), "ok", nil)
}

// Create POST /api/entries
func (h *EntryHandler) Create(c *gin.Context) {
	var req contentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Errors.Binding(c, err)
		return
	}
	v, err := middleware.DiaryFrom(c).Create(c.Request.Context(), req.Content)
	if err != nil {
		h.Errors.Write(c, err)
		return
	}
	metrics.Add(metricEntryWrites, 1)
	response.Success(c, http.StatusCreated, toView(v), "entry created", nil)
}

// Update PUT /api/entries/:id
func (h *EntryHandler) Update(c *gin.Context) {
	var uri entryURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.Errors.Binding(c, err)
		return
	}
	var req contentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Errors.Binding(c, err)
		return
	}
	v, err := middleware.DiaryFrom(c).Update(c.Request.Context(), uri.ID, req.Content)
	if err != nil {
		h.Errors.Write(c, err)
		return
	}
	metrics.Add(metricEntryWrites, 1)
	response.Success(c, http.StatusOK, toView(v), "entry updated", nil)
}

// Delete DELETE /api/entries/:id
func (h *EntryHandler) Delete(c *gin.Context) {
	var uri entryURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.Errors.Binding(c, err)
		return
	}
	v, err := middleware.DiaryFrom(c).Delete(c.Request.Context(), uri.ID)
	if err != nil {
		h.Errors.Write(c, err)
		return
	}
	metrics.Add(metricEntryWrites, 1)
	response.Success(c, http.StatusOK, toView(v), "entry deleted", nil)
}

// Search GET /api/entries/search?q=&size=
func (h *EntryHandler) Search(c *gin.Context) {
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.Errors.Binding(c, err)
		return
	}
	d := middleware.DiaryFrom(c)
	hits, err := d.Search(c.Request.Context(), q.Q, q.Size)
	if err != nil {
		h.Errors.Write(c, err)
		return
	}
	metrics.Add(metricSearches, 1)
	v := d.View()
	actor := application.Actor{UserID: v.Session.UserID, IsAdmin: v.IsAdmin}
	response.Success(c, http.StatusOK, toEntries(hits, actor), "ok", gin.H{"query": q.Q, "count": len(hits)})
}

// Export POST /api/admin/exports?date=YYYY-MM-DD
func (h *EntryHandler) Export(c *gin.Context) {
	d := middleware.DiaryFrom(c)
	day := d.View().Day
	loc, err := d.ExportDay(c.Request.Context(), day)
	if err != nil {
		h.Errors.Write(c, err)
		return
	}
	metrics.Add(metricExports, 1)
	h.Logger.WithFields(logrus.Fields{
		"day":      day.String(),
		"location": loc,
		"user_id":  c.GetString(middleware.UserIDKey),
	}).Info("day exported")
	response.Success(c, http.StatusCreated, exportResult{Day: day.String(), Location: loc}, "day exported", nil)
}
