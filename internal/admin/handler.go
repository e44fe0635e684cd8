package admin

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wedding-invite/backend/internal/models"
	"github.com/wedding-invite/backend/internal/personstore"
	"github.com/wedding-invite/backend/internal/sessions"
	"github.com/wedding-invite/backend/pkg/response"
)

// FilterRequest is the body for PUT /admin/sessions/:sid/filter.
type FilterRequest struct {
	Filter string `json:"filter"`
}

// BaseURLRequest is the body for PUT /admin/sessions/:sid/base-url.
type BaseURLRequest struct {
	BaseURL string `json:"base_url" binding:"required"`
}

// CreateGuestRequest is the body for POST /admin/sessions/:sid/guests.
type CreateGuestRequest struct {
	Name string `json:"name"`
}

// SelectRequest is the body for POST /admin/sessions/:sid/select.
type SelectRequest struct {
	Selected bool `json:"selected"`
}

// View is an admin session as returned to clients.
type View struct {
	SessionID string `json:"session_id"`
	Snapshot
}

// Handler handles the operator-facing endpoints.
type Handler struct {
	sessions *sessions.Registry[*Session]
	store    Store
	baseURL  string
	logger   *zap.Logger
}

// NewHandler creates an admin handler. baseURL is the default link target for new sessions.
func NewHandler(reg *sessions.Registry[*Session], store Store, baseURL string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{sessions: reg, store: store, baseURL: baseURL, logger: logger}
}

// Register mounts the routes under g.
func (h *Handler) Register(g gin.IRoutes) {
	g.POST("", h.Open)
	g.GET("/:sid", h.Get)
	g.POST("/:sid/refresh", h.Refresh)
	g.PUT("/:sid/filter", h.SetFilter)
	g.PUT("/:sid/base-url", h.SetBaseURL)
	g.POST("/:sid/guests", h.CreateGuest)
	g.PATCH("/:sid/guests/:id", h.UpdateGuest)
	g.DELETE("/:sid/guests/:id", h.DeleteGuest)
	g.POST("/:sid/guests/:id/toggle", h.Toggle)
	g.POST("/:sid/select", h.Select)
	g.POST("/:sid/link", h.GenerateLink)
	g.GET("/:sid/gifts", h.Gifts)
	g.GET("/:sid/songs", h.Songs)
}

func (h *Handler) session(c *gin.Context) (*Session, bool) {
	s, ok := h.sessions.Get(c.Param("sid"))
	if !ok {
		response.NotFound(c, "session not found")
	}
	return s, ok
}

func (h *Handler) view(c *gin.Context, s *Session) View {
	return View{SessionID: c.Param("sid"), Snapshot: s.Snapshot()}
}

// Open handles POST /admin/sessions: loads the roster into a new session.
func (h *Handler) Open(c *gin.Context) {
	s := NewSession(h.store, h.baseURL, h.logger)
	if err := s.Load(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	id := h.sessions.Add(s)
	h.logger.Info("admin session opened", zap.String("session_id", id))
	response.Created(c, View{SessionID: id, Snapshot: s.Snapshot()})
}

// Get handles GET /admin/sessions/:sid.
func (h *Handler) Get(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	response.OK(c, h.view(c, s))
}

// Refresh handles POST /admin/sessions/:sid/refresh.
func (h *Handler) Refresh(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := s.Load(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, h.view(c, s))
}

// SetFilter handles PUT /admin/sessions/:sid/filter.
func (h *Handler) SetFilter(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req FilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	s.SetFilter(req.Filter)
	response.OK(c, h.view(c, s))
}

// SetBaseURL handles PUT /admin/sessions/:sid/base-url.
func (h *Handler) SetBaseURL(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req BaseURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	s.SetBaseURL(req.BaseURL)
	response.OK(c, h.view(c, s))
}

// CreateGuest handles POST /admin/sessions/:sid/guests.
func (h *Handler) CreateGuest(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req CreateGuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	g, err := s.CreateGuest(c.Request.Context(), req.Name)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, g)
}

// UpdateGuest handles PATCH /admin/sessions/:sid/guests/:id.
func (h *Handler) UpdateGuest(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var patch models.GuestPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	g, err := s.UpdateGuest(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, g)
}

// DeleteGuest handles DELETE /admin/sessions/:sid/guests/:id.
func (h *Handler) DeleteGuest(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := s.DeleteGuest(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	response.NoContent(c)
}

// Toggle handles POST /admin/sessions/:sid/guests/:id/toggle.
func (h *Handler) Toggle(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := s.Toggle(c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, h.view(c, s))
}

// Select handles POST /admin/sessions/:sid/select for every row passing the filter.
func (h *Handler) Select(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	s.SelectVisible(req.Selected)
	response.OK(c, h.view(c, s))
}

// GenerateLink handles POST /admin/sessions/:sid/link.
func (h *Handler) GenerateLink(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	link, ok := s.GenerateLink()
	if !ok {
		response.Conflict(c, "select at least one guest")
		return
	}
	response.OK(c, gin.H{"link": link})
}

// Gifts handles GET /admin/sessions/:sid/gifts.
func (h *Handler) Gifts(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	response.OK(c, s.Gifts())
}

// Songs handles GET /admin/sessions/:sid/songs.
func (h *Handler) Songs(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	response.OK(c, s.Songs())
}

func (h *Handler) fail(c *gin.Context, err error) {
	var rse *personstore.RemoteStoreError
	switch {
	case errors.Is(err, ErrUnknownGuest):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrEmptyName):
		response.BadRequest(c, err.Error())
	case errors.Is(err, ErrRosterBusy):
		response.Conflict(c, err.Error())
	case errors.As(err, &rse):
		response.BadGateway(c, "guest list unavailable, try again")
	default:
		h.logger.Error("admin operation failed", zap.Error(err))
		response.Internal(c, "internal error")
	}
}
