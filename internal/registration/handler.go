package registration

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wedding-invite/backend/internal/kv"
	"github.com/wedding-invite/backend/internal/middleware"
	"github.com/wedding-invite/backend/internal/models"
	"github.com/wedding-invite/backend/internal/personstore"
	"github.com/wedding-invite/backend/internal/sessions"
	"github.com/wedding-invite/backend/pkg/response"
)

// ConfirmRequest is the body for POST /register/:sid/confirm.
type ConfirmRequest struct {
	GuestID string                `json:"guest_id" binding:"required"`
	Kind    models.AttendanceKind `json:"kind" binding:"required"`
}

// GiftRequest is the body for POST /register/:sid/gift.
type GiftRequest struct {
	GuestID string `json:"guest_id"`
	Gift    string `json:"gift"`
}

// SongRequest is the body for POST /register/:sid/song. An empty guest_id files the song anonymously.
type SongRequest struct {
	GuestID string `json:"guest_id"`
	SongInput
}

// View is what GET /register/:sid returns.
type View struct {
	SessionID   string                  `json:"session_id"`
	Guests      []models.Guest          `json:"guests"`
	Suggestions []models.SongSuggestion `json:"suggestions"`
}

// Handler handles the guest-facing registration endpoints.
type Handler struct {
	sessions *sessions.Registry[*Session]
	store    GuestUpdater
	local    kv.Store
	logger   *zap.Logger
}

// NewHandler creates a registration handler. local is shared by all visitors and scoped per visitor cookie.
func NewHandler(reg *sessions.Registry[*Session], store GuestUpdater, local kv.Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{sessions: reg, store: store, local: local, logger: logger}
}

// Register mounts the routes under g. g must run middleware.Visitor.
func (h *Handler) Register(g gin.IRoutes) {
	g.POST("", h.Open)
	g.GET("/:sid", h.Get)
	g.POST("/:sid/confirm", h.Confirm)
	g.POST("/:sid/gift", h.Gift)
	g.POST("/:sid/song", h.Song)
	g.GET("/:sid/suggestions", h.Suggestions)
}

func (h *Handler) session(c *gin.Context) (*Session, bool) {
	s, ok := h.sessions.Get(c.Param("sid"))
	if !ok {
		response.NotFound(c, "session not found")
	}
	return s, ok
}

func (h *Handler) view(c *gin.Context, id string, s *Session) View {
	sug, err := s.Suggestions(c.Request.Context())
	if err != nil {
		h.logger.Warn("suggestions unavailable", zap.String("session_id", id), zap.Error(err))
		sug = []models.SongSuggestion{}
	}
	return View{SessionID: id, Guests: s.Guests(), Suggestions: sug}
}

// Open handles POST /register?guests=... and starts a visit from the invitation link.
func (h *Handler) Open(c *gin.Context) {
	local := kv.NewScoped(h.local, middleware.VisitorID(c))
	s := FromLink(c.Request.URL.RawQuery, h.store, local, h.logger)
	id := h.sessions.Add(s)
	h.logger.Info("registration opened", zap.String("session_id", id), zap.Int("guests", len(s.Guests())))
	response.Created(c, h.view(c, id, s))
}

// Get handles GET /register/:sid.
func (h *Handler) Get(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	response.OK(c, h.view(c, c.Param("sid"), s))
}

// Confirm handles POST /register/:sid/confirm.
func (h *Handler) Confirm(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	g, err := s.Confirm(c.Request.Context(), req.GuestID, req.Kind)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, g)
}

// Gift handles POST /register/:sid/gift.
func (h *Handler) Gift(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req GiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	g, err := s.AddGift(c.Request.Context(), req.GuestID, req.Gift)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, g)
}

// Song handles POST /register/:sid/song.
func (h *Handler) Song(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req SongRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	res, err := s.SaveSong(c.Request.Context(), req.GuestID, req.SongInput)
	if err != nil {
		h.fail(c, err)
		return
	}
	if res.Suggestion != nil {
		response.Created(c, res)
		return
	}
	response.OK(c, res)
}

// Suggestions handles GET /register/:sid/suggestions.
func (h *Handler) Suggestions(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	list, err := s.Suggestions(c.Request.Context())
	if err != nil {
		h.logger.Error("suggestions unavailable", zap.Error(err))
		response.Internal(c, "failed to load suggestions")
		return
	}
	response.OK(c, list)
}

func (h *Handler) fail(c *gin.Context, err error) {
	var rse *personstore.RemoteStoreError
	switch {
	case errors.Is(err, ErrUnknownGuest):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrEmptyGift), errors.Is(err, ErrNoGuest),
		errors.Is(err, ErrSongIncomplete), errors.Is(err, ErrInvalidKind):
		response.BadRequest(c, err.Error())
	case errors.As(err, &rse):
		response.BadGateway(c, "guest list unavailable, try again")
	default:
		h.logger.Error("registration failed", zap.Error(err))
		response.Internal(c, "internal error")
	}
}
