package persons

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wedding-invite/backend/internal/models"
)

// Store is the persistence the handler serves.
type Store interface {
	List(ctx context.Context) ([]models.Guest, error)
	Get(ctx context.Context, id string) (*models.Guest, error)
	Create(ctx context.Context, p models.GuestPatch) (*models.Guest, error)
	Update(ctx context.Context, id string, p models.GuestPatch) (*models.Guest, error)
	Delete(ctx context.Context, id string) (*models.Guest, error)
}

// Handler serves /person with bare JSON bodies, the shape mock REST hosts use.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates a persons handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

// Register mounts the resource under g.
func (h *Handler) Register(g gin.IRoutes) {
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, "Not found")
		return
	}
	h.logger.Error("person store failed", zap.String("op", op), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// List handles GET /person.
func (h *Handler) List(c *gin.Context) {
	list, err := h.store.List(c.Request.Context())
	if err != nil {
		h.fail(c, "list", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Get handles GET /person/:id.
func (h *Handler) Get(c *gin.Context) {
	g, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "get", err)
		return
	}
	c.JSON(http.StatusOK, g)
}

// Create handles POST /person. Any id in the body is ignored.
func (h *Handler) Create(c *gin.Context) {
	var p models.GuestPatch
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}
	g, err := h.store.Create(c.Request.Context(), p)
	if err != nil {
		h.fail(c, "create", err)
		return
	}
	h.logger.Debug("person created", zap.String("id", g.ID))
	c.JSON(http.StatusCreated, g)
}

// Update handles PUT /person/:id. Only the fields present in the body change.
func (h *Handler) Update(c *gin.Context) {
	var p models.GuestPatch
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}
	g, err := h.store.Update(c.Request.Context(), c.Param("id"), p)
	if err != nil {
		h.fail(c, "update", err)
		return
	}
	c.JSON(http.StatusOK, g)
}

// Delete handles DELETE /person/:id and returns the removed record.
func (h *Handler) Delete(c *gin.Context) {
	g, err := h.store.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "delete", err)
		return
	}
	c.JSON(http.StatusOK, g)
}
