// Package gallery serves the wedding photo gallery from an S3 bucket.
package gallery

import (
	"context"
	"io"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wedding-invite/backend/pkg/response"
	"github.com/wedding-invite/backend/pkg/storage"
)

// Bucket is the storage the gallery reads from and writes to.
type Bucket interface {
	Prefix() string
	List(ctx context.Context) ([]storage.Object, error)
	PresignGet(ctx context.Context, key string) (string, error)
	Upload(ctx context.Context, key, contentType string, body io.Reader, contentLength int64) error
	Delete(ctx context.Context, key string) error
}

// Photo is one gallery entry as returned to clients.
type Photo struct {
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Handler handles gallery HTTP endpoints. A nil bucket disables the gallery.
type Handler struct {
	bucket Bucket
	logger *zap.Logger
}

// NewHandler creates a gallery handler.
func NewHandler(bucket Bucket, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{bucket: bucket, logger: logger}
}

// List handles GET /gallery.
func (h *Handler) List(c *gin.Context) {
	if h.bucket == nil {
		response.OK(c, []Photo{})
		return
	}
	objs, err := h.bucket.List(c.Request.Context())
	if err != nil {
		h.logger.Error("gallery list failed", zap.Error(err))
		response.Internal(c, "failed to list photos")
		return
	}
	photos := make([]Photo, 0, len(objs))
	for _, o := range objs {
		u, err := h.bucket.PresignGet(c.Request.Context(), o.Key)
		if err != nil {
			h.logger.Warn("gallery presign failed", zap.String("key", o.Key), zap.Error(err))
			continue
		}
		photos = append(photos, Photo{Name: path.Base(o.Key), URL: u, Size: o.Size, UploadedAt: o.LastModified})
	}
	response.OK(c, photos)
}

// Upload handles POST /admin/gallery (multipart field "file").
func (h *Handler) Upload(c *gin.Context) {
	if h.bucket == nil {
		response.ServiceUnavailable(c, "gallery storage not configured")
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}
	if fh.Size > storage.MaxPhotoSize {
		response.BadRequest(c, "file too large")
		return
	}
	ct := fh.Header.Get("Content-Type")
	if !storage.ValidatePhotoType(ct, fh.Filename) {
		response.BadRequest(c, "only jpeg, png, webp and gif images are allowed")
		return
	}
	if _, ok := storage.AllowedPhotoTypes[strings.ToLower(ct)]; !ok {
		ct = storage.ContentTypeForFilename(fh.Filename)
	}
	ext := strings.ToLower(path.Ext(fh.Filename))
	if ext == "" {
		ext = storage.AllowedPhotoTypes[strings.ToLower(ct)]
	}

	f, err := fh.Open()
	if err != nil {
		response.BadRequest(c, "unreadable file")
		return
	}
	defer f.Close()

	name := uuid.NewString() + ext
	key := storage.PhotoKey(h.bucket.Prefix(), name)
	if err := h.bucket.Upload(c.Request.Context(), key, ct, f, fh.Size); err != nil {
		h.logger.Error("gallery upload failed", zap.String("key", key), zap.Error(err))
		response.Internal(c, "failed to upload photo")
		return
	}
	response.Created(c, gin.H{"name": name})
}

// Delete handles DELETE /admin/gallery/:name.
func (h *Handler) Delete(c *gin.Context) {
	if h.bucket == nil {
		response.ServiceUnavailable(c, "gallery storage not configured")
		return
	}
	name := c.Param("name")
	if name == "" || name != path.Base(name) || !storage.ValidatePhotoType("", name) {
		response.BadRequest(c, "invalid photo name")
		return
	}
	if err := h.bucket.Delete(c.Request.Context(), storage.PhotoKey(h.bucket.Prefix(), name)); err != nil {
		h.logger.Error("gallery delete failed", zap.String("name", name), zap.Error(err))
		response.Internal(c, "failed to delete photo")
		return
	}
	response.NoContent(c)
}
