package download

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"photogallery/internal/archive"
	"photogallery/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the public download endpoints. Access is gated by
// the gallery download password, not by JWT.
func (h *Handler) RegisterRoutes(public *gin.RouterGroup) {
	g := public.Group("/galleries/:id")
	{
		g.GET("/download-info", h.Info)
		g.POST("/download-info", h.Info)
		g.POST("/download-section", h.DownloadSection)
	}
}

func (h *Handler) Info(c *gin.Context) {
	galleryID, sectionID, ok := parseTarget(c)
	if !ok {
		return
	}

	info, err := h.svc.Info(c.Request.Context(), galleryID, sectionID, password(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, info)
}

func (h *Handler) DownloadSection(c *gin.Context) {
	galleryID, sectionID, ok := parseTarget(c)
	if !ok {
		return
	}
	// Unparseable numbers resolve to chunk 0, which never exists.
	chunk, _ := strconv.Atoi(c.Query("chunk"))

	ctx := c.Request.Context()
	g, err := h.svc.Authorize(ctx, galleryID, sectionID, password(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	w := &zipResponse{c: c, filename: archive.ChunkFilename(g.Title, chunk)}
	if err := h.svc.Download(ctx, g, sectionID, chunk, w); err != nil {
		if w.started {
			// Headers are gone; the client sees a truncated archive.
			_ = c.Error(fmt.Errorf("stream gallery %d chunk %d: %w", galleryID, chunk, err))
			return
		}
		h.fail(c, err)
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrPasswordRequired):
		response.Error(c, http.StatusUnauthorized, "PASSWORD_REQUIRED", "Download password required")
	case errors.Is(err, ErrInvalidPassword):
		response.Error(c, http.StatusForbidden, "INVALID_PASSWORD", "Invalid download password")
	case errors.Is(err, archive.ErrGalleryNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Gallery not found")
	case errors.Is(err, archive.ErrSectionNotFound):
		response.Error(c, http.StatusNotFound, "SECTION_NOT_FOUND", "Section not found in this gallery")
	case errors.Is(err, archive.ErrChunkNotFound):
		response.Error(c, http.StatusNotFound, "CHUNK_NOT_FOUND", "Chunk not found")
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to prepare download")
	}
}

func parseTarget(c *gin.Context) (int64, *int64, bool) {
	galleryID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || galleryID <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid gallery ID")
		return 0, nil, false
	}

	raw := strings.TrimSpace(c.Query("section_id"))
	if raw == "" {
		return galleryID, nil, true
	}
	sectionID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || sectionID <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid section ID")
		return 0, nil, false
	}
	return galleryID, &sectionID, true
}

func password(c *gin.Context) string {
	if v := strings.TrimSpace(c.GetHeader("X-Download-Password")); v != "" {
		return v
	}
	var req PasswordRequest
	if c.Request.Method == http.MethodPost && c.Request.ContentLength != 0 {
		_ = c.ShouldBind(&req)
	}
	return strings.TrimSpace(req.Password)
}

// zipResponse delays the attachment headers until the archive's first byte.
type zipResponse struct {
	c        *gin.Context
	filename string
	started  bool
}

func (w *zipResponse) Write(p []byte) (int, error) {
	if !w.started {
		w.started = true
		w.c.Header("Content-Type", "application/zip")
		w.c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", w.filename))
		w.c.Status(http.StatusOK)
	}
	return w.c.Writer.Write(p)
}
