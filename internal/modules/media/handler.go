package media

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"photogallery/internal/middleware"
	"photogallery/internal/pkg/response"
	"photogallery/internal/storage"
)

// multipartOverhead is allowed on top of the file limit for form fields
// and boundaries.
const multipartOverhead = 1 << 20

type Handler struct {
	svc       *Service
	galleries middleware.GalleryLookup
}

func NewHandler(svc *Service, galleries middleware.GalleryLookup) *Handler {
	return &Handler{svc: svc, galleries: galleries}
}

func (h *Handler) RegisterRoutes(protected *gin.RouterGroup) {
	owner := middleware.RequireGalleryOwner(h.galleries)
	protected.POST("/galleries/:id/photos", owner, h.UploadPhoto)
	protected.POST("/galleries/:id/videos", owner, h.UploadVideo)
}

func (h *Handler) UploadPhoto(c *gin.Context) {
	sectionID, fh, ok := h.parseForm(c)
	if !ok {
		return
	}
	photo, err := h.svc.UploadPhoto(c.Request.Context(), middleware.GalleryFromContext(c), sectionID, fh)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, photo)
}

func (h *Handler) UploadVideo(c *gin.Context) {
	sectionID, fh, ok := h.parseForm(c)
	if !ok {
		return
	}
	video, err := h.svc.UploadVideo(c.Request.Context(), middleware.GalleryFromContext(c), sectionID, fh)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, video)
}

func (h *Handler) parseForm(c *gin.Context) (int64, *multipart.FileHeader, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.svc.maxBytes+multipartOverhead)
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", ErrFileTooLarge.Error())
			return 0, nil, false
		}
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Multipart form expected")
		return 0, nil, false
	}

	sectionID, err := strconv.ParseInt(c.PostForm("section_id"), 10, 64)
	if err != nil || sectionID <= 0 {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", map[string]string{"section_id": "required"})
		return 0, nil, false
	}

	fh, err := c.FormFile("file")
	if err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", map[string]string{"file": "required"})
		return 0, nil, false
	}
	return sectionID, fh, true
}

func (h *Handler) fail(c *gin.Context, err error) {
	var writeErr *storage.WriteError
	switch {
	case errors.Is(err, ErrEmptyFile):
		response.Error(c, http.StatusBadRequest, "EMPTY_FILE", err.Error())
	case errors.Is(err, ErrFileTooLarge):
		response.Error(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", err.Error())
	case errors.Is(err, ErrInvalidMimeType):
		response.Error(c, http.StatusBadRequest, "INVALID_FILE_TYPE", err.Error())
	case errors.Is(err, ErrSectionNotFound):
		response.Error(c, http.StatusNotFound, "SECTION_NOT_FOUND", err.Error())
	case errors.Is(err, ErrWrongSectionType):
		response.Error(c, http.StatusBadRequest, "WRONG_SECTION_TYPE", err.Error())
	case errors.As(err, &writeErr):
		_ = c.Error(err)
		response.Error(c, http.StatusBadGateway, "STORAGE_ERROR", "Failed to store file")
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Upload failed")
	}
}
