package sections

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"photogallery/internal/domain/gallery"
	"photogallery/internal/ingest"
	"photogallery/internal/middleware"
	"photogallery/internal/pkg/response"
	"photogallery/internal/pkg/validator"
	"photogallery/internal/repository"
	"photogallery/internal/sources"
)

type Handler struct {
	svc       *Service
	galleries middleware.GalleryLookup
}

func NewHandler(svc *Service, galleries middleware.GalleryLookup) *Handler {
	return &Handler{svc: svc, galleries: galleries}
}

// RegisterRoutes mounts owner endpoints on a JWT-protected group.
func (h *Handler) RegisterRoutes(protected *gin.RouterGroup) {
	protected.POST("/galleries/:id/sections", middleware.RequireGalleryOwner(h.galleries), h.Create)
	protected.POST("/sections/:id/refresh", h.Refresh)
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", errs)
		return
	}

	section, err := h.svc.Create(c.Request.Context(), middleware.GalleryFromContext(c), req)
	switch {
	case err == nil:
		response.Success(c, http.StatusCreated, section)
	case errors.Is(err, gallery.ErrInvalidLocator), errors.Is(err, gallery.ErrInvalidSectionType):
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), map[string]string{"locator": "invalid"})
	case errors.Is(err, repository.ErrSectionNameExists):
		response.Error(c, http.StatusConflict, "SECTION_EXISTS", err.Error())
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create section")
	}
}

func (h *Handler) Refresh(c *gin.Context) {
	userID := c.GetInt64("user_id")
	if userID == 0 {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}
	sectionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || sectionID <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid section ID")
		return
	}

	res, err := h.svc.Refresh(c.Request.Context(), userID, sectionID)
	switch {
	case err == nil && res.Queued:
		response.Success(c, http.StatusAccepted, res)
	case err == nil:
		response.Success(c, http.StatusOK, res)
	case errors.Is(err, gallery.ErrSectionNotFound), errors.Is(err, gallery.ErrGalleryNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Section not found")
	case errors.Is(err, gallery.ErrNotOwner):
		response.Error(c, http.StatusForbidden, "FORBIDDEN", err.Error())
	case errors.Is(err, ingest.ErrNotSyncable):
		response.Error(c, http.StatusBadRequest, "NOT_SYNCABLE", "Only provider sections can be refreshed")
	case errors.Is(err, ingest.ErrSectionBusy):
		response.Error(c, http.StatusConflict, "SECTION_BUSY", "Section sync already in progress")
	case errors.Is(err, sources.ErrExpired):
		response.Error(c, http.StatusGone, "SECTION_EXPIRED", "Source is no longer available")
	default:
		var fetchErr *sources.FetchError
		if errors.As(err, &fetchErr) {
			response.Error(c, http.StatusBadGateway, "SOURCE_UNAVAILABLE", fetchErr.Error())
			return
		}
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Refresh failed")
	}
}
