package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"photogallery/internal/domain/gallery"
	"photogallery/internal/pkg/jwt"
	"photogallery/internal/pkg/response"
)

// JWTAuth requires a bearer token and stores the caller in "user_id".
func JWTAuth(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Abort(c, http.StatusUnauthorized, "AUTH_HEADER_MISSING", "Authorization header is required")
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			response.Abort(c, http.StatusUnauthorized, "INVALID_AUTH_FORMAT", "Authorization header must be: Bearer <token>")
			return
		}

		claims, err := jwtService.ValidateToken(strings.TrimSpace(token))
		if err != nil {
			response.Abort(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
			return
		}

		c.Set("user_id", claims.UserID)
		c.Next()
	}
}

type GalleryLookup interface {
	GetByID(ctx context.Context, id int64) (*gallery.Gallery, error)
}

// RequireGalleryOwner verifies the authenticated user owns the gallery in
// URL param "id" and stores it in "gallery".
func RequireGalleryOwner(galleries GalleryLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetInt64("user_id")
		if userID == 0 {
			response.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		}

		galleryID, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil || galleryID <= 0 {
			response.Abort(c, http.StatusBadRequest, "INVALID_ID", "Invalid gallery ID")
			return
		}

		g, err := galleries.GetByID(c.Request.Context(), galleryID)
		if errors.Is(err, gallery.ErrGalleryNotFound) {
			response.Abort(c, http.StatusNotFound, "NOT_FOUND", "Gallery not found")
			return
		}
		if err != nil {
			_ = c.Error(err)
			response.Abort(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load gallery")
			return
		}
		if g.OwnerID != userID {
			response.Abort(c, http.StatusForbidden, "FORBIDDEN", gallery.ErrNotOwner.Error())
			return
		}

		c.Set("gallery", g)
		c.Next()
	}
}

// GalleryFromContext returns the gallery stored by RequireGalleryOwner.
func GalleryFromContext(c *gin.Context) *gallery.Gallery {
	v, ok := c.Get("gallery")
	if !ok {
		return nil
	}
	g, _ := v.(*gallery.Gallery)
	return g
}
