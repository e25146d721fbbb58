package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"photogallery/internal/domain/gallery"
	"photogallery/internal/logging"
	"photogallery/internal/pkg/jwt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestJWTAuth_ValidToken(t *testing.T) {
	jwtService := jwt.New("test-secret-123", time.Hour)
	validToken, _ := jwtService.GenerateToken(42)

	router := gin.New()
	router.Use(JWTAuth(jwtService))
	router.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetInt64("user_id")})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+validToken)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "42")
}

func TestJWTAuth_Rejections(t *testing.T) {
	jwtService := jwt.New("secret", time.Hour)
	router := gin.New()
	router.Use(JWTAuth(jwtService))
	router.GET("/protected", func(c *gin.Context) {
		t.Fatal("handler should not be reached")
	})

	cases := []struct {
		header string
		code   string
	}{
		{"", "AUTH_HEADER_MISSING"},
		{"Basic dGVzdA==", "INVALID_AUTH_FORMAT"},
		{"Bearer invalid-jwt-here", "INVALID_TOKEN"},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/protected", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), tc.code)
	}
}

type galleryMap map[int64]*gallery.Gallery

func (m galleryMap) GetByID(_ context.Context, id int64) (*gallery.Gallery, error) {
	if g, ok := m[id]; ok {
		return g, nil
	}
	return nil, gallery.ErrGalleryNotFound
}

func TestRequireGalleryOwner(t *testing.T) {
	galleries := galleryMap{1: {ID: 1, OwnerID: 7}}
	router := gin.New()
	router.Use(func(c *gin.Context) { c.Set("user_id", int64(7)); c.Next() })
	router.GET("/galleries/:id", RequireGalleryOwner(galleries), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": GalleryFromContext(c).ID})
	})

	check := func(path string, want int) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
		assert.Equal(t, want, w.Code, path)
	}
	check("/galleries/1", http.StatusOK)
	check("/galleries/2", http.StatusNotFound)
	check("/galleries/abc", http.StatusBadRequest)

	galleries[3] = &gallery.Gallery{ID: 3, OwnerID: 8}
	check("/galleries/3", http.StatusForbidden)
}

func TestCORS_ExposesDownloadHeaders(t *testing.T) {
	router := gin.New()
	router.Use(CORS([]string{"https://app.example.com"}))
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://app.example.com")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-Download-Password")
	assert.Equal(t, "Content-Disposition", w.Header().Get("Access-Control-Expose-Headers"))
}

func TestErrorLogger_RecoversPanic(t *testing.T) {
	var buf bytes.Buffer
	router := gin.New()
	router.Use(ErrorLogger(logging.New(&buf, "debug", true)))
	router.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_SERVER_ERROR")
	assert.Contains(t, buf.String(), "kaboom")
	assert.Contains(t, buf.String(), "request_error")
}
