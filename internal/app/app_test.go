package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photogallery/internal/config"
	"photogallery/internal/domain/gallery"
	"photogallery/internal/logging"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		AppEnv:               "test",
		DatabaseURL:          ":memory:",
		JWTSecret:            "secret",
		JWTTTL:               time.Hour,
		StorageDriver:        "local",
		StorageLocalDir:      t.TempDir(),
		StoragePublicBaseURL: "/static/uploads",
		SyncTickInterval:     time.Hour,
		SourceFetchTimeout:   time.Second,
		SectionLockTTL:       time.Minute,
		ExpirationInterval:   time.Hour,
		ArchiveChunkBytes:    1 << 20,
		UploadConcurrency:    2,
		UploadMaxBytes:       1 << 20,
	}
}

func TestNew_WiresEngineWithoutOptionalServices(t *testing.T) {
	gin.SetMode(gin.TestMode)
	a, err := NewWithLogger(context.Background(), testConfig(t), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	assert.Len(t, a.Schedulers, len(gallery.SyncedTypes))
	assert.Nil(t, a.Publisher)
	assert.Nil(t, a.Consumer)
	assert.Equal(t, "local", a.Storage.BackendName())

	router := a.Router()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/sections/1/refresh", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/galleries/1/download-info", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRunBackground_StopsOnCancel(t *testing.T) {
	a, err := NewWithLogger(context.Background(), testConfig(t), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.RunBackground(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("background loops did not stop")
	}
}
