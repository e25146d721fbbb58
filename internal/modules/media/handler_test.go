package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"photogallery/internal/database"
	"photogallery/internal/domain/gallery"
	"photogallery/internal/logging"
	"photogallery/internal/middleware"
	"photogallery/internal/pkg/jwt"
	"photogallery/internal/repository"
	"photogallery/internal/storage"
)

// pngHeader is enough for http.DetectContentType to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n0000000000000000")

type fixedThumbs struct{}

func (fixedThumbs) Thumbnail(_ []byte, box, _ int) ([]byte, error) {
	return bytes.Repeat([]byte{1}, box/100), nil
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error struct {
		Code string `json:"code"`
	} `json:"error"`
}

type fixture struct {
	router  *gin.Engine
	db      *gorm.DB
	backend *storage.MemoryBackend
	token   string
	owner   *gallery.User
	gallery *gallery.Gallery
	photos  *gallery.Section
	videos  *gallery.Section
}

func setup(t *testing.T, maxBytes int64) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	users := repository.NewUserRepository(db)
	owner := &gallery.User{Email: "owner@example.com", StorageUsedBytes: 100}
	require.NoError(t, users.Create(ctx, owner))
	galleries := repository.NewGalleryRepository(db)
	g := &gallery.Gallery{OwnerID: owner.ID, Title: "Studio"}
	require.NoError(t, galleries.Create(ctx, g))
	sections := repository.NewSectionRepository(db)
	photos := &gallery.Section{GalleryID: g.ID, Name: "Photos", Type: gallery.SectionPhoto}
	require.NoError(t, sections.Create(ctx, photos))
	videos := &gallery.Section{GalleryID: g.ID, Name: "Videos", Type: gallery.SectionVideo, Position: 1}
	require.NoError(t, sections.Create(ctx, videos))

	backend := storage.NewMemoryBackend()
	objects := storage.NewService(backend, "/media", fixedThumbs{}, logging.Discard())
	svc := NewService(objects, repository.NewMediaRepository(db), users, 2, maxBytes, logging.Discard())

	tokens := jwt.New("secret", time.Hour)
	token, err := tokens.GenerateToken(owner.ID)
	require.NoError(t, err)

	router := gin.New()
	protected := router.Group("/api/v1")
	protected.Use(middleware.JWTAuth(tokens))
	NewHandler(svc, galleries).RegisterRoutes(protected)

	return &fixture{
		router: router, db: db, backend: backend, token: token,
		owner: owner, gallery: g, photos: photos, videos: videos,
	}
}

func (f *fixture) upload(t *testing.T, kind string, sectionID int64, filename string, content []byte) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("section_id", fmt.Sprint(sectionID)))
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/galleries/%d/%s", f.gallery.ID, kind), &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+f.token)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func (f *fixture) usage(t *testing.T) int64 {
	t.Helper()
	u, err := repository.NewUserRepository(f.db).GetByID(context.Background(), f.owner.ID)
	require.NoError(t, err)
	return u.StorageUsedBytes
}

func TestUploadPhoto_StoresThumbnailsAndChargesQuota(t *testing.T) {
	f := setup(t, 1<<20)

	w, env := f.upload(t, "photos", f.photos.ID, "cover.png", pngHeader)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var photo PhotoResponse
	require.NoError(t, json.Unmarshal(env.Data, &photo))
	assert.Equal(t, "image/png", photo.ContentType)
	assert.Equal(t, int64(len(pngHeader)), photo.Size)
	assert.Equal(t, "/media/photos/"+photo.ID+"/original.png", photo.URL)
	assert.NotEmpty(t, photo.SmallURL)
	assert.NotEmpty(t, photo.MediumURL)
	assert.Len(t, f.backend.Keys(), 3)

	// small box 400 -> 4 bytes, medium box 1600 -> 16 bytes
	assert.Equal(t, int64(100+len(pngHeader)+4+16), f.usage(t))

	w, env = f.upload(t, "photos", f.photos.ID, "second.png", pngHeader)
	require.Equal(t, http.StatusCreated, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &photo))
	assert.Equal(t, 1, photo.Position)
}

func TestUploadPhoto_Rejections(t *testing.T) {
	f := setup(t, 64)

	w, env := f.upload(t, "photos", f.photos.ID, "notes.txt", []byte("just some text"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_FILE_TYPE", env.Error.Code)

	w, env = f.upload(t, "photos", f.photos.ID, "big.png", append(pngHeader, make([]byte, 100)...))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "FILE_TOO_LARGE", env.Error.Code)

	w, env = f.upload(t, "photos", f.videos.ID, "cover.png", pngHeader)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "WRONG_SECTION_TYPE", env.Error.Code)

	w, env = f.upload(t, "photos", 999, "cover.png", pngHeader)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "SECTION_NOT_FOUND", env.Error.Code)

	assert.Empty(t, f.backend.Keys())
	assert.Equal(t, int64(100), f.usage(t))
}

func TestUploadPhoto_StorageFailureSurfaces(t *testing.T) {
	f := setup(t, 1<<20)
	f.backend.FailPut = errors.New("bucket unavailable")

	w, env := f.upload(t, "photos", f.photos.ID, "cover.png", pngHeader)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "STORAGE_ERROR", env.Error.Code)
	assert.Equal(t, int64(100), f.usage(t))
}

func TestUploadVideo_Streams(t *testing.T) {
	f := setup(t, 1<<20)
	// ftyp box header identifies an MP4 container.
	mp4 := append([]byte("\x00\x00\x00\x18ftypmp42\x00\x00\x00\x00mp42isom"), make([]byte, 64)...)

	w, env := f.upload(t, "videos", f.videos.ID, "clip.mp4", mp4)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var video VideoResponse
	require.NoError(t, json.Unmarshal(env.Data, &video))
	assert.Equal(t, "video/mp4", video.ContentType)
	assert.Equal(t, []string{"videos/" + video.ID + "/original.mp4"}, f.backend.Keys())
	assert.Equal(t, int64(100+len(mp4)), f.usage(t))
}
