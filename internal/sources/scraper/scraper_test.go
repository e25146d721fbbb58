package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photogallery/internal/domain/gallery"
	"photogallery/internal/sources"
)

const eventPage = `<!doctype html>
<html><body>
<div class="grid">
  <a class="media-item" data-hash="h1" data-type="photo" href="/view/h1"><img src="/thumb/h1.jpg"></a>
  <a class="tile media-item" data-hash="h2" data-type="video" data-name="spin.mp4" href="https://cdn.example.com/h2.mp4">
    <span><img src="thumb/h2.jpg"></span>
  </a>
  <a class="media-item" href="/view/nohash"><img src="/thumb/x.jpg"></a>
  <a class="other" data-hash="skip" href="/view/skip"></a>
</div>
</body></html>`

func TestAdapter_Fetch(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(eventPage))
	}))
	defer srv.Close()

	a := New(5*time.Second, "gallery-bot/1.0")
	items, err := a.Fetch(context.Background(), gallery.Section{Locator: srv.URL + "/event/abc"})
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "gallery-bot/1.0", gotUA)

	assert.Equal(t, "h1", items[0].SourceID)
	assert.Equal(t, gallery.KindPhoto, items[0].Kind)
	assert.Equal(t, srv.URL+"/view/h1", items[0].ViewURL)
	assert.Equal(t, srv.URL+"/thumb/h1.jpg", items[0].ThumbnailURL)
	assert.Equal(t, "h1", items[0].Name)

	assert.Equal(t, "h2", items[1].SourceID)
	assert.Equal(t, gallery.KindVideo, items[1].Kind)
	assert.Equal(t, "spin.mp4", items[1].Name)
	assert.Equal(t, "https://cdn.example.com/h2.mp4", items[1].ViewURL)
	assert.Equal(t, srv.URL+"/event/thumb/h2.jpg", items[1].ThumbnailURL)
	assert.JSONEq(t, `{"hash":"h2","page":"`+srv.URL+`/event/abc"}`, string(items[1].Metadata))
}

func TestAdapter_FetchGoneMarksExpired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer srv.Close()

	_, err := New(time.Second, "").Fetch(context.Background(), gallery.Section{Locator: srv.URL + "/e/x"})
	assert.ErrorIs(t, err, sources.ErrExpired)
}

func TestAdapter_FetchServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New(time.Second, "").Fetch(context.Background(), gallery.Section{Locator: srv.URL + "/e/x"})
	require.Error(t, err)
	var fe *sources.FetchError
	assert.True(t, errors.As(err, &fe))
	assert.NotErrorIs(t, err, sources.ErrExpired)
}
