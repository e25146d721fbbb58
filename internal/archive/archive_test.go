package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photogallery/internal/domain/gallery"
	"photogallery/internal/logging"
	"photogallery/internal/repository"
	"photogallery/internal/storage"
)

const mib = 1024 * 1024

type fakeGalleries map[int64]*gallery.Gallery

func (f fakeGalleries) GetByID(_ context.Context, id int64) (*gallery.Gallery, error) {
	g, ok := f[id]
	if !ok {
		return nil, gallery.ErrGalleryNotFound
	}
	return g, nil
}

type fakeMedia []repository.DownloadableMedia

func (f fakeMedia) ListDownloadable(_ context.Context, _ int64, sectionID *int64) ([]repository.DownloadableMedia, error) {
	out := make([]repository.DownloadableMedia, 0, len(f))
	for _, m := range f {
		if sectionID == nil || m.SectionID == *sectionID {
			out = append(out, m)
		}
	}
	return out, nil
}

func uniform(n int, size int64) []Item {
	items := make([]Item, n)
	for i := range items {
		items[i] = Item{ID: fmt.Sprint(i), Size: size}
	}
	return items
}

func TestSplit_900MiBInto250MiBParts(t *testing.T) {
	chunks := Split(uniform(36, 25*mib), 250*mib)
	require.Len(t, chunks, 4)

	var total int64
	var count int
	for i, c := range chunks {
		assert.Equal(t, i+1, c.Number)
		total += c.Size
		count += c.ItemCount
	}
	assert.Equal(t, []int64{250 * mib, 250 * mib, 250 * mib, 150 * mib},
		[]int64{chunks[0].Size, chunks[1].Size, chunks[2].Size, chunks[3].Size})
	assert.Equal(t, int64(900*mib), total)
	assert.Equal(t, 36, count)
}

func TestSplit_OversizedItemStandsAlone(t *testing.T) {
	items := []Item{{ID: "a", Size: 100}, {ID: "big", Size: 300}, {ID: "b", Size: 100}, {ID: "c", Size: 150}}
	chunks := Split(items, 250)
	require.Len(t, chunks, 3)
	assert.Equal(t, 1, chunks[0].ItemCount)
	assert.Equal(t, "big", chunks[1].Items[0].ID)
	assert.Equal(t, 1, chunks[1].ItemCount)
	assert.Equal(t, int64(250), chunks[2].Size)

	for _, c := range chunks {
		if c.ItemCount > 1 {
			assert.LessOrEqual(t, c.Size, int64(250))
		}
	}
	assert.Empty(t, Split(nil, 250))
}

func testMedia() fakeMedia {
	return fakeMedia{
		{ID: "p3", Kind: gallery.KindPhoto, SectionID: 2, SectionName: "Ceremony", SectionPosition: 1, Position: 0, OriginalName: "IMG_1.jpg", StorageKey: "photos/p3/original.jpg", Size: 40},
		{ID: "p1", Kind: gallery.KindPhoto, SectionID: 1, SectionName: "Prep", SectionPosition: 0, Position: 1, OriginalName: "IMG_1.jpg", StorageKey: "photos/p1/original.jpg", Size: 60},
		{ID: "p0", Kind: gallery.KindPhoto, SectionID: 1, SectionName: "Prep", SectionPosition: 0, Position: 0, OriginalName: "IMG_1.JPG", StorageKey: "photos/p0/original.jpg", Size: 50},
		{ID: "v1", Kind: gallery.KindVideo, SectionID: 2, SectionName: "Ceremony", SectionPosition: 1, Position: 1, OriginalName: "", Ext: ".mp4", StorageKey: "videos/v1/original.mp4", Size: 70},
		{ID: "gone", Kind: gallery.KindPhoto, SectionID: 2, SectionName: "Ceremony", SectionPosition: 1, Position: 2, OriginalName: "lost.jpg", StorageKey: "photos/gone/original.jpg", Size: 10},
	}
}

func newTestService(t *testing.T, media fakeMedia, boundary int64) (*Service, *storage.MemoryBackend) {
	t.Helper()
	backend := storage.NewMemoryBackend()
	objects := storage.NewService(backend, "/static", nil, logging.Discard())
	for _, m := range media {
		if m.ID == "gone" {
			continue
		}
		_, err := objects.Upload(context.Background(), m.StorageKey, bytes.Repeat([]byte(m.ID[:1]), int(m.Size)), "application/octet-stream")
		require.NoError(t, err)
	}
	galleries := fakeGalleries{7: {ID: 7, Title: "Anna & Tom: Wedding", Sections: []gallery.Section{{ID: 1}, {ID: 2}}}}
	return NewService(galleries, media, objects, boundary, logging.Discard()), backend
}

func TestService_PlanIsDeterministic(t *testing.T) {
	media := testMedia()
	svc, _ := newTestService(t, media, 120)
	ctx := context.Background()

	first, err := svc.Plan(ctx, 7, nil)
	require.NoError(t, err)

	shuffled := append(fakeMedia(nil), media...)
	rand.New(rand.NewSource(42)).Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	svc.media = shuffled
	second, err := svc.Plan(ctx, 7, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.Equal(t, 5, first.TotalItems)
	assert.Equal(t, int64(230), first.TotalSize)
	var sum int64
	var count int
	for _, c := range first.Chunks {
		sum += c.Size
		count += c.ItemCount
	}
	assert.Equal(t, first.TotalSize, sum)
	assert.Equal(t, first.TotalItems, count)
	assert.Equal(t, len(first.Chunks), first.ChunkCount)

	var names []string
	for _, c := range first.Chunks {
		for _, it := range c.Items {
			names = append(names, it.Name)
		}
	}
	assert.Equal(t, []string{
		"Prep/IMG_1.jpg", "Prep/IMG_1 (2).jpg", "Ceremony/IMG_1.jpg", "Ceremony/v1.mp4", "Ceremony/lost.jpg",
	}, names)
}

func TestService_PlanSection(t *testing.T) {
	svc, _ := newTestService(t, testMedia(), DefaultChunkBytes)
	ctx := context.Background()

	sec := int64(2)
	p, err := svc.Plan(ctx, 7, &sec)
	require.NoError(t, err)
	assert.Equal(t, 3, p.TotalItems)
	require.Len(t, p.Chunks, 1)
	assert.Equal(t, "IMG_1.jpg", p.Chunks[0].Items[0].Name)

	missing := int64(99)
	_, err = svc.Plan(ctx, 7, &missing)
	assert.ErrorIs(t, err, ErrSectionNotFound)

	_, err = svc.Plan(ctx, 8, nil)
	assert.ErrorIs(t, err, ErrGalleryNotFound)
}

func TestService_StreamUnknownChunkWritesNothing(t *testing.T) {
	svc, _ := newTestService(t, testMedia(), 100)
	p, err := svc.Plan(context.Background(), 7, nil)
	require.NoError(t, err)
	require.Equal(t, 3, p.ChunkCount)

	var buf bytes.Buffer
	err = svc.Stream(context.Background(), 7, nil, 99, &buf)
	assert.ErrorIs(t, err, ErrChunkNotFound)
	assert.Zero(t, buf.Len())

	err = svc.Stream(context.Background(), 7, nil, 0, &buf)
	assert.ErrorIs(t, err, ErrChunkNotFound)
	assert.Zero(t, buf.Len())
}

func TestService_StreamWritesZip(t *testing.T) {
	svc, _ := newTestService(t, testMedia(), 1000)

	var buf bytes.Buffer
	require.NoError(t, svc.Stream(context.Background(), 7, nil, 1, &buf))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	got := map[string]int{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		got[f.Name] = len(data)
		assert.Equal(t, zip.Store, f.Method)
	}
	assert.Equal(t, map[string]int{
		"Prep/IMG_1.jpg":     50,
		"Prep/IMG_1 (2).jpg": 60,
		"Ceremony/IMG_1.jpg": 40,
		"Ceremony/v1.mp4":    70,
	}, got, "missing objects are skipped")
}

func TestChunkFilename(t *testing.T) {
	assert.Equal(t, "Anna_&_Tom__Wedding-part-2.zip", ChunkFilename("Anna & Tom: Wedding", 2))
	assert.Equal(t, "gallery-part-1.zip", ChunkFilename("  ", 1))
}

func TestSanitize_TruncatesOnRuneBoundary(t *testing.T) {
	name := sanitize("a"+strings.Repeat("ф", 61), "x")
	assert.True(t, utf8.ValidString(name))
	assert.Equal(t, 119, len(name))

	long := ChunkFilename(strings.Repeat("ф", 80), 1)
	assert.True(t, utf8.ValidString(long))
}
