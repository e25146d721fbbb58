package archive

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"unicode/utf8"

	"photogallery/internal/repository"
)

// DefaultChunkBytes is the size boundary of one archive part.
const DefaultChunkBytes int64 = 250 * 1024 * 1024

// Item is one object placed in an archive.
type Item struct {
	ID         string
	StorageKey string
	// Name is the entry path inside the zip, unique within the plan.
	Name string
	Size int64
}

type Chunk struct {
	Number    int    `json:"chunk_number"`
	ItemCount int    `json:"item_count"`
	Size      int64  `json:"size"`
	Items     []Item `json:"-"`
}

type Plan struct {
	GalleryID  int64   `json:"gallery_id"`
	SectionID  *int64  `json:"section_id,omitempty"`
	TotalItems int     `json:"total_items"`
	TotalSize  int64   `json:"total_size"`
	ChunkCount int     `json:"chunk_count"`
	Chunks     []Chunk `json:"chunks"`
}

// Chunk returns the 1-based chunk n.
func (p *Plan) Chunk(n int) (*Chunk, error) {
	if n < 1 || n > len(p.Chunks) {
		return nil, fmt.Errorf("%w: %d of %d", ErrChunkNotFound, n, len(p.Chunks))
	}
	return &p.Chunks[n-1], nil
}

// SortMedia orders media by section position, section id, item position,
// creation time and id so that plans are reproducible.
func SortMedia(media []repository.DownloadableMedia) {
	sort.SliceStable(media, func(i, j int) bool {
		a, b := media[i], media[j]
		switch {
		case a.SectionPosition != b.SectionPosition:
			return a.SectionPosition < b.SectionPosition
		case a.SectionID != b.SectionID:
			return a.SectionID < b.SectionID
		case a.Position != b.Position:
			return a.Position < b.Position
		case a.CreatedAtUnix != b.CreatedAtUnix:
			return a.CreatedAtUnix < b.CreatedAtUnix
		}
		return a.ID < b.ID
	})
}

// Split packs items greedily in order. A chunk is closed when the next item
// would push it past boundary, so every chunk stays within the boundary
// except one holding a single oversized item.
func Split(items []Item, boundary int64) []Chunk {
	var chunks []Chunk
	var cur *Chunk
	for _, it := range items {
		if cur == nil || (len(cur.Items) > 0 && cur.Size+it.Size > boundary) {
			chunks = append(chunks, Chunk{Number: len(chunks) + 1})
			cur = &chunks[len(chunks)-1]
		}
		cur.Items = append(cur.Items, it)
		cur.Size += it.Size
		cur.ItemCount++
	}
	return chunks
}

// entryNames assigns unique zip entry names. With prefixSection set each entry
// sits in a folder named after its section.
func entryNames(media []repository.DownloadableMedia, prefixSection bool) []string {
	used := map[string]bool{}
	out := make([]string, len(media))
	for i, m := range media {
		base := fileName(m)
		if prefixSection {
			base = path.Join(sanitize(m.SectionName, "section"), base)
		}
		ext := path.Ext(base)
		stem := strings.TrimSuffix(base, ext)

		name := base
		for n := 2; used[strings.ToLower(name)]; n++ {
			name = fmt.Sprintf("%s (%d)%s", stem, n, ext)
		}
		used[strings.ToLower(name)] = true
		out[i] = name
	}
	return out
}

func fileName(m repository.DownloadableMedia) string {
	name := path.Base(strings.ReplaceAll(m.OriginalName, "\\", "/"))
	if name == "." || name == "/" {
		name = ""
	}
	ext := strings.ToLower(path.Ext(name))
	stem := strings.TrimSuffix(name, path.Ext(name))
	if ext == "" {
		ext = strings.ToLower(m.Ext)
	}
	return sanitize(stem, m.ID) + ext
}

const maxNameBytes = 120

// sanitize keeps a name safe for zip entries and download filenames.
func sanitize(name, fallback string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, strings.TrimSpace(name))
	name = strings.Trim(name, ". ")
	if name == "" {
		return fallback
	}
	if len(name) > maxNameBytes {
		i := maxNameBytes
		for i > 0 && !utf8.RuneStart(name[i]) {
			i--
		}
		name = name[:i]
	}
	return name
}

// ChunkFilename is the download name of part n of a gallery archive.
func ChunkFilename(title string, n int) string {
	return fmt.Sprintf("%s-part-%d.zip", strings.ReplaceAll(sanitize(title, "gallery"), " ", "_"), n)
}
