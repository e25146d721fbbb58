package storage

import (
	"fmt"
	"strings"
)

type ThumbSize string

const (
	ThumbSmall  ThumbSize = "small"
	ThumbMedium ThumbSize = "medium"
)

// thumbSpec is the bounding box and JPEG quality of each derived size.
var thumbSpec = map[ThumbSize]struct{ Box, Quality int }{
	ThumbSmall:  {Box: 400, Quality: 70},
	ThumbMedium: {Box: 1600, Quality: 82},
}

// PhotoKeys holds every object key belonging to one photo.
type PhotoKeys struct {
	Original string
	Small    string
	Medium   string
}

func (k PhotoKeys) All() []string {
	return []string{k.Original, k.Small, k.Medium}
}

func KeysForPhoto(id, ext string) PhotoKeys {
	return PhotoKeys{
		Original: fmt.Sprintf("photos/%s/original%s", id, normalizeExt(ext)),
		Small:    ThumbnailKey(id, ThumbSmall),
		Medium:   ThumbnailKey(id, ThumbMedium),
	}
}

func ThumbnailKey(id string, size ThumbSize) string {
	return fmt.Sprintf("photos/%s/%s.jpg", id, size)
}

func VideoKey(id, ext string) string {
	return fmt.Sprintf("videos/%s/original%s", id, normalizeExt(ext))
}

func BackupKey(id string) string {
	return fmt.Sprintf("backups/%s.zip", id)
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
