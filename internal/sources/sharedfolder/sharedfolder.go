// Package sharedfolder lists files of a publicly shared disk folder through
// its public-resources API.
package sharedfolder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"photogallery/internal/domain/gallery"
	"photogallery/internal/sources"
)

const (
	DefaultAPIURL = "https://cloud-api.yandex.net/v1/disk/public/resources"
	pageLimit     = 200
)

type Adapter struct {
	apiURL string
	client *http.Client
}

func New(apiURL string, timeout time.Duration) *Adapter {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &Adapter{apiURL: apiURL, client: &http.Client{Timeout: timeout}}
}

func (a *Adapter) Type() gallery.SectionType { return gallery.SectionSharedFolder }

type resource struct {
	Embedded struct {
		Items []struct {
			ResourceID string `json:"resource_id"`
			Name       string `json:"name"`
			Type       string `json:"type"`
			MimeType   string `json:"mime_type"`
			MD5        string `json:"md5"`
			Size       int64  `json:"size"`
			Preview    string `json:"preview"`
			File       string `json:"file"`
			Path       string `json:"path"`
		} `json:"items"`
		Total int `json:"total"`
	} `json:"_embedded"`
}

// Fetch pages through the public folder named by the section locator. The
// source id combines the resource id with the content hash so a replaced file
// is picked up as a new item.
func (a *Adapter) Fetch(ctx context.Context, section gallery.Section) ([]sources.Item, error) {
	var out []sources.Item
	for offset := 0; ; offset += pageLimit {
		page, err := a.page(ctx, section.Locator, offset)
		if err != nil {
			return nil, err
		}
		for _, it := range page.Embedded.Items {
			if it.Type != "" && it.Type != "file" {
				continue
			}
			kind, ok := sources.KindFromMIME(it.MimeType)
			if !ok {
				continue
			}
			meta, _ := json.Marshal(map[string]string{"path": it.Path, "md5": it.MD5, "mime_type": it.MimeType})
			out = append(out, sources.Item{
				SourceID:     it.ResourceID + ":" + it.MD5,
				Kind:         kind,
				Name:         it.Name,
				ThumbnailURL: it.Preview,
				ViewURL:      it.File,
				Size:         it.Size,
				Metadata:     meta,
			})
		}
		if len(page.Embedded.Items) < pageLimit || offset+pageLimit >= page.Embedded.Total {
			return out, nil
		}
	}
}

func (a *Adapter) page(ctx context.Context, publicKey string, offset int) (*resource, error) {
	q := url.Values{}
	q.Set("public_key", publicKey)
	q.Set("limit", strconv.Itoa(pageLimit))
	q.Set("offset", strconv.Itoa(offset))
	q.Set("preview_size", "L")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.apiURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, sources.Wrap(a.Type(), fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, sources.Wrap(a.Type(), fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, fmt.Errorf("shared folder %s: %w", publicKey, sources.ErrExpired)
	case resp.StatusCode != http.StatusOK:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, sources.Wrap(a.Type(), fmt.Errorf("shared folder api returned %d: %s", resp.StatusCode, string(raw)))
	}

	var res resource
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, sources.Wrap(a.Type(), fmt.Errorf("failed to decode response: %w", err))
	}
	return &res, nil
}
