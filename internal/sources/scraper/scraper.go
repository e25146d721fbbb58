// Package scraper lists media from a 360°-booth event page by parsing its
// HTML gallery markup.
package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"photogallery/internal/domain/gallery"
	"photogallery/internal/sources"
)

const maxPageBytes = 8 << 20

type Adapter struct {
	client    *http.Client
	userAgent string
}

func New(timeout time.Duration, userAgent string) *Adapter {
	return &Adapter{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

func (a *Adapter) Type() gallery.SectionType { return gallery.SectionScrapedEvent }

// Fetch downloads the event page at the section locator and returns every
// media tile in page order.
func (a *Adapter) Fetch(ctx context.Context, section gallery.Section) ([]sources.Item, error) {
	base, err := url.Parse(section.Locator)
	if err != nil {
		return nil, sources.Wrap(a.Type(), fmt.Errorf("parse locator: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base.String(), nil)
	if err != nil {
		return nil, sources.Wrap(a.Type(), fmt.Errorf("failed to create request: %w", err))
	}
	if a.userAgent != "" {
		req.Header.Set("User-Agent", a.userAgent)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, sources.Wrap(a.Type(), fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, fmt.Errorf("event page %s: %w", base, sources.ErrExpired)
	case resp.StatusCode != http.StatusOK:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, sources.Wrap(a.Type(), fmt.Errorf("event page returned %d: %s", resp.StatusCode, string(raw)))
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, sources.Wrap(a.Type(), fmt.Errorf("parse page: %w", err))
	}
	return extract(doc, base), nil
}

// extract walks the document and collects <a class="media-item"> tiles.
// Tiles without a data-hash are ignored.
func extract(doc *html.Node, base *url.URL) []sources.Item {
	var out []sources.Item
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" && hasClass(n, "media-item") {
			if item, ok := tile(n, base); ok {
				out = append(out, item)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}

func tile(n *html.Node, base *url.URL) (sources.Item, bool) {
	hash := strings.TrimSpace(attr(n, "data-hash"))
	if hash == "" {
		return sources.Item{}, false
	}

	kind := gallery.KindPhoto
	if strings.EqualFold(attr(n, "data-type"), "video") {
		kind = gallery.KindVideo
	}

	item := sources.Item{
		SourceID: hash,
		Kind:     kind,
		Name:     attr(n, "data-name"),
		ViewURL:  resolve(base, attr(n, "href")),
	}
	if img := firstChild(n, "img"); img != nil {
		item.ThumbnailURL = resolve(base, attr(img, "src"))
	}
	if item.Name == "" {
		item.Name = hash
	}

	meta, _ := json.Marshal(map[string]string{"hash": hash, "page": base.String()})
	item.Metadata = meta
	return item, true
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func firstChild(n *html.Node, tag string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			return c
		}
		if found := firstChild(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}
