// Package drive lists image and video files of a Google Drive folder on
// behalf of the gallery owner.
package drive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"photogallery/internal/domain/gallery"
	"photogallery/internal/sources"
)

const (
	DefaultBaseURL = "https://www.googleapis.com/drive/v3"
	listFields     = "nextPageToken,files(id,name,mimeType,size,thumbnailLink,webViewLink,md5Checksum)"
	pageSize       = 1000
	expiryLeeway   = time.Minute
)

var ErrNoCredential = errors.New("owner has not connected a drive account")

// CredentialStore resolves and persists the OAuth tokens of a gallery owner.
type CredentialStore interface {
	GetForGallery(ctx context.Context, galleryID int64) (*gallery.DriveCredential, error)
	Save(ctx context.Context, c *gallery.DriveCredential) error
}

// TokenRefresher exchanges a refresh token for a new access token. The goth
// Google provider satisfies it.
type TokenRefresher interface {
	RefreshToken(refreshToken string) (*oauth2.Token, error)
}

type Adapter struct {
	baseURL   string
	client    *http.Client
	creds     CredentialStore
	refresher TokenRefresher
}

func New(baseURL string, timeout time.Duration, creds CredentialStore, refresher TokenRefresher) *Adapter {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Adapter{
		baseURL:   baseURL,
		client:    &http.Client{Timeout: timeout},
		creds:     creds,
		refresher: refresher,
	}
}

func (a *Adapter) Type() gallery.SectionType { return gallery.SectionCloudDrive }

type fileList struct {
	NextPageToken string `json:"nextPageToken"`
	Files         []struct {
		ID            string `json:"id"`
		Name          string `json:"name"`
		MimeType      string `json:"mimeType"`
		Size          string `json:"size"`
		ThumbnailLink string `json:"thumbnailLink"`
		WebViewLink   string `json:"webViewLink"`
		MD5           string `json:"md5Checksum"`
	} `json:"files"`
}

// Fetch pages through the folder named by the section locator.
func (a *Adapter) Fetch(ctx context.Context, section gallery.Section) ([]sources.Item, error) {
	token, err := a.token(ctx, section.GalleryID)
	if err != nil {
		return nil, sources.Wrap(a.Type(), err)
	}

	// Built by hand: oauth2.NewClient does not carry the client timeout over.
	client := &http.Client{
		Timeout: a.client.Timeout,
		Transport: &oauth2.Transport{
			Base:   a.client.Transport,
			Source: oauth2.StaticTokenSource(token),
		},
	}

	var out []sources.Item
	pageToken := ""
	for {
		page, err := a.list(ctx, client, section.Locator, pageToken)
		if err != nil {
			return nil, err
		}
		for _, f := range page.Files {
			kind, ok := sources.KindFromMIME(f.MimeType)
			if !ok {
				continue
			}
			size, _ := strconv.ParseInt(f.Size, 10, 64)
			meta, _ := json.Marshal(map[string]string{"mime_type": f.MimeType, "md5": f.MD5})
			out = append(out, sources.Item{
				SourceID:     f.ID,
				Kind:         kind,
				Name:         f.Name,
				ThumbnailURL: f.ThumbnailLink,
				ViewURL:      f.WebViewLink,
				Size:         size,
				Metadata:     meta,
			})
		}
		if page.NextPageToken == "" {
			return out, nil
		}
		pageToken = page.NextPageToken
	}
}

func (a *Adapter) list(ctx context.Context, client *http.Client, folderID, pageToken string) (*fileList, error) {
	q := url.Values{}
	q.Set("q", fmt.Sprintf("'%s' in parents and trashed = false", folderID))
	q.Set("fields", listFields)
	q.Set("pageSize", strconv.Itoa(pageSize))
	q.Set("orderBy", "createdTime")
	if pageToken != "" {
		q.Set("pageToken", pageToken)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/files?"+q.Encode(), nil)
	if err != nil {
		return nil, sources.Wrap(a.Type(), fmt.Errorf("failed to create request: %w", err))
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, sources.Wrap(a.Type(), fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("drive folder %s: %w", folderID, sources.ErrExpired)
	case resp.StatusCode != http.StatusOK:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, sources.Wrap(a.Type(), fmt.Errorf("drive returned %d: %s", resp.StatusCode, string(raw)))
	}

	var page fileList
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, sources.Wrap(a.Type(), fmt.Errorf("failed to decode response: %w", err))
	}
	return &page, nil
}

// token returns a usable access token, refreshing and persisting it when it
// is about to expire.
func (a *Adapter) token(ctx context.Context, galleryID int64) (*oauth2.Token, error) {
	cred, err := a.creds.GetForGallery(ctx, galleryID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoCredential, err)
	}

	tok := &oauth2.Token{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       cred.Expiry,
	}
	if cred.Expiry.IsZero() || time.Until(cred.Expiry) > expiryLeeway {
		return tok, nil
	}
	if cred.RefreshToken == "" || a.refresher == nil {
		return nil, errors.New("drive access token expired and cannot be refreshed")
	}

	fresh, err := a.refresher.RefreshToken(cred.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("refresh drive token: %w", err)
	}
	cred.AccessToken = fresh.AccessToken
	cred.Expiry = fresh.Expiry
	if fresh.RefreshToken != "" {
		cred.RefreshToken = fresh.RefreshToken
	}
	if err := a.creds.Save(ctx, cred); err != nil {
		return nil, fmt.Errorf("save refreshed drive token: %w", err)
	}
	return fresh, nil
}
