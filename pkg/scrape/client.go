// Package scrape is the capability boundary to the platform scraping service.
// One hosted actor per source platform resolves a public video URL into
// normalized metadata, a playable media URL, and engagement counts.
package scrape

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"promoloft.app/studio/internal/platform"
)

const defaultBaseURL = "https://api.scrapeworks.dev/v2"

// Default actor slugs per platform. Overridable per client for staging.
var defaultActors = map[platform.Platform]string{
	platform.TikTok:    "clockworks~tiktok-scraper",
	platform.Instagram: "presets~instagram-reel-scraper",
	platform.YouTube:   "streamers~youtube-scraper",
}

type Client struct {
	baseURL string
	token   string
	actors  map[platform.Platform]string
	http    *http.Client
}

func NewClient(baseURL, token string) *Client {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	actors := make(map[platform.Platform]string, len(defaultActors))
	for p, a := range defaultActors {
		actors[p] = a
	}

	return &Client{
		baseURL: baseURL,
		token:   token,
		actors:  actors,
		http: &http.Client{
			Timeout: 90 * time.Second,
		},
	}
}

// SetActor overrides the actor slug used for a platform.
func (c *Client) SetActor(p platform.Platform, actor string) {
	c.actors[p] = actor
}

// SetTransport replaces the underlying round tripper. Used by tests.
func (c *Client) SetTransport(rt http.RoundTripper) {
	c.http.Transport = rt
}

// Error is returned for any upstream scrape failure. It carries the upstream
// HTTP status so callers can distinguish rate limiting from hard failure.
type Error struct {
	Platform   platform.Platform
	URL        string
	StatusCode int
	Body       string
	Cause      error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("scrape: %s extraction failed (status %d): %s", e.Platform, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("scrape: %s extraction failed: %v", e.Platform, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// IsRateLimited reports whether the upstream rejected the call for quota
// reasons rather than failing outright.
func (e *Error) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// Creator is the uploading account as reported by the source platform.
type Creator struct {
	Handle      string `json:"handle"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

// QuickMetadata is the lightweight descriptor used by quick-mode extraction.
type QuickMetadata struct {
	SourceID        string  `json:"source_id"`
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	DurationSeconds float64 `json:"duration_seconds"`
	ThumbnailURL    string  `json:"thumbnail_url"`
}

// Metadata is the full descriptor including the playable asset and creator.
// Immutable once returned; lifetime is one extraction request.
type Metadata struct {
	QuickMetadata
	MediaURL    string     `json:"media_url"`
	Creator     *Creator   `json:"creator"`
	PublishedAt *time.Time `json:"published_at"`
}

// Engagement holds popularity counts. Pointers distinguish "not reported by
// the platform" from zero.
type Engagement struct {
	Likes    *int64 `json:"likes"`
	Views    *int64 `json:"views"`
	Comments *int64 `json:"comments"`
	Shares   *int64 `json:"shares"`
}

// QuickInfo fetches the lightweight descriptor for a video URL.
func (c *Client) QuickInfo(ctx context.Context, p platform.Platform, videoURL string) (*QuickMetadata, error) {
	var out QuickMetadata
	if err := c.runActor(ctx, p, videoURL, "quick", &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.SourceID) == "" {
		return nil, &Error{Platform: p, URL: videoURL, Cause: fmt.Errorf("upstream returned no source id")}
	}
	return &out, nil
}

// FullInfo fetches the full descriptor including the playable media URL.
func (c *Client) FullInfo(ctx context.Context, p platform.Platform, videoURL string) (*Metadata, error) {
	var out Metadata
	if err := c.runActor(ctx, p, videoURL, "full", &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.SourceID) == "" {
		return nil, &Error{Platform: p, URL: videoURL, Cause: fmt.Errorf("upstream returned no source id")}
	}
	return &out, nil
}

// FetchEngagement fetches current popularity counts for a video URL.
func (c *Client) FetchEngagement(ctx context.Context, p platform.Platform, videoURL string) (*Engagement, error) {
	var out Engagement
	if err := c.runActor(ctx, p, videoURL, "stats", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) runActor(ctx context.Context, p platform.Platform, videoURL, mode string, out any) error {
	videoURL = strings.TrimSpace(videoURL)
	if videoURL == "" {
		return &Error{Platform: p, Cause: fmt.Errorf("url is required")}
	}
	actor, ok := c.actors[p]
	if !ok {
		return &Error{Platform: p, URL: videoURL, Cause: fmt.Errorf("no actor configured for platform")}
	}

	endpoint := fmt.Sprintf("%s/acts/%s/run-sync", c.baseURL, url.PathEscape(actor))

	body, err := json.Marshal(map[string]string{"url": videoURL, "mode": mode})
	if err != nil {
		return &Error{Platform: p, URL: videoURL, Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return &Error{Platform: p, URL: videoURL, Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Platform: p, URL: videoURL, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 16*1024))
		return &Error{
			Platform:   p,
			URL:        videoURL,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(excerpt)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Platform: p, URL: videoURL, Cause: fmt.Errorf("parse response: %w", err)}
	}
	return nil
}
