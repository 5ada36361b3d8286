package scrape

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"promoloft.app/studio/internal/platform"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-token")
}

func TestFullInfo_ParsesMetadata(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.Contains(t, string(body), `"mode":"full"`)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"source_id": "7301234567890123456",
			"title": "Spring Sale Teaser",
			"description": "big sale",
			"duration_seconds": 34.5,
			"thumbnail_url": "https://cdn.example.com/thumb.jpg",
			"media_url": "https://cdn.example.com/video.mp4",
			"creator": {"handle": "maker", "display_name": "The Maker", "avatar_url": "https://cdn.example.com/a.jpg"}
		}`))
	})

	md, err := c.FullInfo(context.Background(), platform.TikTok, "https://www.tiktok.com/@maker/video/7301234567890123456")
	require.NoError(t, err)
	require.Equal(t, "7301234567890123456", md.SourceID)
	require.Equal(t, "Spring Sale Teaser", md.Title)
	require.Equal(t, 34.5, md.DurationSeconds)
	require.Equal(t, "https://cdn.example.com/video.mp4", md.MediaURL)
	require.NotNil(t, md.Creator)
	require.Equal(t, "maker", md.Creator.Handle)
}

func TestQuickInfo_MissingSourceIDIsError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"title": "no id"}`))
	})

	_, err := c.QuickInfo(context.Background(), platform.YouTube, "https://youtu.be/abc")
	var se *Error
	require.ErrorAs(t, err, &se)
	require.Zero(t, se.StatusCode)
}

func TestRunActor_SurfacesStatusAndBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("quota exceeded"))
	})

	_, err := c.FetchEngagement(context.Background(), platform.TikTok, "https://www.tiktok.com/@maker/video/1")
	var se *Error
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusTooManyRequests, se.StatusCode)
	require.True(t, se.IsRateLimited())
	require.Contains(t, se.Body, "quota exceeded")
}

func TestRunActor_EmptyURL(t *testing.T) {
	c := NewClient("", "")
	_, err := c.QuickInfo(context.Background(), platform.TikTok, "  ")
	var se *Error
	require.True(t, errors.As(err, &se))
	require.False(t, se.IsRateLimited())
}
