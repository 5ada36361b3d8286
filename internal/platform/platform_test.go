package platform

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetect_KnownHosts(t *testing.T) {
	tests := []struct {
		url  string
		want Platform
	}{
		{"https://www.tiktok.com/@maker/video/7301234567890123456", TikTok},
		{"https://vm.tiktok.com/ZM6abcdef/", TikTok},
		{"https://www.instagram.com/reel/Cx1aBcDeFgH/", Instagram},
		{"https://instagr.am/p/Cx1aBcDeFgH/", Instagram},
		{"https://www.youtube.com/watch?v=ggLajT7aMMk", YouTube},
		{"https://youtu.be/ggLajT7aMMk", YouTube},
		{"m.youtube.com/watch?v=ggLajT7aMMk", YouTube},
	}
	for _, tt := range tests {
		got, err := Detect(tt.url)
		require.NoError(t, err, tt.url)
		require.Equal(t, tt.want, got, tt.url)
	}
}

func TestDetect_Unsupported(t *testing.T) {
	for _, u := range []string{
		"https://vimeo.com/123456",
		"https://example.com/video.mp4",
		"",
		"not a url at all ://",
	} {
		_, err := Detect(u)
		require.ErrorIs(t, err, ErrUnsupported, u)
	}
}

func TestDetect_IgnoresPort(t *testing.T) {
	got, err := Detect("https://www.youtube.com:443/watch?v=abc")
	require.NoError(t, err)
	require.Equal(t, YouTube, got)
}

func TestSupportsFull(t *testing.T) {
	require.True(t, SupportsFull(TikTok))
	require.True(t, SupportsFull(YouTube))
	require.False(t, SupportsFull(Instagram))
	require.False(t, SupportsFull(Platform("vimeo")))
}
