// Package platform classifies incoming video URLs into the closed set of
// source platforms the pipeline can ingest from.
package platform

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

type Platform string

const (
	TikTok    Platform = "tiktok"
	Instagram Platform = "instagram"
	YouTube   Platform = "youtube"
)

// ErrUnsupported is returned for URLs whose host does not belong to a
// supported platform. An unsupported platform is an expected, caller-fixable
// condition, so this is a sentinel rather than a panic or opaque failure.
var ErrUnsupported = errors.New("unsupported platform")

// Well-known host aliases. Keep this intentionally conservative: only hosts
// that are truly the same source website from a user perspective.
var platformByHost = map[string]Platform{
	"tiktok.com":     TikTok,
	"www.tiktok.com": TikTok,
	"m.tiktok.com":   TikTok,
	"vm.tiktok.com":  TikTok,
	"vt.tiktok.com":  TikTok,

	"instagram.com":     Instagram,
	"www.instagram.com": Instagram,
	"instagr.am":        Instagram,
	"www.instagr.am":    Instagram,

	"youtube.com":     YouTube,
	"www.youtube.com": YouTube,
	"m.youtube.com":   YouTube,
	"youtu.be":        YouTube,
}

// Detect classifies rawURL into a supported Platform. Scheme-less input is
// treated as https. Unknown hosts return ErrUnsupported wrapped with the
// offending host.
func Detect(rawURL string) (Platform, error) {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return "", fmt.Errorf("%w: empty url", ErrUnsupported)
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		u, err = url.Parse("https://" + raw)
		if err != nil {
			return "", fmt.Errorf("%w: %q", ErrUnsupported, raw)
		}
	}

	host := normalizeHost(u.Host)
	if p, ok := platformByHost[host]; ok {
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupported, host)
}

// SupportsFull reports whether full-mode ingestion (video rehost, transcript,
// creator resolution) accepts the platform. Quick mode accepts all platforms
// that Detect does.
func SupportsFull(p Platform) bool {
	return p == TikTok || p == YouTube
}

// Valid reports whether p is one of the known platforms.
func Valid(p Platform) bool {
	switch p {
	case TikTok, Instagram, YouTube:
		return true
	}
	return false
}

func normalizeHost(hostport string) string {
	h := strings.TrimSpace(strings.ToLower(hostport))
	if h == "" {
		return ""
	}
	// url.URL.Host may include a port.
	if i := strings.IndexByte(h, ':'); i >= 0 {
		h = h[:i]
	}
	return strings.TrimSuffix(h, ".")
}
