// Package sourceid derives deterministic identities for ingested media from
// their (platform, source id) pair. Re-ingesting the same source always maps
// to the same UUID, which makes the store-level uniqueness check structural
// rather than dependent on string comparison alone.
package sourceid

import (
	"strings"

	"github.com/google/uuid"
	"promoloft.app/studio/internal/platform"
)

var domainByPlatform = map[platform.Platform]string{
	platform.TikTok:    "tiktok.com",
	platform.Instagram: "instagram.com",
	platform.YouTube:   "youtube.com",
}

// Namespace returns a deterministic UUIDv5 namespace for a platform, derived
// from its canonical domain under the DNS namespace.
func Namespace(p platform.Platform) uuid.UUID {
	domain, ok := domainByPlatform[p]
	if !ok {
		domain = string(p)
	}
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(domain))
}

// VideoUUID returns a deterministic UUIDv5 for a (platform, sourceID) pair.
// The source id is trimmed but otherwise used verbatim; the platform is
// already scoped by the namespace.
func VideoUUID(p platform.Platform, sourceID string) uuid.UUID {
	return uuid.NewSHA1(Namespace(p), []byte(strings.TrimSpace(sourceID)))
}
