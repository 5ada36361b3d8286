// Package extract is the entry point of the media ingestion pipeline. It
// composes platform detection, metadata extraction, asset rehosting,
// transcription and creator resolution into the quick and full workflows the
// admin API exposes.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"promoloft.app/studio/internal/db"
	"promoloft.app/studio/internal/platform"
	"promoloft.app/studio/internal/sourceid"
	"promoloft.app/studio/pkg/scrape"
	"promoloft.app/studio/pkg/slug"
	"promoloft.app/studio/pkg/transcribe"
)

// MetadataSource is the platform scraping capability.
type MetadataSource interface {
	QuickInfo(ctx context.Context, p platform.Platform, videoURL string) (*scrape.QuickMetadata, error)
	FullInfo(ctx context.Context, p platform.Platform, videoURL string) (*scrape.Metadata, error)
}

// AssetStore rehosts third-party assets. An empty return means the rehost
// failed and the caller keeps the original URL.
type AssetStore interface {
	UploadFromURL(ctx context.Context, sourceURL, fileName, folder string) string
}

// Transcriber is the speech-to-text capability.
type Transcriber interface {
	TranscribeFromURL(ctx context.Context, mediaURL string) (string, error)
}

// Store is the slice of the relational store the orchestrator consults. True
// uniqueness is enforced by the store's constraints at insert time; these
// lookups are pre-checks.
type Store interface {
	GetVideoBySource(ctx context.Context, platform, sourceID string) (*db.VideoRef, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	GetCreatorByHandle(ctx context.Context, platform, handle string) (*db.Creator, error)
}

// InvalidInputError is a caller error: bad URL or unsupported platform.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string { return "invalid input: " + e.Reason }

// ConflictError reports that the source was already ingested. Callers should
// treat it as idempotent success carrying the existing record's identity,
// not as a retryable failure.
type ConflictError struct {
	VideoID pgtype.UUID
	Slug    string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("source already ingested as %q", e.Slug)
}

// QuickResult is the quick-mode descriptor: metadata plus a best-effort
// rehosted thumbnail.
type QuickResult struct {
	Platform          platform.Platform `json:"platform"`
	SourceID          string            `json:"source_id"`
	Title             string            `json:"title"`
	Description       string            `json:"description"`
	DurationSeconds   float64           `json:"duration_seconds"`
	ThumbnailURL      string            `json:"thumbnail_url"`
	ThumbnailRehosted bool              `json:"thumbnail_rehosted"`
}

// ExistingCreator links an extraction to a creator already on file.
type ExistingCreator struct {
	ID   pgtype.UUID `json:"id"`
	Name string      `json:"name"`
}

// CreatorCandidate carries what the caller needs to create a missing creator.
type CreatorCandidate struct {
	Platform    platform.Platform `json:"platform"`
	Handle      string            `json:"handle"`
	DisplayName string            `json:"display_name"`
	AvatarURL   string            `json:"avatar_url"`
}

// CreatorResolution is a tagged variant: exactly one of Existing or Candidate
// is set.
type CreatorResolution struct {
	Existing  *ExistingCreator  `json:"existing,omitempty"`
	Candidate *CreatorCandidate `json:"candidate,omitempty"`
}

// FullResult is the full-mode payload the persistence layer consumes.
type FullResult struct {
	Platform        platform.Platform  `json:"platform"`
	SourceID        string             `json:"source_id"`
	ProposedID      uuid.UUID          `json:"proposed_id"`
	Slug            string             `json:"slug"`
	Title           string             `json:"title"`
	Description     string             `json:"description"`
	DurationSeconds float64            `json:"duration_seconds"`
	SourceURL       string             `json:"source_url"`
	ThumbnailURL    string             `json:"thumbnail_url"`
	VideoURL        string             `json:"video_url"`
	VideoRehosted   bool               `json:"video_rehosted"`
	Transcript      string             `json:"transcript,omitempty"`
	TranscriptCost  float64            `json:"transcript_cost,omitempty"`
	Creator         *CreatorResolution `json:"creator,omitempty"`
	PublishedAt     *time.Time         `json:"published_at,omitempty"`
}

type Service struct {
	meta        MetadataSource
	assets      AssetStore
	transcriber Transcriber
	store       Store

	// transcribeRate is the per-minute speech-to-text rate used for the cost
	// estimate reported alongside a transcript. Reporting only.
	transcribeRate float64
}

func NewService(meta MetadataSource, assets AssetStore, transcriber Transcriber, store Store, transcribeRate float64) *Service {
	return &Service{
		meta:           meta,
		assets:         assets,
		transcriber:    transcriber,
		store:          store,
		transcribeRate: transcribeRate,
	}
}

// QuickExtract resolves a URL into a lightweight descriptor, rehosting only
// the thumbnail. A failed thumbnail rehost keeps the original URL.
func (s *Service) QuickExtract(ctx context.Context, rawURL string) (*QuickResult, error) {
	p, err := platform.Detect(rawURL)
	if err != nil {
		return nil, &InvalidInputError{Reason: err.Error()}
	}

	md, err := s.meta.QuickInfo(ctx, p, rawURL)
	if err != nil {
		return nil, fmt.Errorf("extract metadata: %w", err)
	}

	result := &QuickResult{
		Platform:        p,
		SourceID:        md.SourceID,
		Title:           md.Title,
		Description:     md.Description,
		DurationSeconds: md.DurationSeconds,
		ThumbnailURL:    md.ThumbnailURL,
	}

	if md.ThumbnailURL != "" && md.SourceID != "" {
		if canonical := s.assets.UploadFromURL(ctx, md.ThumbnailURL, assetFileName(md.SourceID, md.ThumbnailURL, ".jpg"), "thumbnails/"+string(p)); canonical != "" {
			result.ThumbnailURL = canonical
			result.ThumbnailRehosted = true
		}
	}

	return result, nil
}

// FullExtract resolves a URL into a fully-described, persistence-ready record.
// The conflict pre-check runs before any upload or transcription so retried
// ingests of an already-known source do no side-effecting work.
func (s *Service) FullExtract(ctx context.Context, rawURL string, generateTranscript bool) (*FullResult, error) {
	p, err := platform.Detect(rawURL)
	if err != nil {
		return nil, &InvalidInputError{Reason: err.Error()}
	}
	if !platform.SupportsFull(p) {
		return nil, &InvalidInputError{Reason: fmt.Sprintf("platform %q does not support full ingestion", p)}
	}

	md, err := s.meta.FullInfo(ctx, p, rawURL)
	if err != nil {
		return nil, fmt.Errorf("extract metadata: %w", err)
	}

	if existing, err := s.store.GetVideoBySource(ctx, string(p), md.SourceID); err == nil {
		return nil, &ConflictError{VideoID: existing.ID, Slug: existing.Slug}
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check existing video: %w", err)
	}

	result := &FullResult{
		Platform:        p,
		SourceID:        md.SourceID,
		ProposedID:      sourceid.VideoUUID(p, md.SourceID),
		Title:           md.Title,
		Description:     md.Description,
		DurationSeconds: md.DurationSeconds,
		SourceURL:       rawURL,
		ThumbnailURL:    md.ThumbnailURL,
		VideoURL:        md.MediaURL,
		PublishedAt:     md.PublishedAt,
	}

	result.Slug = s.proposeSlug(ctx, md.Title, md.SourceID)

	if md.ThumbnailURL != "" {
		if canonical := s.assets.UploadFromURL(ctx, md.ThumbnailURL, assetFileName(md.SourceID, md.ThumbnailURL, ".jpg"), "thumbnails/"+string(p)); canonical != "" {
			result.ThumbnailURL = canonical
		}
	}

	if md.MediaURL != "" {
		canonical := s.assets.UploadFromURL(ctx, md.MediaURL, assetFileName(md.SourceID, md.MediaURL, ".mp4"), "videos/"+string(p))
		if canonical != "" {
			result.VideoURL = canonical
			result.VideoRehosted = true
		} else {
			// Reduced durability: the record keeps the third-party URL.
			slog.Warn("video rehost failed, keeping source url", "platform", p, "source_id", md.SourceID)
		}
	}

	if generateTranscript && result.VideoRehosted {
		text, err := s.transcriber.TranscribeFromURL(ctx, result.VideoURL)
		if err != nil {
			// Transcription is an enhancement, never a precondition of
			// ingestion. Log and continue with an empty transcript.
			slog.Warn("transcription failed", "platform", p, "source_id", md.SourceID, "error", err)
		} else {
			result.Transcript = text
			result.TranscriptCost = transcribe.EstimateCost(md.DurationSeconds, s.transcribeRate)
		}
	}

	if md.Creator != nil && strings.TrimSpace(md.Creator.Handle) != "" {
		resolution, err := s.resolveCreator(ctx, p, md.Creator)
		if err != nil {
			return nil, fmt.Errorf("resolve creator: %w", err)
		}
		result.Creator = resolution
	}

	return result, nil
}

func (s *Service) resolveCreator(ctx context.Context, p platform.Platform, c *scrape.Creator) (*CreatorResolution, error) {
	existing, err := s.store.GetCreatorByHandle(ctx, string(p), c.Handle)
	if err == nil {
		return &CreatorResolution{Existing: &ExistingCreator{ID: existing.ID, Name: existing.DisplayName}}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	displayName := strings.TrimSpace(c.DisplayName)
	if displayName == "" {
		displayName = cases.Title(language.AmericanEnglish).String(c.Handle)
	}

	return &CreatorResolution{Candidate: &CreatorCandidate{
		Platform:    p,
		Handle:      c.Handle,
		DisplayName: displayName,
		AvatarURL:   c.AvatarURL,
	}}, nil
}

// proposeSlug derives a collision-minimized slug for the record. The store's
// unique constraint remains the arbiter at insert time.
func (s *Service) proposeSlug(ctx context.Context, title, sourceID string) string {
	base := slug.Normalize(title)
	if base == "" {
		base = slug.Normalize(sourceID)
	}
	return slug.EnsureUnique(base, func(candidate string) bool {
		exists, err := s.store.SlugExists(ctx, candidate)
		if err != nil {
			slog.Warn("slug existence check failed", "slug", candidate, "error", err)
			return false
		}
		return exists
	})
}

// assetFileName builds a stable object name from the source id, keeping the
// origin's extension when it has one.
func assetFileName(sourceID, originURL, fallbackExt string) string {
	trimmed := originURL
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	ext := path.Ext(trimmed)
	if ext == "" || len(ext) > 5 {
		ext = fallbackExt
	}
	return sourceID + ext
}
