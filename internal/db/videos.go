package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

// VideoRef is the identity of an already-ingested video, returned by the
// conflict pre-check.
type VideoRef struct {
	ID   pgtype.UUID
	Slug string
}

// GetVideoBySource looks up a video by its (platform, source_id) identity.
// Returns pgx.ErrNoRows when the source has not been ingested.
func (q *Queries) GetVideoBySource(ctx context.Context, platform, sourceID string) (*VideoRef, error) {
	row := q.db.QueryRow(ctx,
		`SELECT id, slug FROM videos WHERE platform = $1 AND source_id = $2`,
		platform, sourceID)

	ref := &VideoRef{}
	if err := row.Scan(&ref.ID, &ref.Slug); err != nil {
		return nil, err
	}
	return ref, nil
}

// SlugExists reports whether any video already uses slug.
func (q *Queries) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM videos WHERE slug = $1)`, slug).Scan(&exists)
	return exists, err
}

type InsertVideoParams struct {
	ID              pgtype.UUID
	Platform        string
	SourceID        string
	SourceURL       string
	Slug            string
	Title           string
	Description     string
	DurationSeconds float64
	ThumbnailURL    pgtype.Text
	VideoURL        pgtype.Text
	Transcript      pgtype.Text
	CreatorID       pgtype.UUID
	PublishedAt     pgtype.Timestamptz
}

// InsertVideo persists a fully-described video record. The unique constraints
// on (platform, source_id) and slug are the final arbiter under concurrent
// ingests; callers should check IsUniqueViolation on failure.
func (q *Queries) InsertVideo(ctx context.Context, p *InsertVideoParams) (*Video, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO videos (
			id, platform, source_id, source_url, slug, title, description,
			duration_seconds, thumbnail_url, video_url, transcript, creator_id, published_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, platform, source_id, source_url, slug, title, description,
			duration_seconds, thumbnail_url, video_url, transcript, creator_id,
			published_at, created_at`,
		p.ID, p.Platform, p.SourceID, p.SourceURL, p.Slug, p.Title, p.Description,
		p.DurationSeconds, p.ThumbnailURL, p.VideoURL, p.Transcript, p.CreatorID, p.PublishedAt)

	v := &Video{}
	err := row.Scan(
		&v.ID, &v.Platform, &v.SourceID, &v.SourceURL, &v.Slug, &v.Title, &v.Description,
		&v.DurationSeconds, &v.ThumbnailURL, &v.VideoURL, &v.Transcript, &v.CreatorID,
		&v.PublishedAt, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	return v, nil
}
