package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// GetCreatorByHandle looks up a creator by their platform-specific handle.
// Returns pgx.ErrNoRows when no creator is linked to the handle yet.
func (q *Queries) GetCreatorByHandle(ctx context.Context, platform, handle string) (*Creator, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, platform, handle, display_name, avatar_url, created_at
		FROM creators WHERE platform = $1 AND handle = $2`,
		platform, handle)

	c := &Creator{}
	err := row.Scan(&c.ID, &c.Platform, &c.Handle, &c.DisplayName, &c.AvatarURL, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

type NewCreatorParams struct {
	Platform    string
	Handle      string
	DisplayName string
	AvatarURL   pgtype.Text
}

// NewCreator inserts a creator record. UNIQUE(platform, handle) is the
// arbiter under concurrent ingests of the same creator.
func (q *Queries) NewCreator(ctx context.Context, p NewCreatorParams) (*Creator, error) {
	id := pgtype.UUID{Bytes: uuid.New(), Valid: true}

	row := q.db.QueryRow(ctx, `
		INSERT INTO creators (id, platform, handle, display_name, avatar_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, platform, handle, display_name, avatar_url, created_at`,
		id, p.Platform, p.Handle, p.DisplayName, p.AvatarURL)

	c := &Creator{}
	err := row.Scan(&c.ID, &c.Platform, &c.Handle, &c.DisplayName, &c.AvatarURL, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}
