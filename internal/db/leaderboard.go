package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const leaderboardSourceQuery = `
	SELECT e.id, e.video_id, e.long_video_id,
		e.likes, e.views, e.comments, e.shares,
		e.metrics_updated_at, e.is_active, e.display_order,
		v.platform, v.source_url
	FROM leaderboard_entries e
	LEFT JOIN videos v ON v.id = COALESCE(e.video_id, e.long_video_id)`

// ListActiveLeaderboardSources returns all active leaderboard entries joined
// with the source fields needed for a metrics fetch, in display order.
func (q *Queries) ListActiveLeaderboardSources(ctx context.Context) ([]*LeaderboardSource, error) {
	rows, err := q.db.Query(ctx, leaderboardSourceQuery+`
		WHERE e.is_active ORDER BY e.display_order`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLeaderboardSources(rows)
}

// ListLeaderboardSourcesByIDs returns the requested entries regardless of
// their active flag. Unknown ids are silently absent from the result.
func (q *Queries) ListLeaderboardSourcesByIDs(ctx context.Context, ids []pgtype.UUID) ([]*LeaderboardSource, error) {
	rows, err := q.db.Query(ctx, leaderboardSourceQuery+`
		WHERE e.id = ANY($1) ORDER BY e.display_order`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLeaderboardSources(rows)
}

func scanLeaderboardSources(rows pgx.Rows) ([]*LeaderboardSource, error) {
	var out []*LeaderboardSource
	for rows.Next() {
		s := &LeaderboardSource{}
		err := rows.Scan(
			&s.Entry.ID, &s.Entry.VideoID, &s.Entry.LongVideoID,
			&s.Entry.Likes, &s.Entry.Views, &s.Entry.Comments, &s.Entry.Shares,
			&s.Entry.MetricsUpdatedAt, &s.Entry.IsActive, &s.Entry.DisplayOrder,
			&s.SourcePlatform, &s.SourceURL)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type UpdateEntryMetricsParams struct {
	ID        pgtype.UUID
	Likes     pgtype.Int8
	Views     pgtype.Int8
	Comments  pgtype.Int8
	Shares    pgtype.Int8
	UpdatedAt time.Time
}

// UpdateEntryMetrics persists fresh engagement counts for one entry. Called
// per entry, not batched, so a crash mid-refresh leaves completed entries
// durably updated.
func (q *Queries) UpdateEntryMetrics(ctx context.Context, p UpdateEntryMetricsParams) error {
	_, err := q.db.Exec(ctx, `
		UPDATE leaderboard_entries
		SET likes = $2, views = $3, comments = $4, shares = $5, metrics_updated_at = $6
		WHERE id = $1`,
		p.ID, p.Likes, p.Views, p.Comments, p.Shares,
		pgtype.Timestamptz{Time: p.UpdatedAt, Valid: true})
	return err
}
