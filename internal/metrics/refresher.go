// Package metrics refreshes cached engagement counts for leaderboard
// entries. Entries are refreshed concurrently and persisted one by one, so a
// single failing source never blocks or rolls back the rest of the batch.
package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/sync/errgroup"

	"promoloft.app/studio/internal/db"
	"promoloft.app/studio/internal/platform"
	"promoloft.app/studio/pkg/scrape"
)

// Store is the slice of the relational store the refresher uses.
type Store interface {
	ListActiveLeaderboardSources(ctx context.Context) ([]*db.LeaderboardSource, error)
	ListLeaderboardSourcesByIDs(ctx context.Context, ids []pgtype.UUID) ([]*db.LeaderboardSource, error)
	UpdateEntryMetrics(ctx context.Context, p db.UpdateEntryMetricsParams) error
}

// EngagementFetcher pulls fresh engagement counts from a source platform.
type EngagementFetcher interface {
	FetchEngagement(ctx context.Context, p platform.Platform, videoURL string) (*scrape.Engagement, error)
}

// EntryResult is the per-entry outcome of a refresh run.
type EntryResult struct {
	EntryID pgtype.UUID `json:"entry_id"`
	Err     string      `json:"error,omitempty"`
}

// Summary aggregates one refresh run.
type Summary struct {
	Updated int           `json:"updated"`
	Failed  int           `json:"failed"`
	Results []EntryResult `json:"results"`
}

type Refresher struct {
	store       Store
	fetcher     EngagementFetcher
	concurrency int
	now         func() time.Time
}

func NewRefresher(store Store, fetcher EngagementFetcher, concurrency int) *Refresher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Refresher{
		store:       store,
		fetcher:     fetcher,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// Refresh fetches and persists engagement counts for the requested entries,
// or for every active entry when ids is empty. Each entry is persisted as
// soon as its fetch succeeds; a failed entry keeps its previously cached
// counts and is reported in the summary.
func (r *Refresher) Refresh(ctx context.Context, ids []pgtype.UUID) (*Summary, error) {
	var (
		sources []*db.LeaderboardSource
		err     error
	)
	if len(ids) == 0 {
		sources, err = r.store.ListActiveLeaderboardSources(ctx)
	} else {
		sources, err = r.store.ListLeaderboardSourcesByIDs(ctx, ids)
	}
	if err != nil {
		return nil, fmt.Errorf("list leaderboard entries: %w", err)
	}

	results := make([]EntryResult, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, src := range sources {
		g.Go(func() error {
			results[i] = r.refreshOne(gctx, src)
			return nil
		})
	}
	// Workers never return errors; Wait only observes context cancellation.
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := &Summary{Results: results}
	for _, res := range results {
		if res.Err == "" {
			summary.Updated++
		} else {
			summary.Failed++
		}
	}
	slog.Info("engagement refresh finished", "updated", summary.Updated, "failed", summary.Failed)
	return summary, nil
}

func (r *Refresher) refreshOne(ctx context.Context, src *db.LeaderboardSource) EntryResult {
	result := EntryResult{EntryID: src.Entry.ID}

	if !src.SourcePlatform.Valid || !src.SourceURL.Valid {
		result.Err = "entry has no resolvable source video"
		slog.Warn("skipping entry without source", "entry_id", src.Entry.ID)
		return result
	}

	p := platform.Platform(src.SourcePlatform.String)
	engagement, err := r.fetcher.FetchEngagement(ctx, p, src.SourceURL.String)
	if err != nil {
		result.Err = err.Error()
		slog.Warn("engagement fetch failed", "entry_id", src.Entry.ID, "platform", p, "error", err)
		return result
	}

	err = r.store.UpdateEntryMetrics(ctx, db.UpdateEntryMetricsParams{
		ID:        src.Entry.ID,
		Likes:     mergeCount(engagement.Likes, src.Entry.Likes),
		Views:     mergeCount(engagement.Views, src.Entry.Views),
		Comments:  mergeCount(engagement.Comments, src.Entry.Comments),
		Shares:    mergeCount(engagement.Shares, src.Entry.Shares),
		UpdatedAt: r.now(),
	})
	if err != nil {
		result.Err = err.Error()
		slog.Warn("engagement persist failed", "entry_id", src.Entry.ID, "error", err)
	}
	return result
}

// mergeCount keeps the previously cached value when the platform omitted a
// counter, so a partial payload never zeroes out known metrics.
func mergeCount(fresh *int64, cached pgtype.Int8) pgtype.Int8 {
	if fresh == nil {
		return cached
	}
	return pgtype.Int8{Int64: *fresh, Valid: true}
}
