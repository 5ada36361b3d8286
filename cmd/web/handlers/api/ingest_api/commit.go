package ingest_api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/labstack/echo/v4"

	webauth "promoloft.app/studio/cmd/web/auth"
	"promoloft.app/studio/cmd/web/handlers/common"
	"promoloft.app/studio/internal/db"
	"promoloft.app/studio/internal/platform"
)

type commitCreator struct {
	ID          string `json:"id"`
	Handle      string `json:"handle"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

type commitRequest struct {
	ProposedID      string         `json:"proposed_id"`
	Platform        string         `json:"platform"`
	SourceID        string         `json:"source_id"`
	SourceURL       string         `json:"source_url"`
	Slug            string         `json:"slug"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	DurationSeconds float64        `json:"duration_seconds"`
	ThumbnailURL    string         `json:"thumbnail_url"`
	VideoURL        string         `json:"video_url"`
	Transcript      string         `json:"transcript"`
	Creator         *commitCreator `json:"creator"`
	PublishedAt     *time.Time     `json:"published_at"`
}

type commitResponse struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
}

// HandleCommit persists a reviewed full-extraction descriptor as a video
// record, creating the creator on the way when the descriptor carried a
// candidate instead of an existing id. The store's unique constraints are
// the arbiter under concurrent commits of the same source.
func HandleCommit(sm *webauth.SessionManager, dbc *db.DatabaseConnection) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := common.RequireAdmin(c, sm); err != nil {
			return err
		}

		var req commitRequest
		if err := c.Bind(&req); err != nil {
			return common.ErrBadRequest("invalid request body")
		}
		if err := validateCommit(&req); err != nil {
			return err
		}

		var videoID pgtype.UUID
		if err := videoID.Scan(req.ProposedID); err != nil {
			return common.ErrBadRequest("invalid proposed_id")
		}

		ctx := c.Request().Context()
		q := dbc.Queries(ctx)

		creatorID, err := resolveCommitCreator(c, q, req.Platform, req.Creator)
		if err != nil {
			return err
		}

		video, err := q.InsertVideo(ctx, &db.InsertVideoParams{
			ID:              videoID,
			Platform:        req.Platform,
			SourceID:        req.SourceID,
			SourceURL:       req.SourceURL,
			Slug:            req.Slug,
			Title:           req.Title,
			Description:     req.Description,
			DurationSeconds: req.DurationSeconds,
			ThumbnailURL:    nullableText(req.ThumbnailURL),
			VideoURL:        nullableText(req.VideoURL),
			Transcript:      nullableText(req.Transcript),
			CreatorID:       creatorID,
			PublishedAt:     nullableTime(req.PublishedAt),
		})
		if err != nil {
			if db.IsUniqueViolation(err) {
				// Lost the race to another commit of the same source or slug.
				if existing, lookupErr := q.GetVideoBySource(ctx, req.Platform, req.SourceID); lookupErr == nil {
					return c.JSON(http.StatusConflict, conflictResponse{
						Error:   "source already ingested",
						VideoID: existing.ID.String(),
						Slug:    existing.Slug,
					})
				}
				return echo.NewHTTPError(http.StatusConflict, "slug already in use")
			}
			slog.Error("failed to insert video", "platform", req.Platform, "source_id", req.SourceID, "error", err)
			return common.ErrInternal("failed to persist video")
		}

		return c.JSON(http.StatusCreated, commitResponse{ID: video.ID.String(), Slug: video.Slug})
	}
}

func validateCommit(req *commitRequest) error {
	req.Platform = strings.TrimSpace(req.Platform)
	req.SourceID = strings.TrimSpace(req.SourceID)
	req.Slug = strings.TrimSpace(req.Slug)

	if !platform.Valid(platform.Platform(req.Platform)) {
		return common.ErrBadRequest("unknown platform")
	}
	if req.SourceID == "" {
		return common.ErrBadRequest("source_id is required")
	}
	if req.Slug == "" {
		return common.ErrBadRequest("slug is required")
	}
	if req.Title == "" {
		return common.ErrBadRequest("title is required")
	}
	return nil
}

// resolveCommitCreator returns the creator id for the record: the given
// existing id, a freshly created creator, or the row another commit created
// first.
func resolveCommitCreator(c echo.Context, q *db.Queries, videoPlatform string, creator *commitCreator) (pgtype.UUID, error) {
	if creator == nil {
		return pgtype.UUID{}, nil
	}

	ctx := c.Request().Context()

	if creator.ID != "" {
		var id pgtype.UUID
		if err := id.Scan(creator.ID); err != nil {
			return pgtype.UUID{}, common.ErrBadRequest("invalid creator id")
		}
		return id, nil
	}

	handle := strings.TrimSpace(creator.Handle)
	if handle == "" {
		return pgtype.UUID{}, common.ErrBadRequest("creator handle is required")
	}

	created, err := q.NewCreator(ctx, db.NewCreatorParams{
		Platform:    videoPlatform,
		Handle:      handle,
		DisplayName: creator.DisplayName,
		AvatarURL:   nullableText(creator.AvatarURL),
	})
	if err == nil {
		return created.ID, nil
	}
	if db.IsUniqueViolation(err) {
		existing, lookupErr := q.GetCreatorByHandle(ctx, videoPlatform, handle)
		if lookupErr == nil {
			return existing.ID, nil
		}
		if !errors.Is(lookupErr, pgx.ErrNoRows) {
			err = lookupErr
		}
	}
	slog.Error("failed to resolve creator", "platform", videoPlatform, "handle", handle, "error", err)
	return pgtype.UUID{}, common.ErrInternal("failed to resolve creator")
}

func nullableText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func nullableTime(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}
