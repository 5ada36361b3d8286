// Package ingest_api exposes the media ingestion pipeline to the admin UI:
// extraction of source URLs into descriptors and persistence of reviewed
// descriptors as video records.
package ingest_api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	webauth "promoloft.app/studio/cmd/web/auth"
	"promoloft.app/studio/cmd/web/handlers/common"
	"promoloft.app/studio/internal/extract"
	"promoloft.app/studio/pkg/scrape"
)

// Extractor is the slice of the extraction orchestrator the handler needs.
type Extractor interface {
	QuickExtract(ctx context.Context, rawURL string) (*extract.QuickResult, error)
	FullExtract(ctx context.Context, rawURL string, generateTranscript bool) (*extract.FullResult, error)
}

type extractRequest struct {
	URL                string `json:"url"`
	Mode               string `json:"mode"`
	GenerateTranscript bool   `json:"generate_transcript"`
}

type conflictResponse struct {
	Error   string `json:"error"`
	VideoID string `json:"video_id"`
	Slug    string `json:"slug"`
}

// HandleExtract runs a quick or full extraction for a source URL. The admin
// gate runs before anything else so unauthorized calls never hit external
// services.
func HandleExtract(sm *webauth.SessionManager, svc Extractor) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := common.RequireAdmin(c, sm); err != nil {
			return err
		}

		var req extractRequest
		if err := c.Bind(&req); err != nil {
			return common.ErrBadRequest("invalid request body")
		}
		req.URL = strings.TrimSpace(req.URL)
		if req.URL == "" {
			return common.ErrBadRequest("url is required")
		}

		switch req.Mode {
		case "quick":
			result, err := svc.QuickExtract(c.Request().Context(), req.URL)
			if err != nil {
				return mapExtractError(c, err)
			}
			return c.JSON(http.StatusOK, result)
		case "full":
			result, err := svc.FullExtract(c.Request().Context(), req.URL, req.GenerateTranscript)
			if err != nil {
				return mapExtractError(c, err)
			}
			return c.JSON(http.StatusOK, result)
		default:
			return common.ErrBadRequest("mode must be quick or full")
		}
	}
}

func mapExtractError(c echo.Context, err error) error {
	var invalid *extract.InvalidInputError
	if errors.As(err, &invalid) {
		return common.ErrBadRequest(invalid.Reason)
	}

	var conflict *extract.ConflictError
	if errors.As(err, &conflict) {
		return c.JSON(http.StatusConflict, conflictResponse{
			Error:   "source already ingested",
			VideoID: conflict.VideoID.String(),
			Slug:    conflict.Slug,
		})
	}

	var scrapeErr *scrape.Error
	if errors.As(err, &scrapeErr) {
		slog.Error("metadata extraction failed", "url", scrapeErr.URL, "status", scrapeErr.StatusCode, "error", err)
		return common.ErrInternal("metadata extraction failed")
	}

	slog.Error("extraction failed", "error", err)
	return common.ErrInternal("extraction failed")
}
