// Package metrics_api exposes the engagement refresher to the admin UI.
package metrics_api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/labstack/echo/v4"

	webauth "promoloft.app/studio/cmd/web/auth"
	"promoloft.app/studio/cmd/web/handlers/common"
	"promoloft.app/studio/internal/metrics"
)

// EntryRefresher is the slice of the metrics refresher the handler needs.
type EntryRefresher interface {
	Refresh(ctx context.Context, ids []pgtype.UUID) (*metrics.Summary, error)
}

type refreshRequest struct {
	EntryIDs []string `json:"entry_ids"`
}

// HandleRefresh refreshes cached engagement metrics for the requested
// leaderboard entries, or for every active entry when the request names
// none. Always returns 200 with a per-entry summary; individual fetch
// failures are reported inside it, not as an HTTP error.
func HandleRefresh(sm *webauth.SessionManager, refresher EntryRefresher) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := common.RequireAdmin(c, sm); err != nil {
			return err
		}

		var req refreshRequest
		if err := c.Bind(&req); err != nil {
			return common.ErrBadRequest("invalid request body")
		}

		ids := make([]pgtype.UUID, 0, len(req.EntryIDs))
		for _, raw := range req.EntryIDs {
			var id pgtype.UUID
			if err := id.Scan(raw); err != nil {
				return common.ErrBadRequest("invalid entry id: " + raw)
			}
			ids = append(ids, id)
		}

		summary, err := refresher.Refresh(c.Request().Context(), ids)
		if err != nil {
			slog.Error("metrics refresh failed", "error", err)
			return common.ErrInternal("metrics refresh failed")
		}

		return c.JSON(http.StatusOK, summary)
	}
}
