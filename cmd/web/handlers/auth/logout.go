package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	webauth "promoloft.app/studio/cmd/web/auth"
)

func HandleLogout(sm *webauth.SessionManager) echo.HandlerFunc {
	return func(c echo.Context) error {
		sm.ClearSession(c.Response().Writer, c.Request())
		return c.NoContent(http.StatusNoContent)
	}
}
