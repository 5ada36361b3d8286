package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	webauth "promoloft.app/studio/cmd/web/auth"
	"promoloft.app/studio/cmd/web/handlers/common"
	"promoloft.app/studio/internal/db"
	"promoloft.app/studio/pkg/utils/passwords"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	UserName string `json:"user_name"`
	Role     string `json:"role"`
}

func HandleLogin(sm *webauth.SessionManager, dbc *db.DatabaseConnection) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req loginRequest
		if err := c.Bind(&req); err != nil {
			return common.ErrBadRequest("invalid request body")
		}

		email := strings.TrimSpace(req.Email)
		if email == "" || req.Password == "" {
			return common.ErrBadRequest("email and password are required")
		}

		user, err := dbc.Queries(c.Request().Context()).GetUserByEmail(c.Request().Context(), email)
		if err != nil {
			return common.ErrUnauthorized()
		}

		matches, err := user.Password.ComparePasswordAndHash(passwords.PasswordInput{Password: req.Password})
		if err != nil || !matches {
			return common.ErrUnauthorized()
		}

		if !user.Enabled {
			return common.ErrForbidden()
		}

		accessLevel := webauth.AccessUser
		if user.Role == db.UserRoleAdmin {
			accessLevel = webauth.AccessAdmin
		}

		if err := sm.SaveSession(c.Response().Writer, c.Request(), user.ID.String(), user.UserName, accessLevel); err != nil {
			slog.Error("failed to save session", "error", err)
			return common.ErrInternal("failed to save session")
		}

		return c.JSON(http.StatusOK, loginResponse{
			UserName: user.UserName,
			Role:     string(user.Role),
		})
	}
}
