// Package admin holds the user-management endpoints. There is no public
// registration; admins provision accounts.
package admin

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	webauth "promoloft.app/studio/cmd/web/auth"
	"promoloft.app/studio/cmd/web/handlers/common"
	"promoloft.app/studio/internal/db"
)

type createUserRequest struct {
	Email    string `json:"email"`
	UserName string `json:"user_name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type createUserResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	UserName string `json:"user_name"`
	Role     string `json:"role"`
}

func HandleCreateUser(sm *webauth.SessionManager, dbc *db.DatabaseConnection) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := common.RequireAdmin(c, sm); err != nil {
			return err
		}

		var req createUserRequest
		if err := c.Bind(&req); err != nil {
			return common.ErrBadRequest("invalid request body")
		}

		req.Email = strings.TrimSpace(req.Email)
		req.UserName = strings.TrimSpace(req.UserName)
		if req.Email == "" || req.UserName == "" {
			return common.ErrBadRequest("email and user_name are required")
		}
		if len(req.Password) < 8 {
			return common.ErrBadRequest("password must be at least 8 characters")
		}
		switch db.UserRole(req.Role) {
		case db.UserRoleUser, db.UserRoleAdmin:
		default:
			return common.ErrBadRequest("role must be user or admin")
		}

		user, err := dbc.Queries(c.Request().Context()).NewUser(c.Request().Context(), db.NewUserParams{
			Username: req.UserName,
			Email:    req.Email,
			Password: req.Password,
			Role:     req.Role,
		})
		if err != nil {
			if db.IsUniqueViolation(err) {
				return echo.NewHTTPError(http.StatusConflict, "email or user name already in use")
			}
			slog.Error("failed to create user", "email", req.Email, "error", err)
			return common.ErrInternal("failed to create user")
		}

		return c.JSON(http.StatusCreated, createUserResponse{
			ID:       user.ID.String(),
			Email:    user.Email,
			UserName: user.UserName,
			Role:     string(user.Role),
		})
	}
}
