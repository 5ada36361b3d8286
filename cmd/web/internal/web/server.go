package web

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"promoloft.app/studio/cmd/web/auth"
	"promoloft.app/studio/cmd/web/handlers/admin"
	authhandlers "promoloft.app/studio/cmd/web/handlers/auth"

	"promoloft.app/studio/cmd/web/handlers/api/ingest_api"
	"promoloft.app/studio/cmd/web/handlers/api/metrics_api"

	"promoloft.app/studio/internal/db"
	"promoloft.app/studio/internal/extract"
	"promoloft.app/studio/internal/metrics"
)

type Webserver struct {
	*echo.Echo
	sessionManager *auth.SessionManager
	dbc            *db.DatabaseConnection
	extractor      *extract.Service
	refresher      *metrics.Refresher
}

func NewWebserver(dbc *db.DatabaseConnection, sessionManager *auth.SessionManager, extractor *extract.Service, refresher *metrics.Refresher) (*Webserver, error) {
	webserver := &Webserver{
		Echo:           echo.New(),
		sessionManager: sessionManager,
		dbc:            dbc,
		extractor:      extractor,
		refresher:      refresher,
	}

	webserver.registerRoutes()

	if err := webserver.setupMiddleware(); err != nil {
		return nil, err
	}

	return webserver, nil
}

func (s *Webserver) setupMiddleware() error {
	s.HideBanner = true
	s.HidePort = true
	s.Use(middleware.BodyLimit("2M"))
	s.Use(middleware.Recover())
	s.Use(middleware.RequestID())
	s.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
	}))
	s.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  false,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				fields = append(fields, "error", v.Error)
			}
			slog.Info("request", fields...)
			return nil
		},
	}))

	return nil
}

func (s *Webserver) registerRoutes() {
	s.POST("/auth/login", authhandlers.HandleLogin(s.sessionManager, s.dbc))
	s.POST("/auth/logout", authhandlers.HandleLogout(s.sessionManager))

	apiGroup := s.Group("/api")
	apiGroup.POST("/ingest/extract", ingest_api.HandleExtract(s.sessionManager, s.extractor))
	apiGroup.POST("/ingest/videos", ingest_api.HandleCommit(s.sessionManager, s.dbc))
	apiGroup.POST("/metrics/refresh", metrics_api.HandleRefresh(s.sessionManager, s.refresher))
	apiGroup.POST("/users", admin.HandleCreateUser(s.sessionManager, s.dbc))

	// Health check
	s.GET("/healthz", func(c echo.Context) error {
		return c.String(200, "ok")
	})
}
