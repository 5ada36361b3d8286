package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"promoloft.app/studio/cmd/web/auth"
	"promoloft.app/studio/cmd/web/internal/web"
	"promoloft.app/studio/internal/application"
	"promoloft.app/studio/internal/config"
	"promoloft.app/studio/internal/db"
	"promoloft.app/studio/internal/extract"
	"promoloft.app/studio/internal/metrics"
	"promoloft.app/studio/pkg/objstore"
	"promoloft.app/studio/pkg/scrape"
	"promoloft.app/studio/pkg/transcribe"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Starting web service")

	conf, err := config.LoadConfig(ctx)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if conf.DatabaseRetries <= 0 {
		conf.DatabaseRetries = 10
	}

	pool, err := application.OpenDBPoolWithRetry(ctx, *conf)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	dbc, err := db.NewDatabaseConnection(ctx, pool)
	if err != nil {
		slog.Error("failed to create database connection", "error", err)
		os.Exit(1)
	}
	defer dbc.Close()

	assets, err := objstore.New(ctx, objstore.Options{
		Endpoint:      conf.StorageEndpoint,
		AccessKey:     conf.StorageAccessKey,
		SecretKey:     conf.StorageSecretKey,
		UseSSL:        conf.StorageUseSSL,
		Bucket:        conf.StorageBucket,
		PublicBaseURL: conf.StoragePublicBaseURL,
	})
	if err != nil {
		slog.Error("failed to connect to object storage", "error", err)
		os.Exit(1)
	}

	scraper := scrape.NewClient(conf.ScrapeBaseURL, conf.ScrapeAPIToken)

	transcriber := transcribe.New()
	transcriber.Cmd = conf.WhisperCmd
	transcriber.Model = conf.WhisperModel
	transcriber.Device = conf.WhisperDevice
	transcriber.Language = conf.WhisperLanguage
	transcriber.ScratchDir = conf.WhisperScratchDir

	queries := db.New(dbc)
	extractor := extract.NewService(scraper, assets, transcriber, queries, conf.TranscribeRatePerMinute)
	refresher := metrics.NewRefresher(queries, scraper, conf.MetricsConcurrency)

	sessionMgr := auth.NewSessionManager(conf.SessionSecret)

	e, err := web.NewWebserver(dbc, sessionMgr, extractor, refresher)
	if err != nil {
		slog.Error("failed to create webserver", "error", err)
		os.Exit(1)
	}

	addr := ":" + strconv.Itoa(conf.WebServerPort)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = e.Shutdown(shutdownCtx)
	}()

	slog.Info("Listening", "addr", addr)
	if err := e.Start(addr); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		// Echo returns an error on Shutdown; treat it as normal if context is done.
		if ctx.Err() != nil {
			return
		}
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
