// metrics-refresher is the headless batch runner for the engagement refresh,
// intended for cron. Without arguments it refreshes every active leaderboard
// entry; with -entry flags it refreshes only the named entries.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/jackc/pgx/v5/pgtype"

	"promoloft.app/studio/internal/application"
	"promoloft.app/studio/internal/config"
	"promoloft.app/studio/internal/db"
	"promoloft.app/studio/internal/metrics"
	"promoloft.app/studio/pkg/scrape"
)

type entryIDList []pgtype.UUID

func (l *entryIDList) String() string {
	parts := make([]string, len(*l))
	for i, id := range *l {
		parts[i] = id.String()
	}
	return strings.Join(parts, ",")
}

func (l *entryIDList) Set(raw string) error {
	var id pgtype.UUID
	if err := id.Scan(strings.TrimSpace(raw)); err != nil {
		return err
	}
	*l = append(*l, id)
	return nil
}

func main() {
	var entryIDs entryIDList
	flag.Var(&entryIDs, "entry", "leaderboard entry id to refresh (repeatable; default: all active)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Starting metrics refresher")

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

	scraper := scrape.NewClient(conf.ScrapeBaseURL, conf.ScrapeAPIToken)
	refresher := metrics.NewRefresher(db.New(dbc), scraper, conf.MetricsConcurrency)

	summary, err := refresher.Refresh(ctx, entryIDs)
	if err != nil {
		slog.Error("refresh failed", "error", err)
		os.Exit(1)
	}

	slog.Info("refresh complete",
		"updated", humanize.Comma(int64(summary.Updated)),
		"failed", humanize.Comma(int64(summary.Failed)))
	if summary.Failed > 0 {
		os.Exit(2)
	}
}
