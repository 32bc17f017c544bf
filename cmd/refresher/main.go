// The refresher worker precomputes hotspot analyses for a fixed city
// roster, decoupled from the request-serving process. It shares nothing
// with the API server except the cache store.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/vigiamaps/occurrence-hotspots/internal/cache/jsonstore"
	"github.com/vigiamaps/occurrence-hotspots/internal/cache/redisstore"
	"github.com/vigiamaps/occurrence-hotspots/internal/config"
	"github.com/vigiamaps/occurrence-hotspots/internal/crossfire"
	"github.com/vigiamaps/occurrence-hotspots/internal/hotspot"
	"github.com/vigiamaps/occurrence-hotspots/internal/logger"
	"github.com/vigiamaps/occurrence-hotspots/internal/observability"
	"github.com/vigiamaps/occurrence-hotspots/internal/refresh"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	runNow := flag.Bool("run-now", false, "run every roster job once at startup")
	flag.Parse()

	_ = godotenv.Load()

	cfg := config.FromEnv()

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   strings.ToLower(os.Getenv("LOG_CONSOLE")) == "true",
		Component: "refresher",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	observability.ExposeBuildInfo(Version)
	appLog.Info("starting hotspot refresher",
		"version", Version, "cities", len(cfg.Roster), "schedule", cfg.RefreshSchedule)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rc, err := redisstore.New(ctx, cfg.RedisAddr)
	if err != nil {
		appLog.Error("cache store unavailable", "err", err)
		return 1
	}
	defer func() { _ = rc.Close() }()
	store := jsonstore.New(redisstore.NewAdapter(rc, cfg.CacheOpTimeout), appLog)

	feed := crossfire.NewHTTP(cfg.CrossfireBaseURL, cfg.UpstreamTimeout)
	auth := crossfire.NewAuthenticator(feed, cfg.CrossfireEmail, cfg.CrossfirePassword, store, cfg.AuthTTL, appLog)
	fetcher := crossfire.NewClient(feed, appLog)

	// the refresher never reads the interactive cache, so the service is
	// wired without a region resolver
	svc := hotspot.NewService(nil, auth, fetcher, store, cfg.RawWindowDays, cfg.RawTTL, appLog)

	ref := refresh.New(svc, cfg.Roster, cfg.RefreshSchedule, 15*time.Minute, appLog)
	if err := ref.Start(); err != nil {
		appLog.Error("invalid refresh schedule", "schedule", cfg.RefreshSchedule, "err", err)
		return 1
	}

	if *runNow {
		ref.RunAll(ctx)
	}

	<-ctx.Done()
	ref.Stop()
	appLog.Info("shutdown complete")
	return 0
}
