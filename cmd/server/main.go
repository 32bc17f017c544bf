package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/vigiamaps/occurrence-hotspots/internal/cache/jsonstore"
	"github.com/vigiamaps/occurrence-hotspots/internal/cache/redisstore"
	"github.com/vigiamaps/occurrence-hotspots/internal/config"
	"github.com/vigiamaps/occurrence-hotspots/internal/crossfire"
	"github.com/vigiamaps/occurrence-hotspots/internal/geocode"
	"github.com/vigiamaps/occurrence-hotspots/internal/hotspot"
	"github.com/vigiamaps/occurrence-hotspots/internal/httpclient"
	"github.com/vigiamaps/occurrence-hotspots/internal/logger"
	"github.com/vigiamaps/occurrence-hotspots/internal/observability"
	"github.com/vigiamaps/occurrence-hotspots/internal/server"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()

	cfg := config.FromEnv()

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   strings.ToLower(os.Getenv("LOG_CONSOLE")) == "true",
		Component: "server",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	observability.ExposeBuildInfo(Version)
	appLog.Info("starting occurrence API",
		"addr", cfg.Addr, "version", Version, "redis", cfg.RedisAddr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rc, err := redisstore.New(ctx, cfg.RedisAddr)
	if err != nil {
		appLog.Error("cache store unavailable", "err", err)
		return 1
	}
	defer func() { _ = rc.Close() }()
	store := jsonstore.New(redisstore.NewAdapter(rc, cfg.CacheOpTimeout), appLog)

	resolver, err := geocode.New(cfg.GoogleMapsAPIKey, httpclient.NewOutbound(cfg.UpstreamTimeout))
	if err != nil {
		appLog.Error("geocoder setup failed", "err", err)
		return 1
	}

	feed := crossfire.NewHTTP(cfg.CrossfireBaseURL, cfg.UpstreamTimeout)
	auth := crossfire.NewAuthenticator(feed, cfg.CrossfireEmail, cfg.CrossfirePassword, store, cfg.AuthTTL, appLog)
	fetcher := crossfire.NewClient(feed, appLog)

	svc := hotspot.NewService(resolver, auth, fetcher, store, cfg.RawWindowDays, cfg.RawTTL, appLog)

	if err := server.Run(ctx, cfg.Addr, server.NewHandler(svc, appLog), appLog); err != nil {
		appLog.Error("server error", "err", err)
		return 1
	}
	appLog.Info("shutdown complete")
	return 0
}
