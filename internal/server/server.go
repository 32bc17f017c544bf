// Package server exposes the interactive occurrence API over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vigiamaps/occurrence-hotspots/internal/health"
	imw "github.com/vigiamaps/occurrence-hotspots/internal/middleware"
)

func Run(ctx context.Context, addr string, h *Handler, logger *slog.Logger) error {
	r := chi.NewRouter()
	r.Use(imw.Recover())
	r.Use(imw.Logging(logger))
	r.Use(imw.CORS())

	r.Get("/healthz", health.Liveness())
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Get("/occurrences", h.RawOccurrences)
	r.Get("/occurrences/hotspots", h.Hotspots)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
