// Package hotspot orchestrates the occurrence pipeline: region resolution,
// cache-or-fetch, clustering and cache writes.
package hotspot

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/vigiamaps/occurrence-hotspots/internal/cache/jsonstore"
	"github.com/vigiamaps/occurrence-hotspots/internal/cache/keys"
	"github.com/vigiamaps/occurrence-hotspots/internal/cluster"
	"github.com/vigiamaps/occurrence-hotspots/internal/model"
	"github.com/vigiamaps/occurrence-hotspots/internal/observability"
	"github.com/vigiamaps/occurrence-hotspots/internal/pipeline"
)

// RegionResolver maps a coordinate pair to its administrative region.
type RegionResolver interface {
	Resolve(ctx context.Context, p model.GeoPoint) (model.Region, error)
}

// TokenSource yields a bearer token valid for one pipeline run.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// IncidentFetcher retrieves the occurrence records for a region and window.
type IncidentFetcher interface {
	FetchIncidents(ctx context.Context, region model.Region, window model.DateWindow, token string) ([]model.IncidentRecord, error)
}

type Service struct {
	resolver RegionResolver
	auth     TokenSource
	fetcher  IncidentFetcher
	cache    *jsonstore.Store

	rawWindowDays int
	rawTTL        time.Duration

	logger *slog.Logger
	now    func() time.Time
}

func NewService(resolver RegionResolver, auth TokenSource, fetcher IncidentFetcher, cache *jsonstore.Store, rawWindowDays int, rawTTL time.Duration, logger *slog.Logger) *Service {
	return &Service{
		resolver:      resolver,
		auth:          auth,
		fetcher:       fetcher,
		cache:         cache,
		rawWindowDays: rawWindowDays,
		rawTTL:        rawTTL,
		logger:        logger,
		now:           time.Now,
	}
}

// RawOccurrences serves the interactive raw-incidents path. The cache key
// carries the current date and window length, so entries rotate daily; a
// read failure degrades to a miss, every other failure aborts the run and
// nothing partial is cached.
func (s *Service) RawOccurrences(ctx context.Context, p model.GeoPoint) ([]model.IncidentRecord, model.Region, error) {
	region, err := s.resolver.Resolve(ctx, p)
	if err != nil {
		return nil, model.Region{}, err
	}

	key := keys.RawOccurrences(region.City, region.State, s.now(), s.rawWindowDays)
	var cached []model.IncidentRecord
	if s.cache.GetJSON(key, &cached) {
		observability.IncCacheHit("raw")
		s.logger.Debug("raw occurrences served from cache", "region", region.String())
		return cached, region, nil
	}
	observability.IncCacheMiss("raw")

	token, err := s.auth.Token(ctx)
	if err != nil {
		return nil, region, err
	}

	window := model.WindowEndingAt(s.now(), s.rawWindowDays)
	records, err := s.fetcher.FetchIncidents(ctx, region, window, token)
	if err != nil {
		return nil, region, err
	}
	if records == nil {
		records = []model.IncidentRecord{}
	}

	s.cache.SetJSON(key, records, s.rawTTL)
	return records, region, nil
}

// Hotspots serves the precomputed analysis written by the background
// refresher. It is a pure cache read: when the refresher has never run for
// the region the caller gets ErrAnalysisNotReady, not an empty list.
func (s *Service) Hotspots(ctx context.Context, p model.GeoPoint) ([]model.IncidentRecord, model.Region, error) {
	region, err := s.resolver.Resolve(ctx, p)
	if err != nil {
		return nil, model.Region{}, err
	}

	var analysis []model.IncidentRecord
	if !s.cache.GetJSON(keys.HotspotAnalysis(region.City, region.State), &analysis) {
		observability.IncCacheMiss("analysis")
		return nil, region, pipeline.ErrAnalysisNotReady
	}
	observability.IncCacheHit("analysis")
	return analysis, region, nil
}

// ProcessAndCache is the background entry point: fetch a long lookback
// window for one city, cluster it with the strict preset and overwrite the
// analysis key in place (no TTL). Region resolution is skipped because the
// roster already names the city and state.
func (s *Service) ProcessAndCache(ctx context.Context, city, state string, daysAgo int, cacheKey string) (err error) {
	defer func() { observability.IncPipelineRun("refresh", err) }()

	region := model.Region{City: city, State: state}

	token, err := s.auth.Token(ctx)
	if err != nil {
		return err
	}

	window := model.WindowEndingAt(s.now(), daysAgo)
	records, err := s.fetcher.FetchIncidents(ctx, region, window, token)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		s.logger.Info("no occurrences in window, skipping analysis", "region", region.String())
		return nil
	}

	analyzed := cluster.Run(records, cluster.Strict)

	if cacheKey == "" {
		cacheKey = keys.HotspotAnalysis(city, state)
	}
	if !s.cache.SetJSON(cacheKey, analyzed, 0) {
		return errors.New("hotspot analysis cache write failed")
	}
	s.logger.Info("hotspot analysis refreshed",
		"region", region.String(), "records", len(records), "window_days", daysAgo)
	return nil
}
