// Package geocode resolves a coordinate pair to its administrative region.
package geocode

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"time"

	"googlemaps.github.io/maps"

	"github.com/vigiamaps/occurrence-hotspots/internal/model"
	"github.com/vigiamaps/occurrence-hotspots/internal/observability"
	"github.com/vigiamaps/occurrence-hotspots/internal/pipeline"
)

// Google component types carrying city and state granularity.
const (
	cityComponent  = "administrative_area_level_2"
	stateComponent = "administrative_area_level_1"
)

type Resolver struct {
	client *maps.Client
}

type Option = maps.ClientOption

// New builds a resolver over the Google geocoding API. Extra options are
// passed through to the maps client (tests override the base URL).
func New(apiKey string, httpClient *http.Client, extra ...Option) (*Resolver, error) {
	opts := append([]maps.ClientOption{
		maps.WithAPIKey(apiKey),
		maps.WithHTTPClient(httpClient),
	}, extra...)
	c, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("maps client: %w", err)
	}
	return &Resolver{client: c}, nil
}

// Resolve maps a point to its city and state. No retries: a transport or
// non-2xx failure from the geocoder propagates as upstream unavailability.
func (r *Resolver) Resolve(ctx context.Context, p model.GeoPoint) (model.Region, error) {
	if err := p.Validate(); err != nil {
		return model.Region{}, err
	}

	start := time.Now()
	results, err := r.client.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng: &maps.LatLng{Lat: p.Latitude, Lng: p.Longitude},
	})
	observability.ObserveUpstreamLatency("geocode", time.Since(start).Seconds())
	if err != nil {
		return model.Region{}, fmt.Errorf("%w: reverse geocode: %v", pipeline.ErrUpstreamUnavailable, err)
	}

	for _, res := range results {
		var region model.Region
		for _, comp := range res.AddressComponents {
			if slices.Contains(comp.Types, cityComponent) {
				region.City = comp.LongName
			}
			if slices.Contains(comp.Types, stateComponent) {
				region.State = comp.LongName
			}
		}
		if region.City != "" && region.State != "" {
			return region, nil
		}
	}
	return model.Region{}, fmt.Errorf("%w: (%.5f, %.5f)",
		pipeline.ErrRegionNotFound, p.Latitude, p.Longitude)
}
