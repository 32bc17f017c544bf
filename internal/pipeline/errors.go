// Package pipeline defines the error taxonomy shared by the fetch,
// clustering and orchestration layers.
package pipeline

import "errors"

var (
	// ErrRegionNotFound means the geocoder returned no city/state for the point.
	ErrRegionNotFound = errors.New("region not found for coordinates")

	// ErrRegionUnmapped means the incident provider has no id for the city.
	ErrRegionUnmapped = errors.New("region not mapped by incident provider")

	// ErrAuthenticationFailed means the provider answered but gave no token.
	ErrAuthenticationFailed = errors.New("incident provider authentication failed")

	// ErrUpstreamUnavailable covers transport errors and timeouts.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrUpstreamRejected covers non-2xx upstream responses.
	ErrUpstreamRejected = errors.New("upstream rejected request")

	// ErrCacheUnavailable means the cache store was unreachable at startup.
	ErrCacheUnavailable = errors.New("cache store unavailable")

	// ErrClusteringInput means the input rows lack the coordinate columns.
	ErrClusteringInput = errors.New("clustering input missing coordinates")

	// ErrAnalysisNotReady means the background job has not populated the
	// hotspot analysis for the requested region yet.
	ErrAnalysisNotReady = errors.New("hotspot analysis not computed yet")
)
