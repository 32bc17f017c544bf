// Package model holds the shared domain types of the occurrence pipeline.
package model

import (
	"fmt"
	"time"
)

// GeoPoint is a WGS84 coordinate pair.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks the coordinate ranges.
func (p GeoPoint) Validate() error {
	if p.Latitude < -90 || p.Latitude > 90 {
		return fmt.Errorf("latitude %v out of range [-90,90]", p.Latitude)
	}
	if p.Longitude < -180 || p.Longitude > 180 {
		return fmt.Errorf("longitude %v out of range [-180,180]", p.Longitude)
	}
	return nil
}

// Region is the administrative area an occurrence point resolves to.
type Region struct {
	City  string `json:"city"`
	State string `json:"state"`
}

func (r Region) String() string {
	return fmt.Sprintf("%s, %s", r.City, r.State)
}

// DateWindow is an inclusive [Start,End] date range, End >= Start.
type DateWindow struct {
	Start time.Time
	End   time.Time
}

// WindowEndingAt returns the window covering the last days days, ending at
// the date of now.
func WindowEndingAt(now time.Time, days int) DateWindow {
	end := now.UTC().Truncate(24 * time.Hour)
	return DateWindow{Start: end.AddDate(0, 0, -days), End: end}
}

// Days returns the window length in whole days.
func (w DateWindow) Days() int {
	return int(w.End.Sub(w.Start).Hours() / 24)
}

// IncidentRecord is one occurrence as reported by the incident provider.
// The provider payload is schemaless beyond id and coordinates, so the
// fields ride along untyped and are never interpreted here except for the
// coordinate columns consumed by the clustering engine.
type IncidentRecord map[string]any

// Noise is the cluster label for points outside every dense region.
// Non-negative labels identify hotspot groups; they are opaque per-run
// identifiers and must never be compared across runs.
const Noise = -1
