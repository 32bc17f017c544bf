// Package cluster labels occurrence point clouds with DBSCAN hotspots.
package cluster

import (
	"math"
	"strconv"

	"github.com/vigiamaps/occurrence-hotspots/internal/model"
)

const earthRadiusKm = 6371.0

// Params tunes the density clustering.
type Params struct {
	// EpsilonKm is the neighborhood radius in kilometers.
	EpsilonKm float64
	// MinSamples is the neighbor count (self included) that makes a point a
	// core point. Points with fewer neighbors inside EpsilonKm end up as
	// noise unless a core point reaches them.
	MinSamples int
}

// Broad flags loose concentrations, Strict only dense ones.
var (
	Broad  = Params{EpsilonKm: 1.5, MinSamples: 3}
	Strict = Params{EpsilonKm: 0.7, MinSamples: 8}
)

type point struct {
	lat, lon float64 // radians
	row      int     // index into the input slice
}

// Run applies DBSCAN over great-circle distance and returns the input
// records with a "cluster" attribute added (-1 for noise). Records without
// parseable numeric coordinates are dropped; an empty input, or one with no
// usable coordinates, yields an empty output. Cluster membership is
// deterministic for a fixed input order, but label numbering is arbitrary
// and must not be compared across runs.
func Run(records []model.IncidentRecord, p Params) []model.IncidentRecord {
	pts := make([]point, 0, len(records))
	for i, rec := range records {
		lat, okLat := coord(rec, "latitude")
		lon, okLon := coord(rec, "longitude")
		if !okLat || !okLon {
			continue
		}
		pts = append(pts, point{
			lat: lat * math.Pi / 180,
			lon: lon * math.Pi / 180,
			row: i,
		})
	}
	if len(pts) == 0 {
		return []model.IncidentRecord{}
	}

	labels := dbscan(pts, p.EpsilonKm/earthRadiusKm, p.MinSamples)

	out := make([]model.IncidentRecord, len(pts))
	for i, pt := range pts {
		rec := make(model.IncidentRecord, len(records[pt.row])+1)
		for k, v := range records[pt.row] {
			rec[k] = v
		}
		rec["cluster"] = labels[i]
		out[i] = rec
	}
	return out
}

const (
	unvisited = -2
	noise     = model.Noise
)

// dbscan runs the classic flat DBSCAN with a brute-force neighbor search.
// eps is in radians of great-circle arc.
func dbscan(pts []point, eps float64, minSamples int) []int {
	labels := make([]int, len(pts))
	for i := range labels {
		labels[i] = unvisited
	}

	next := 0
	for i := range pts {
		if labels[i] != unvisited {
			continue
		}
		neighbors := regionQuery(pts, i, eps)
		if len(neighbors) < minSamples {
			labels[i] = noise
			continue
		}

		id := next
		next++
		labels[i] = id

		// expand: the seed set grows as new core points join the cluster
		for q := 0; q < len(neighbors); q++ {
			j := neighbors[q]
			if labels[j] == noise {
				labels[j] = id // border point reached from a core point
			}
			if labels[j] != unvisited {
				continue
			}
			labels[j] = id
			jn := regionQuery(pts, j, eps)
			if len(jn) >= minSamples {
				neighbors = append(neighbors, jn...)
			}
		}
	}
	return labels
}

func regionQuery(pts []point, i int, eps float64) []int {
	var out []int
	for j := range pts {
		if haversine(pts[i], pts[j]) <= eps {
			out = append(out, j)
		}
	}
	return out
}

// haversine returns the central angle between two points, in radians.
func haversine(a, b point) float64 {
	sinLat := math.Sin((b.lat - a.lat) / 2)
	sinLon := math.Sin((b.lon - a.lon) / 2)
	h := sinLat*sinLat + math.Cos(a.lat)*math.Cos(b.lat)*sinLon*sinLon
	return 2 * math.Asin(math.Min(1, math.Sqrt(h)))
}

// coord coerces a record attribute to a float. The provider is loose with
// types: coordinates arrive as numbers or numeric strings.
func coord(rec model.IncidentRecord, key string) (float64, bool) {
	v, ok := rec[key]
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
