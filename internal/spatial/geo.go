// Package spatial selects deployment sites for an intervention across a
// region under a hard budget.
package spatial

import (
	"fmt"
	"hash/fnv"
	"math"

	"github.com/couchcryptid/climate-intervention-planner/internal/domain"
)

// EarthRadiusKm is the mean Earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0

// Climate zones assigned to grid points by latitude band.
const (
	ZoneTropical    = "tropical"
	ZoneSubtropical = "subtropical"
	ZoneTemperate   = "temperate"
	ZonePolar       = "polar"
)

// RegionOther is reported for points outside every named geographic region.
const RegionOther = "other"

// HaversineKm returns the great-circle distance between two points.
func HaversineKm(a, b domain.Geo) float64 {
	lat1, lat2 := radians(a.Lat), radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// ClimateZone classifies a latitude into a coarse climate band.
func ClimateZone(lat float64) string {
	switch abs := math.Abs(lat); {
	case abs < 10:
		return ZoneTropical
	case abs < 30:
		return ZoneSubtropical
	case abs < 60:
		return ZoneTemperate
	default:
		return ZonePolar
	}
}

// LandCover returns the dominant land cover for a latitude band.
func LandCover(lat float64) string {
	switch abs := math.Abs(lat); {
	case abs < 10:
		return "tropical_forest"
	case abs < 30:
		return "temperate_forest"
	case abs < 60:
		return "mixed_forest"
	default:
		return "tundra"
	}
}

type box struct {
	latMin, latMax, lonMin, lonMax float64
}

func (b box) contains(lat, lon float64) bool {
	return lat >= b.latMin && lat <= b.latMax && lon >= b.lonMin && lon <= b.lonMax
}

var ranges = []struct {
	box
	uplift float64
}{
	{box{30, 50, -120, -70}, 2000},  // Rockies
	{box{35, 45, 70, 90}, 4000},     // Himalaya
	{box{-40, -20, -80, -50}, 3000}, // Andes
}

// Elevation estimates terrain height in metres: a mountain-range uplift plus a
// ±500 m jitter derived from the coordinates, floored at sea level. The same
// point always yields the same elevation.
func Elevation(lat, lon float64) float64 {
	base := 0.0
	for _, r := range ranges {
		if r.contains(lat, lon) {
			base = r.uplift
			break
		}
	}
	return math.Max(0, base+jitter(lat, lon))
}

func jitter(lat, lon float64) float64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%.4f,%.4f", lat, lon)
	u := float64(h.Sum64()>>11) / (1 << 53)
	return -500 + 1000*u
}

// elevationFactor discounts high terrain.
func elevationFactor(elevation float64) float64 {
	switch {
	case elevation < 1000:
		return 1.0
	case elevation < 2000:
		return 0.8
	default:
		return 0.5
	}
}

var geographicRegions = []struct {
	name string
	box
}{
	{"north_america", box{25, 50, -125, -65}},
	{"europe", box{35, 70, -10, 40}},
	{"asia", box{10, 55, 60, 150}},
	{"africa", box{-35, 35, -20, 50}},
	{"south_america", box{-55, 15, -80, -35}},
	{"oceania", box{-45, -10, 110, 180}},
}

// GeographicRegion names the continent-scale region containing a point. Regions
// are checked in a fixed order, so overlaps resolve to the first match.
func GeographicRegion(lat, lon float64) string {
	for _, r := range geographicRegions {
		if r.contains(lat, lon) {
			return r.name
		}
	}
	return RegionOther
}

// costMultiplier adjusts site cost for remoteness and logistics.
func costMultiplier(lat float64) float64 {
	switch abs := math.Abs(lat); {
	case abs < 30:
		return 0.8
	case abs > 60:
		return 1.5
	default:
		return 1.0
	}
}
