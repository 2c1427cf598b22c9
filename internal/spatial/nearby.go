package spatial

import (
	"sort"

	"github.com/couchcryptid/climate-intervention-planner/internal/domain"
)

// EarthSurfaceKm2 is used for the average deployment density.
const EarthSurfaceKm2 = 510_000_000.0

// Deployment is an existing intervention at a known location.
type Deployment struct {
	ID               string     `json:"id"`
	InterventionType string     `json:"intervention_type"`
	Geo              domain.Geo `json:"location"`
}

// NearbyDeployment is a Deployment annotated with its distance from a query point.
type NearbyDeployment struct {
	Deployment
	DistanceKm float64 `json:"distance_km"`
}

// Nearby returns the deployments within radiusKm of point, nearest first.
func Nearby(point domain.Geo, deployments []Deployment, radiusKm float64) []NearbyDeployment {
	out := []NearbyDeployment{}
	for _, d := range deployments {
		if dist := HaversineKm(point, d.Geo); dist <= radiusKm {
			out = append(out, NearbyDeployment{Deployment: d, DistanceKm: dist})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	return out
}

// Statistics summarizes a set of deployments.
type Statistics struct {
	TotalDeployments     int            `json:"total_interventions"`
	CoverageKm2          float64        `json:"spatial_coverage_km2"`
	Distribution         map[string]int `json:"geographic_distribution"`
	AverageDensityPerKm2 float64        `json:"average_intervention_density"`
}

// Summarize counts deployments per geographic region and credits each with
// SiteCoverageKm2 of coverage.
func Summarize(deployments []Deployment) Statistics {
	s := Statistics{
		TotalDeployments: len(deployments),
		Distribution:     map[string]int{},
	}
	for _, d := range deployments {
		s.Distribution[GeographicRegion(d.Geo.Lat, d.Geo.Lon)]++
	}
	s.CoverageKm2 = SiteCoverageKm2 * float64(len(deployments))
	s.AverageDensityPerKm2 = float64(len(deployments)) / EarthSurfaceKm2
	return s
}
