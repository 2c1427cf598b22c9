package main

import (
	"github.com/spf13/cobra"

	"github.com/couchcryptid/climate-intervention-planner/internal/domain"
	"github.com/couchcryptid/climate-intervention-planner/internal/spatial"
)

var optimizeFlags struct {
	latMin, latMax   float64
	lonMin, lonMax   float64
	interventionType string
	budget           float64
	spacing          float64
	minDistanceKm    float64
	maxElevation     float64
	landCovers       []string
	existing         []string
	forecastMonths   int
	siteScale        float64
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Select deployment sites within a region and budget",
	Long: "Generate a candidate grid over the region, apply constraints and pick the\n" +
		"most efficient sites whose total cost fits the budget. With --forecast-months\n" +
		"each selected site is also simulated.",
	RunE: runOptimize,
}

func init() {
	f := optimizeCmd.Flags()
	f.Float64Var(&optimizeFlags.latMin, "lat-min", 0, "southern bound")
	f.Float64Var(&optimizeFlags.latMax, "lat-max", 0, "northern bound")
	f.Float64Var(&optimizeFlags.lonMin, "lon-min", 0, "western bound")
	f.Float64Var(&optimizeFlags.lonMax, "lon-max", 0, "eastern bound")
	f.StringVarP(&optimizeFlags.interventionType, "type", "t", "", "intervention type")
	f.Float64Var(&optimizeFlags.budget, "budget", 0, "total budget")
	f.Float64Var(&optimizeFlags.spacing, "spacing", 0, "grid spacing in degrees (default $GRID_SPACING_DEG)")
	f.Float64Var(&optimizeFlags.minDistanceKm, "min-distance-km", 0, "minimum distance from existing deployments")
	f.Float64Var(&optimizeFlags.maxElevation, "max-elevation", 0, "maximum site elevation in metres")
	f.StringSliceVar(&optimizeFlags.landCovers, "land-cover", nil, "allowed land covers")
	f.StringSliceVar(&optimizeFlags.existing, "existing", nil, "existing deployments as lat,lon")
	f.IntVar(&optimizeFlags.forecastMonths, "forecast-months", 0, "simulate each selected site for this many months")
	f.Float64Var(&optimizeFlags.siteScale, "site-scale", 100, "per-site scale used with --forecast-months")

	for _, name := range []string{"lat-min", "lat-max", "lon-min", "lon-max", "type", "budget"} {
		_ = optimizeCmd.MarkFlagRequired(name)
	}
}

type optimizeResult struct {
	Plan      domain.DeploymentPlan     `json:"plan"`
	Forecasts []domain.ImpactTimeSeries `json:"forecasts,omitempty"`
}

func runOptimize(cmd *cobra.Command, _ []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}

	req := spatial.Request{
		Region: domain.Region{
			LatMin: optimizeFlags.latMin,
			LatMax: optimizeFlags.latMax,
			LonMin: optimizeFlags.lonMin,
			LonMax: optimizeFlags.lonMax,
		},
		InterventionType: optimizeFlags.interventionType,
		Budget:           optimizeFlags.budget,
		GridSpacing:      optimizeFlags.spacing,
	}
	flags := cmd.Flags()
	if flags.Changed("min-distance-km") {
		d := optimizeFlags.minDistanceKm
		req.Constraints.MinDistanceKm = &d
	}
	if flags.Changed("max-elevation") {
		e := optimizeFlags.maxElevation
		req.Constraints.MaxElevation = &e
	}
	req.Constraints.AllowedLandCovers = optimizeFlags.landCovers
	for _, s := range optimizeFlags.existing {
		g, err := parsePoint(s)
		if err != nil {
			return err
		}
		req.Constraints.ExistingDeployments = append(req.Constraints.ExistingDeployments, g)
	}

	plan, err := svc.OptimizeDeployment(cmd.Context(), req)
	if err != nil {
		return err
	}
	out := optimizeResult{Plan: plan}
	if optimizeFlags.forecastMonths > 0 {
		out.Forecasts, err = svc.ForecastPlan(plan, optimizeFlags.siteScale, optimizeFlags.forecastMonths)
		if err != nil {
			return err
		}
	}
	return writeJSON(cmd, "", out)
}
