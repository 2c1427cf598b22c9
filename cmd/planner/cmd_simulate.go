package main

import (
	"github.com/spf13/cobra"

	"github.com/couchcryptid/climate-intervention-planner/internal/domain"
	"github.com/couchcryptid/climate-intervention-planner/internal/impact"
	"github.com/couchcryptid/climate-intervention-planner/internal/simulation"
)

var simulateFlags struct {
	lat, lon         float64
	interventionType string
	scale            float64
	months           int
	types            []string
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Simulate the monthly impact of one intervention at a site",
	RunE:  runSimulate,
}

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Forecast baseline temperature and CO2 at a site",
	RunE:  runForecast,
}

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Simulate several interventions at a site and order them by effectiveness",
	RunE:  runCompare,
}

func init() {
	for _, c := range []*cobra.Command{simulateCmd, forecastCmd, compareCmd} {
		c.Flags().Float64Var(&simulateFlags.lat, "lat", 0, "site latitude")
		c.Flags().Float64Var(&simulateFlags.lon, "lon", 0, "site longitude")
		_ = c.MarkFlagRequired("lat")
		_ = c.MarkFlagRequired("lon")
	}

	simulateCmd.Flags().StringVarP(&simulateFlags.interventionType, "type", "t", "", "intervention type")
	_ = simulateCmd.MarkFlagRequired("type")
	simulateCmd.Flags().Float64Var(&simulateFlags.scale, "scale", simulation.DefaultCompareScale, "deployment scale")
	simulateCmd.Flags().IntVar(&simulateFlags.months, "months", simulation.DefaultCompareDuration, "duration in months")

	forecastCmd.Flags().IntVar(&simulateFlags.months, "months", simulation.DefaultCompareDuration, "forecast horizon in months")

	compareCmd.Flags().StringSliceVar(&simulateFlags.types, "types", impact.DefaultTypes, "intervention types to compare")
	compareCmd.Flags().Float64Var(&simulateFlags.scale, "scale", simulation.DefaultCompareScale, "deployment scale")
	compareCmd.Flags().IntVar(&simulateFlags.months, "months", simulation.DefaultCompareDuration, "duration in months")
}

func site() domain.Geo {
	return domain.Geo{Lat: simulateFlags.lat, Lon: simulateFlags.lon}
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	ts, err := svc.SimulateImpact(simulation.Request{
		Site:             site(),
		InterventionType: simulateFlags.interventionType,
		ScaleAmount:      simulateFlags.scale,
		DurationMonths:   simulateFlags.months,
	})
	if err != nil {
		return err
	}
	return writeJSON(cmd, "", ts)
}

func runForecast(cmd *cobra.Command, _ []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	f, err := svc.RegionalForecast(site(), simulateFlags.months)
	if err != nil {
		return err
	}
	return writeJSON(cmd, "", f)
}

func runCompare(cmd *cobra.Command, _ []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	options := make([]simulation.Option, 0, len(simulateFlags.types))
	for _, t := range simulateFlags.types {
		options = append(options, simulation.Option{
			InterventionType: t,
			ScaleAmount:      simulateFlags.scale,
			DurationMonths:   simulateFlags.months,
		})
	}
	entries, err := svc.CompareInterventions(site(), options)
	if err != nil {
		return err
	}
	return writeJSON(cmd, "", entries)
}
