package main

import (
	"github.com/spf13/cobra"
)

var observationFlags struct {
	input string
	types []string
}

var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Classify a site's suitability tier",
	Long:  "Read one observation as JSON (from --input or stdin) and print its suitability assessment.",
	RunE:  runAssess,
}

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Estimate CO2 reduction and temperature change for an observation",
	RunE:  runPredict,
}

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank intervention types for a site",
	RunE:  runRank,
}

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Assess, predict and rank in one pass",
	RunE:  runRecommend,
}

func init() {
	for _, c := range []*cobra.Command{assessCmd, predictCmd, rankCmd, recommendCmd} {
		c.Flags().StringVarP(&observationFlags.input, "input", "i", "", "observation JSON file (default stdin)")
	}
	rankCmd.Flags().StringSliceVar(&observationFlags.types, "types", nil, "intervention types to rank (default all)")
}

func runAssess(cmd *cobra.Command, _ []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	obs, err := readObservation(cmd, observationFlags.input)
	if err != nil {
		return err
	}
	a, err := svc.AssessSuitability(obs)
	if err != nil {
		return err
	}
	return writeJSON(cmd, "", a)
}

func runPredict(cmd *cobra.Command, _ []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	obs, err := readObservation(cmd, observationFlags.input)
	if err != nil {
		return err
	}
	p, err := svc.PredictImpact(obs)
	if err != nil {
		return err
	}
	return writeJSON(cmd, "", p)
}

func runRank(cmd *cobra.Command, _ []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	obs, err := readObservation(cmd, observationFlags.input)
	if err != nil {
		return err
	}
	r, err := svc.RankInterventions(obs, observationFlags.types)
	if err != nil {
		return err
	}
	return writeJSON(cmd, "", r)
}

func runRecommend(cmd *cobra.Command, _ []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	obs, err := readObservation(cmd, observationFlags.input)
	if err != nil {
		return err
	}
	rec, err := svc.Recommend(obs)
	if err != nil {
		return err
	}
	return writeJSON(cmd, "", rec)
}
