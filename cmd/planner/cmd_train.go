package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/climate-intervention-planner/internal/domain"
	"github.com/couchcryptid/climate-intervention-planner/internal/ml"
)

var trainFlags struct {
	input     string
	synthetic int
	count     int
	dataSeed  uint64
	output    string
	trees     int
}

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Fit every model and write a bundle",
	Long: "Fit the CO2 regressors, the suitability forest and the ranking ensemble on\n" +
		"labelled samples and write the resulting bundle. Samples come from --input\n" +
		"(a JSON array) or, with --synthetic N, from the built-in generator.",
	RunE: runTrain,
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score the loaded bundle against labelled samples",
	RunE:  runEvaluate,
}

var genTrainingCmd = &cobra.Command{
	Use:   "gen-training",
	Short: "Write synthetic labelled samples as JSON",
	RunE:  runGenTraining,
}

func init() {
	for _, c := range []*cobra.Command{trainCmd, evaluateCmd} {
		c.Flags().StringVarP(&trainFlags.input, "input", "i", "", "samples JSON file (default stdin)")
		c.Flags().IntVar(&trainFlags.synthetic, "synthetic", 0, "generate this many synthetic samples instead of reading --input")
		c.Flags().Uint64Var(&trainFlags.dataSeed, "data-seed", 42, "seed for --synthetic")
	}
	trainCmd.Flags().StringVarP(&trainFlags.output, "output", "o", "", "bundle output path")
	trainCmd.Flags().IntVar(&trainFlags.trees, "trees", 0, "forest size (default 100)")
	_ = trainCmd.MarkFlagRequired("output")

	genTrainingCmd.Flags().IntVarP(&trainFlags.count, "count", "n", 1000, "number of samples")
	genTrainingCmd.Flags().Uint64Var(&trainFlags.dataSeed, "data-seed", 42, "generator seed")
	genTrainingCmd.Flags().StringVarP(&trainFlags.output, "output", "o", "", "output path (default stdout)")
}

func loadSamples(cmd *cobra.Command) ([]ml.Sample, error) {
	if trainFlags.synthetic > 0 {
		return ml.SyntheticSamples(trainFlags.dataSeed, trainFlags.synthetic), nil
	}
	return readSamples(cmd, trainFlags.input)
}

func runTrain(cmd *cobra.Command, _ []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	samples, err := loadSamples(cmd)
	if err != nil {
		return err
	}

	opts := ml.DefaultTrainOptions()
	if trainFlags.trees > 0 {
		opts.Trees = trainFlags.trees
	}
	cmd.PrintErrf("training on %d samples with %d trees\n", len(samples), opts.Trees)

	bundle, err := ml.Train(cmd.Context(), svc.Codec(), samples, opts)
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}
	if err := bundle.SaveFile(trainFlags.output); err != nil {
		return err
	}
	return writeJSON(cmd, "", bundle.Report)
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	bundle := svc.Bundle()
	if bundle == nil {
		return fmt.Errorf("evaluate: %w: pass --model or set MODEL_PATH", domain.ErrModelUnavailable)
	}
	samples, err := loadSamples(cmd)
	if err != nil {
		return err
	}
	report, err := ml.Evaluate(bundle, svc.Codec(), samples)
	if err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	return writeJSON(cmd, "", report)
}

func runGenTraining(cmd *cobra.Command, _ []string) error {
	return writeJSON(cmd, trainFlags.output, ml.SyntheticSamples(trainFlags.dataSeed, trainFlags.count))
}
