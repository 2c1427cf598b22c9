package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/climate-intervention-planner/internal/config"
	"github.com/couchcryptid/climate-intervention-planner/internal/observability"
	"github.com/couchcryptid/climate-intervention-planner/internal/planner"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	model    string
	catalog  string
	encoding string
	seed     uint64
	logLevel string
}

var rootCmd = &cobra.Command{
	Use:   "planner",
	Short: "Climate intervention decision support",
	Long: "planner assesses site suitability, ranks intervention types, optimizes\n" +
		"budget-constrained deployments and simulates their monthly impact.",
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRunE: func(*cobra.Command, []string) error {
		// A missing .env is fine; the environment may already be set.
		_ = godotenv.Load()
		return nil
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&rootFlags.model, "model", "", "trained model bundle (default $MODEL_PATH; rule-based when unset)")
	f.StringVar(&rootFlags.catalog, "catalog", "", "intervention catalog YAML (default $CATALOG_PATH or embedded)")
	f.StringVar(&rootFlags.encoding, "encoding", "", "categorical encoding table YAML (default $ENCODING_TABLE_PATH or embedded)")
	f.Uint64Var(&rootFlags.seed, "seed", 0, "simulation noise seed (0 = random)")
	f.StringVar(&rootFlags.logLevel, "log-level", "", "log level (default $LOG_LEVEL)")

	rootCmd.AddCommand(assessCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(rankCmd)
	rootCmd.AddCommand(recommendCmd)
	rootCmd.AddCommand(optimizeCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(forecastCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(genTrainingCmd)
	rootCmd.Version = version
}

// newService builds a planner from the environment, overridden by root flags.
func newService() (*planner.Service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if rootFlags.model != "" {
		cfg.ModelPath = rootFlags.model
	}
	if rootFlags.catalog != "" {
		cfg.CatalogPath = rootFlags.catalog
	}
	if rootFlags.encoding != "" {
		cfg.EncodingTablePath = rootFlags.encoding
	}
	if rootFlags.seed != 0 {
		cfg.SimulationSeed = rootFlags.seed
	}
	if rootFlags.logLevel != "" {
		cfg.LogLevel = rootFlags.logLevel
	}
	cfg.LogFormat = "text"

	return planner.NewFromConfig(cfg, observability.NewLogger(cfg), observability.NewUnregisteredMetrics())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
