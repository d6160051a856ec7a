// Package main provides the nodekit CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/born-ml/nodekit/internal/config"
	"github.com/born-ml/nodekit/internal/logging"
)

var (
	// Global flags
	configPath string
	verbose    bool
	logJSON    bool
	cacheDir   string
	seed       int64
	synthetic  int

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "nodekit",
	Short: "Neural ODE toolkit for the MNIST digits",
	Long: `nodekit prepares a neural-ODE experiment on MNIST: it downloads and
verifies the dataset, previews digits and trains MLP or neural-ODE
classifiers.

Settings are read from --config (YAML), then NODEKIT_HOME and NODEKIT_SEED,
then command-line flags.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New(logging.Options{Verbose: verbose, Console: !logJSON})
		if err != nil {
			return err
		}

		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if flags.Changed("cache-dir") {
			cfg.Dataset.CacheDir = cacheDir
		}
		if flags.Changed("seed") {
			cfg.Seed = seed
		}
		if flags.Changed("synthetic") {
			cfg.Dataset.Synthetic = synthetic
		}
		applyTrainFlags(cmd)
		if err := cfg.Validate(); err != nil {
			return err
		}
		logger.Debug("configuration loaded", zap.String("path", configPath), zap.Any("config", cfg))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "YAML config file")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	flags.BoolVar(&logJSON, "log-json", false, "Log JSON instead of console text")
	flags.StringVar(&cacheDir, "cache-dir", "", "Dataset cache directory (default: $NODEKIT_HOME/datasets)")
	flags.Int64Var(&seed, "seed", 0, "PRNG seed (or set NODEKIT_SEED)")
	flags.IntVar(&synthetic, "synthetic", 0, "Use n generated examples instead of downloading MNIST")

	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
