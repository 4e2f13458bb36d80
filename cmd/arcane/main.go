package main

import (
	"fmt"
	"os"

	"github.com/danielpatrickdp/arcane-dynamics/go-solver/internal/config"
	"github.com/danielpatrickdp/arcane-dynamics/go-solver/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	cfgPath string
	verbose bool

	// Set in PersistentPreRunE
	cfg    config.Config
	logger *zap.Logger
)

// #region root
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "arcane",
		Short: "Projectile kinematics solver",
		Long: `arcane deduces the unknown quantities of a 2D projectile launch
(gravity, initial and final height, initial and final speed, horizontal
distance, launch angle, time of flight) from whichever of them are known.

Angles are given and reported in degrees.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if verbose {
				c.Log.Level = "debug"
			}
			l, err := logging.NewLogger(c.Log.Level, c.Log.JSON)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			cfg, logger = c, l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newSolveCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newReplayCmd())
	root.AddCommand(newInspectCmd())
	root.AddCommand(newExportCmd())
	return root
}

// #endregion root

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
