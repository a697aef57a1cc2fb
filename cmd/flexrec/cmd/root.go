package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pavanmanishd/flexrec"
	"github.com/pavanmanishd/flexrec/internal/config"
)

// app carries what every subcommand needs once the root command has loaded
// the configuration.
type app struct {
	config    *config.Config
	logger    *zap.Logger
	allocator flexrec.Allocator
}

// newRootCmd builds the command tree. Commands are constructed per call so
// tests can run them in isolation.
func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "flexrec",
		Short: "flexrec - variable-length records in a single allocation",
		Long: `flexrec builds records made of a fixed header (a 32-bit id and a
16-bit length) followed by an inline array of fixed-size elements, laid out
like the equivalent C struct.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("log-level", "", "Override the configured log level")
	rootCmd.PersistentFlags().String("allocator", "", "Override the configured allocator (heap or mmap)")

	rootCmd.AddCommand(newDemoCmd(a), newLayoutCmd(), newServeCmd(a))
	return rootCmd
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg := config.DefaultConfig()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if name, _ := cmd.Flags().GetString("allocator"); name != "" {
		cfg.Allocator = name
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	alloc, err := cfg.NewAllocator()
	if err != nil {
		return err
	}

	a.config = cfg
	a.logger = logger
	a.allocator = alloc
	return nil
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
