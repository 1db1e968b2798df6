// Package commands implements the stratctl CLI commands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/optstrat/infra/pkg/config"
	"github.com/optstrat/infra/pkg/engine"
)

var (
	// Global flags
	environment string
	overlayPath string
	verbose     bool
	jsonOutput  bool

	// Version information
	buildVersion string
	buildCommit  string
	buildDate    string
)

// Execute runs the root command with the given context and version info.
func Execute(ctx context.Context, version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	rootCmd := newRootCommand()
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stratctl",
		Short: "Environment synthesis for the options strategy platform",
		Long: `stratctl resolves environment configuration presets, validates them
against platform guardrails, and synthesizes the modular infrastructure
stack (networking, security, identity, configuration, monitoring) for
the options strategy platform in ap-south-1.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", buildVersion, buildCommit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				log.Logger = log.Logger.Level(zerolog.DebugLevel)
			}
		},
	}

	cmd.PersistentFlags().StringVarP(&environment, "environment", "e", "",
		"target environment (dev, staging, prod); defaults to $STRAT_ENVIRONMENT, then dev")
	cmd.PersistentFlags().StringVar(&overlayPath, "overlay", "",
		"path to a CUE overlay file applied on top of the environment preset")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output results as JSON")

	cmd.AddCommand(
		newSynthCommand(),
		newValidateCommand(),
		newConfigCommand(),
		newEnvironmentsCommand(),
		newGraphCommand(),
		newHistoryCommand(),
	)

	return cmd
}

// resolveConfig resolves the target environment preset and applies the
// overlay file when one was given. The empty environment name falls
// through to STRAT_ENVIRONMENT and then to dev inside config.Resolve.
func resolveConfig() (*config.EnvironmentConfig, error) {
	cfg, err := config.Resolve(environment)
	if err != nil {
		var ue *config.UnknownEnvironmentError
		if errors.As(err, &ue) {
			return nil, engine.NewSynthError(engine.ErrCodeUnknownEnvironment, ue.Error(), nil)
		}
		return nil, err
	}

	if overlayPath != "" {
		overlay, err := config.LoadOverlay(overlayPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load overlay: %w", err)
		}
		overlay.Apply(cfg)
	}

	return cfg, nil
}

// defaultHistoryPath is where run history lands unless --db overrides it.
func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "stratctl-runs.db"
	}
	return filepath.Join(home, ".stratctl", "runs.db")
}
