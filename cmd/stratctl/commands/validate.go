package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/optstrat/infra/pkg/config"
	"github.com/optstrat/infra/pkg/policy"
)

func newValidateCommand() *cobra.Command {
	var (
		policyDirs []string
		watch      bool
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the resolved environment configuration",
		Long: `Validate resolves the target environment (with any overlay applied),
runs the structural validation rules, and evaluates the guardrail
policies without provisioning anything. With --watch the policy
directories are watched and validation re-runs on every change.`,
		Example: `  # Validate the production preset
  stratctl -e prod validate

  # Validate with an overlay and custom guardrails
  stratctl -e staging validate --overlay team.cue --policy-dir ./policies

  # Keep validating while editing policies
  stratctl validate --policy-dir ./policies --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := resolveConfig()
			if err != nil {
				return err
			}

			eng, err := policy.NewEngine(log.Logger)
			if err != nil {
				return fmt.Errorf("failed to initialize policy engine: %w", err)
			}
			if len(policyDirs) > 0 {
				if err := eng.LoadPolicies(ctx, policyDirs); err != nil {
					return fmt.Errorf("failed to load policies: %w", err)
				}
			}

			if !watch {
				return validateOnce(ctx, cmd, cfg, eng)
			}

			if len(policyDirs) == 0 {
				return fmt.Errorf("--watch requires at least one --policy-dir")
			}

			// First pass, then re-validate on every policy change.
			if err := validateOnce(ctx, cmd, cfg, eng); err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Validation failed: %v\n", err)
			}

			loader := policy.NewLoader(log.Logger)
			err = loader.Watch(ctx, policyDirs, func(policies []policy.Policy) error {
				if err := eng.ReplacePolicies(policies); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Policies reloaded, re-validating...")
				if err := validateOnce(ctx, cmd, cfg, eng); err != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "Validation failed: %v\n", err)
				}
				return nil
			})
			if err != nil {
				return fmt.Errorf("failed to watch policy paths: %w", err)
			}
			defer loader.StopWatching()

			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&policyDirs, "policy-dir", nil, "directory or file with additional guardrail policies (repeatable)")
	cmd.Flags().BoolVar(&watch, "watch", false, "watch policy directories and re-validate on change")

	return cmd
}

// validationReport is the JSON shape of one validation pass.
type validationReport struct {
	Environment string             `json:"environment"`
	Valid       bool               `json:"valid"`
	Findings    []string           `json:"findings,omitempty"`
	Allowed     bool               `json:"policy_allowed"`
	Violations  []policy.Violation `json:"policy_violations,omitempty"`
	Warnings    []policy.Violation `json:"policy_warnings,omitempty"`
}

func validateOnce(ctx context.Context, cmd *cobra.Command, cfg *config.EnvironmentConfig, eng *policy.Engine) error {
	findings := config.NewValidator().Validate(cfg)

	result, err := eng.Evaluate(ctx, cfg, "validate", true)
	if err != nil {
		return fmt.Errorf("policy evaluation failed: %w", err)
	}

	if jsonOutput {
		report := validationReport{
			Environment: string(cfg.Environment),
			Valid:       len(findings) == 0,
			Findings:    findings,
			Allowed:     result.Allowed,
			Violations:  result.Violations,
			Warnings:    result.Warnings,
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		if len(findings) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration for %s is valid.\n", cfg.Environment)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration for %s has %d finding(s):\n", cfg.Environment, len(findings))
			for _, f := range findings {
				fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", f)
			}
		}
		for _, w := range result.Warnings {
			fmt.Fprintf(cmd.OutOrStdout(), "Warning [%s]: %s\n", w.Policy, w.Message)
		}
		for _, v := range result.Violations {
			fmt.Fprintf(cmd.OutOrStdout(), "Violation [%s/%s]: %s\n", v.Policy, v.Severity, v.Message)
		}
	}

	if len(findings) > 0 {
		return fmt.Errorf("configuration has %d validation finding(s)", len(findings))
	}
	if !result.Allowed {
		return fmt.Errorf("policy guardrails reported %d violation(s)", len(result.Violations))
	}
	return nil
}
