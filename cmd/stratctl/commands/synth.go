package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/optstrat/infra/pkg/config"
	"github.com/optstrat/infra/pkg/engine"
	"github.com/optstrat/infra/pkg/modules"
	"github.com/optstrat/infra/pkg/policy"
	"github.com/optstrat/infra/pkg/provision"
	"github.com/optstrat/infra/pkg/stores"
	"github.com/optstrat/infra/pkg/tagging"
	"github.com/optstrat/infra/pkg/telemetry"
)

func newSynthCommand() *cobra.Command {
	var (
		dryRun        bool
		policyDirs    []string
		noPolicyGate  bool
		noHistory     bool
		historyDB     string
		traceStdout   bool
		metricsListen string
	)

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Synthesize the infrastructure stack for an environment",
		Long: `Synthesize resolves the environment configuration, validates it,
evaluates the policy guardrails, and runs every module of the stack in
dependency order. With --dry-run the run uses in-memory provisioning
and an in-memory parameter sink; without it resources are created
through the AWS APIs and outputs land in SSM Parameter Store.`,
		Example: `  # Dry-run synthesis for dev
  stratctl synth --dry-run

  # Live synthesis for production with extra guardrails
  stratctl -e prod synth --policy-dir ./policies

  # Dry-run with a configuration overlay
  stratctl -e staging synth --dry-run --overlay team.cue`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := log.Logger

			cfg, err := resolveConfig()
			if err != nil {
				return err
			}
			logger = logger.With().Str("environment", string(cfg.Environment)).Logger()

			// Policy gate runs before anything touches a provider.
			if !noPolicyGate {
				if err := runPolicyGate(ctx, cmd, cfg, policyDirs, dryRun); err != nil {
					return err
				}
			}

			// One telemetry configuration drives both the metrics endpoint
			// and the trace exporter for the run.
			tcfg := telemetry.DefaultConfig()
			tcfg.ServiceVersion = buildVersion
			tcfg.Environment = string(cfg.Environment)
			tcfg.Metrics.Enabled = metricsListen != ""
			if metricsListen != "" {
				tcfg.Metrics.ListenAddress = metricsListen
			}
			tcfg.Tracing.Enabled = traceStdout
			tcfg.Tracing.Exporter = "stdout"
			if err := tcfg.Validate(); err != nil {
				return fmt.Errorf("invalid telemetry configuration: %w", err)
			}

			var metrics *telemetry.Metrics
			if tcfg.Metrics.Enabled {
				metrics, err = telemetry.NewMetrics(tcfg.Metrics)
				if err != nil {
					return fmt.Errorf("failed to initialize metrics: %w", err)
				}
				go func() {
					if err := metrics.StartMetricsServer(); err != nil {
						logger.Warn().Err(err).Msg("Metrics server stopped")
					}
				}()
			}

			var tracer *telemetry.Tracer
			if tcfg.Tracing.Enabled {
				tracer, err = telemetry.NewTracer(tcfg.Tracing, tcfg.ServiceName, tcfg.ServiceVersion, tcfg.Environment)
				if err != nil {
					return fmt.Errorf("failed to initialize tracing: %w", err)
				}
				defer func() {
					if err := tracer.Shutdown(context.Background()); err != nil {
						logger.Warn().Err(err).Msg("Tracer shutdown failed")
					}
				}()
			}

			provisioner, tagger, sink, err := buildProvider(ctx, cfg, dryRun, metrics)
			if err != nil {
				return err
			}

			opts := []engine.SynthesizerOption{engine.WithSink(sink)}
			if metrics != nil {
				opts = append(opts, engine.WithMetrics(metrics))
			}
			if tracer != nil {
				opts = append(opts, engine.WithTracer(tracer))
			}

			if !noHistory {
				store, err := stores.NewSQLiteStore(stores.Config{Path: historyDB})
				if err != nil {
					return fmt.Errorf("failed to open run history: %w", err)
				}
				if err := store.Init(ctx); err != nil {
					return fmt.Errorf("failed to open run history: %w", err)
				}
				defer store.Close()
				if err := store.Migrate(ctx); err != nil {
					return fmt.Errorf("failed to migrate run history: %w", err)
				}
				opts = append(opts, engine.WithRecorder(store))
			}

			graph, err := engine.NewModuleGraph(modules.All(provisioner, logger))
			if err != nil {
				return err
			}

			synth := engine.NewSynthesizer(graph, config.NewValidator(), tagging.NewPolicy(), tagger, logger, opts...)

			registry, result, err := synth.Synthesize(ctx, cfg)
			if err != nil {
				var se *engine.SynthError
				if errors.As(err, &se) && engine.IsValidationFailed(err) {
					fmt.Fprintf(cmd.OutOrStdout(), "Configuration for %s failed validation:\n", cfg.Environment)
					for _, finding := range se.Findings {
						fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", finding)
					}
				}
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Run %s succeeded for %s\n", result.RunID, result.Environment)
			fmt.Fprintf(cmd.OutOrStdout(), "Module order: %v\n", result.Order)
			fmt.Fprintf(cmd.OutOrStdout(), "Outputs (%d):\n", registry.Len())
			snapshot := registry.Snapshot()
			for _, path := range registry.Paths() {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s\n", path, snapshot[path])
			}
			if dryRun {
				fmt.Fprintln(cmd.OutOrStdout(), "Dry run: no cloud resources were created.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "synthesize in memory without touching AWS")
	cmd.Flags().StringSliceVar(&policyDirs, "policy-dir", nil, "directory or file with additional guardrail policies (repeatable)")
	cmd.Flags().BoolVar(&noPolicyGate, "no-policy-gate", false, "skip the guardrail policy evaluation")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "do not record the run in the history database")
	cmd.Flags().StringVar(&historyDB, "db", defaultHistoryPath(), "path to the run history database")
	cmd.Flags().BoolVar(&traceStdout, "trace", false, "emit spans for the run to stdout")
	cmd.Flags().StringVar(&metricsListen, "metrics-listen", "", "serve Prometheus metrics on this address during the run")

	return cmd
}

// buildProvider wires the provisioner, tagger, and parameter sink for
// either a dry run or a live run.
func buildProvider(ctx context.Context, cfg *config.EnvironmentConfig, dryRun bool, metrics *telemetry.Metrics) (provision.Provisioner, engine.Tagger, engine.ParameterSink, error) {
	if dryRun {
		mem := provision.NewMemory()
		return mem, mem, provision.NewMemorySink(), nil
	}

	aws, err := provision.NewAWS(ctx, cfg.Region, log.Logger, metrics)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize AWS provisioner: %w", err)
	}
	sink, err := provision.NewSSMSink(ctx, cfg.Region, log.Logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize parameter sink: %w", err)
	}
	return aws, aws, sink, nil
}

// runPolicyGate evaluates guardrails and blocks on error-or-worse
// violations. Warnings are printed and do not block.
func runPolicyGate(ctx context.Context, cmd *cobra.Command, cfg *config.EnvironmentConfig, policyDirs []string, dryRun bool) error {
	eng, err := policy.NewEngine(log.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize policy engine: %w", err)
	}
	if len(policyDirs) > 0 {
		if err := eng.LoadPolicies(ctx, policyDirs); err != nil {
			return fmt.Errorf("failed to load policies: %w", err)
		}
	}

	result, err := eng.Evaluate(ctx, cfg, "synth", dryRun)
	if err != nil {
		return fmt.Errorf("policy evaluation failed: %w", err)
	}

	for _, w := range result.Warnings {
		fmt.Fprintf(cmd.OutOrStdout(), "Warning [%s]: %s\n", w.Policy, w.Message)
	}
	if !result.Allowed {
		for _, v := range result.Violations {
			fmt.Fprintf(cmd.OutOrStdout(), "Violation [%s/%s]: %s\n", v.Policy, v.Severity, v.Message)
		}
		return fmt.Errorf("policy guardrails blocked synthesis: %d violation(s)", len(result.Violations))
	}
	return nil
}
