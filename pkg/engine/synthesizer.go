package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/optstrat/infra/pkg/config"
	"github.com/optstrat/infra/pkg/telemetry"
)

// TagPolicy derives the uniform tag set for a resolved configuration.
type TagPolicy interface {
	TagSet(cfg *config.EnvironmentConfig) map[string]string
}

// Tagger applies a tag set to provisioned resources. It is the only
// provisioning capability the orchestrator itself needs; everything
// else happens inside the modules.
type Tagger interface {
	TagResources(ctx context.Context, resources []Resource, tags map[string]string) error
}

// RunRecorder persists a completed run for the history command.
type RunRecorder interface {
	RecordRun(ctx context.Context, result *RunResult, findings []string) error
}

// Synthesizer orchestrates one synthesis run: validate the resolved
// configuration, walk the module graph in topological order, hand each
// module its declared upstream views, and decorate every produced
// resource with the uniform tag set.
type Synthesizer struct {
	graph     *ModuleGraph
	validator *config.Validator
	tags      TagPolicy
	tagger    Tagger
	sink      ParameterSink
	recorder  RunRecorder
	logger    zerolog.Logger
	metrics   *telemetry.Metrics
	tracer    *telemetry.Tracer
}

// SynthesizerOption configures optional collaborators.
type SynthesizerOption func(*Synthesizer)

// WithSink attaches the durable parameter-store sink.
func WithSink(sink ParameterSink) SynthesizerOption {
	return func(s *Synthesizer) { s.sink = sink }
}

// WithRecorder attaches the run-history recorder.
func WithRecorder(rec RunRecorder) SynthesizerOption {
	return func(s *Synthesizer) { s.recorder = rec }
}

// WithMetrics attaches the metrics collector.
func WithMetrics(m *telemetry.Metrics) SynthesizerOption {
	return func(s *Synthesizer) { s.metrics = m }
}

// WithTracer attaches the tracer.
func WithTracer(tr *telemetry.Tracer) SynthesizerOption {
	return func(s *Synthesizer) { s.tracer = tr }
}

// NewSynthesizer creates a synthesizer over a validated module graph.
func NewSynthesizer(graph *ModuleGraph, validator *config.Validator, tags TagPolicy, tagger Tagger, logger zerolog.Logger, opts ...SynthesizerOption) *Synthesizer {
	s := &Synthesizer{
		graph:     graph,
		validator: validator,
		tags:      tags,
		tagger:    tagger,
		logger:    logger.With().Str("component", "synthesizer").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize runs one full synthesis pass for cfg and returns the
// populated registry. Any validator finding, registry discipline
// violation, or collaborator failure aborts the whole run.
func (s *Synthesizer) Synthesize(ctx context.Context, cfg *config.EnvironmentConfig) (_ *OutputRegistry, _ *RunResult, retErr error) {
	runID := uuid.NewString()
	startedAt := time.Now()
	env := string(cfg.Environment)

	logger := s.logger.With().Str("run_id", runID).Str("environment", env).Logger()

	if s.tracer != nil {
		var end func(error)
		ctx, end = s.tracer.StartSpan(ctx, "synthesize", "environment", env)
		defer func() { end(retErr) }()
	}

	if s.metrics != nil {
		s.metrics.RunStarted(env)
	}

	result := &RunResult{
		RunID:       runID,
		Environment: env,
		Status:      RunStatusFailed,
		Resources:   make(map[string]int),
		StartedAt:   startedAt,
	}

	fail := func(err error, findings []string) (*OutputRegistry, *RunResult, error) {
		result.CompletedAt = time.Now()
		s.finishRun(ctx, result, findings, logger)
		return nil, result, err
	}

	findings := s.validator.Validate(cfg)
	if s.metrics != nil {
		s.metrics.ValidationFindings(env, len(findings))
	}
	if len(findings) > 0 {
		logger.Error().Int("findings", len(findings)).Msg("Configuration validation failed")
		return fail(NewValidationFailedError(findings), findings)
	}

	registry := NewOutputRegistry(env, cfg.ParameterPrefix(), s.sink)
	tagSet := s.tags.TagSet(cfg)
	order := s.graph.Order()
	result.Order = order

	logger.Info().Strs("order", order).Msg("Starting module synthesis")

	for _, name := range order {
		module, ok := s.graph.Module(name)
		if !ok {
			return fail(NewSynthError(ErrCodeInternal, "ordered module not registered", nil).WithModule(name), nil)
		}

		moduleStart := time.Now()
		modLogger := logger.With().Str("module", name).Logger()
		modLogger.Info().Msg("Synthesizing module")

		inputs := make(Inputs, len(module.DependsOn()))
		for _, dep := range module.DependsOn() {
			inputs[dep] = registry.ReadAll(dep)
		}

		modCtx := ctx
		end := func(error) {}
		if s.tracer != nil {
			modCtx, end = s.tracer.StartSpan(ctx, "module."+name)
		}
		resources, err := module.Synthesize(modCtx, cfg, inputs, registry)
		end(err)
		if err != nil {
			return fail(s.wrapModuleError(name, err), nil)
		}
		if err := s.applyTags(modCtx, name, resources, tagSet); err != nil {
			return fail(err, nil)
		}
		result.Resources[name] = len(resources)

		if s.metrics != nil {
			s.metrics.ModuleSynthesized(name, time.Since(moduleStart))
		}
		modLogger.Info().
			Int("resources", result.Resources[name]).
			Dur("duration", time.Since(moduleStart)).
			Msg("Module synthesized")
	}

	result.Status = RunStatusSucceeded
	result.Registry = registry.Snapshot()
	result.CompletedAt = time.Now()

	if s.metrics != nil {
		s.metrics.OutputsWritten(env, registry.Len())
	}
	s.finishRun(ctx, result, nil, logger)

	logger.Info().
		Int("outputs", registry.Len()).
		Dur("duration", result.CompletedAt.Sub(startedAt)).
		Msg("Synthesis completed")

	return registry, result, nil
}

// wrapModuleError normalizes module failures into the taxonomy,
// preserving already classified errors.
func (s *Synthesizer) wrapModuleError(module string, err error) error {
	if se, ok := err.(*SynthError); ok {
		if se.Module == "" {
			se.Module = module
		}
		return se
	}
	return NewSynthError(ErrCodeProvisionFailed, "module synthesis failed", err).WithModule(module)
}

// applyTags decorates a module's resources with the uniform tag set.
// Tagging is a cross-cutting step: it never contributes outputs and
// never influences ordering.
func (s *Synthesizer) applyTags(ctx context.Context, module string, resources []Resource, tags map[string]string) error {
	if s.tagger == nil || len(resources) == 0 {
		return nil
	}
	if err := s.tagger.TagResources(ctx, resources, tags); err != nil {
		return NewSynthError(ErrCodeProvisionFailed, "failed to apply resource tags", err).WithModule(module)
	}
	return nil
}

// finishRun records the run outcome and updates completion metrics.
func (s *Synthesizer) finishRun(ctx context.Context, result *RunResult, findings []string, logger zerolog.Logger) {
	if s.metrics != nil {
		s.metrics.RunCompleted(result.Environment, string(result.Status), result.CompletedAt.Sub(result.StartedAt))
	}
	if s.recorder == nil {
		return
	}
	if err := s.recorder.RecordRun(ctx, result, findings); err != nil {
		// History is best-effort; a recording failure must not mask the
		// synthesis outcome.
		logger.Warn().Err(err).Msg("Failed to record synthesis run")
	}
}
