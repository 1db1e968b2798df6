package modules

import (
	"context"
	"sort"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/optstrat/infra/pkg/config"
	"github.com/optstrat/infra/pkg/engine"
)

// Configuration publishes the application-facing configuration surface:
// feature flags, custom parameters, cross-references to the identifiers
// the application tier needs at startup, and the encrypted secure/*
// hierarchy that application deployments fill in later. Everything goes
// through the registry so the parameter sink materializes it.
type Configuration struct {
	logger zerolog.Logger
}

// NewConfiguration creates the configuration module.
func NewConfiguration(logger zerolog.Logger) *Configuration {
	return &Configuration{
		logger: logger.With().Str("module", "configuration").Logger(),
	}
}

func (m *Configuration) Name() string { return "configuration" }

func (m *Configuration) DependsOn() []string { return []string{"networking", "identity"} }

func (m *Configuration) Synthesize(ctx context.Context, cfg *config.EnvironmentConfig, inputs engine.Inputs, reg *engine.OutputRegistry) ([]engine.Resource, error) {
	count := 0
	write := func(name, value string) error {
		if err := reg.Write(ctx, m.Name(), name, value); err != nil {
			return err
		}
		count++
		return nil
	}

	// Flags and parameters are written in sorted order so two runs of
	// the same configuration produce identical write sequences.
	for _, flag := range sortedKeys(cfg.FeatureFlags) {
		if err := write("flags/"+flag, strconv.FormatBool(cfg.FeatureFlags[flag])); err != nil {
			return nil, err
		}
	}
	for _, key := range sortedKeys(cfg.CustomParameters) {
		if err := write("params/"+key, cfg.CustomParameters[key]); err != nil {
			return nil, err
		}
	}

	refs := []struct {
		name   string
		module string
		output string
	}{
		{"refs/vpc-id", "networking", "vpc/id"},
		{"refs/private-subnets", "networking", "subnets/private"},
		{"refs/lambda-role-arn", "identity", "iam/lambda-role-arn"},
		{"refs/ecs-task-role-arn", "identity", "iam/ecs-task-role-arn"},
	}
	for _, ref := range refs {
		value, ok := inputs[ref.module][ref.output]
		if !ok {
			return nil, engine.NewSynthError(engine.ErrCodeMissingOutput,
				ref.module+" did not publish "+ref.output, nil).WithModule(m.Name())
		}
		if err := write(ref.name, value); err != nil {
			return nil, err
		}
	}

	// The secure hierarchy reserves encrypted parameters for values the
	// application stacks overwrite after deployment. Placeholders keep
	// the paths resolvable from day one.
	notifyEndpoint := cfg.Monitoring.AlarmNotificationEmail
	if notifyEndpoint == "" {
		notifyEndpoint = "admin@example.com"
	}
	secure := []struct {
		name  string
		value string
	}{
		{"secure/database/connection-string", "placeholder-will-be-updated-by-rds-stack"},
		{"secure/database/read-replica-string", "placeholder-will-be-updated-by-rds-stack"},
		{"secure/cache/redis-endpoint", "placeholder-will-be-updated-by-cache-stack"},
		{"secure/api/trading-api-key", "placeholder-update-after-deployment"},
		{"secure/api/market-data-key", "placeholder-update-after-deployment"},
		{"secure/notifications/email-endpoint", notifyEndpoint},
		{"secure/encryption/data-key", "placeholder-will-be-generated"},
	}
	for _, p := range secure {
		if err := reg.WriteSecure(ctx, m.Name(), p.name, p.value); err != nil {
			return nil, err
		}
		count++
	}

	if err := write("config/kms-enabled", strconv.FormatBool(cfg.Security.EnableEncryptionAtRest)); err != nil {
		return nil, err
	}
	if err := reg.Write(ctx, m.Name(), "config/parameter-count", strconv.Itoa(count)); err != nil {
		return nil, err
	}

	m.logger.Info().Int("parameters", count).Msg("Configuration synthesized")

	// Parameters are not taggable cloud resources; nothing to tag here.
	return nil, nil
}

// sortedKeys returns the keys of a map in sorted order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
