package modules

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/optstrat/infra/pkg/config"
	"github.com/optstrat/infra/pkg/engine"
	"github.com/optstrat/infra/pkg/provision"
)

// Identity provisions the IAM roles for the compute tiers. It has no
// dependencies and can run in the first wave alongside networking.
type Identity struct {
	provisioner provision.Provisioner
	logger      zerolog.Logger
}

// NewIdentity creates the identity module.
func NewIdentity(p provision.Provisioner, logger zerolog.Logger) *Identity {
	return &Identity{
		provisioner: p,
		logger:      logger.With().Str("module", "identity").Logger(),
	}
}

func (m *Identity) Name() string { return "identity" }

func (m *Identity) DependsOn() []string { return nil }

func (m *Identity) Synthesize(ctx context.Context, cfg *config.EnvironmentConfig, _ engine.Inputs, reg *engine.OutputRegistry) ([]engine.Resource, error) {
	prefix := cfg.ResourcePrefix()

	lambdaPolicies := []string{
		"arn:aws:iam::aws:policy/service-role/AWSLambdaBasicExecutionRole",
		"arn:aws:iam::aws:policy/service-role/AWSLambdaVPCAccessExecutionRole",
	}
	if cfg.Monitoring.EnableXRayTracing {
		lambdaPolicies = append(lambdaPolicies, "arn:aws:iam::aws:policy/AWSXRayDaemonWriteAccess")
	}

	roles := []struct {
		role     string
		output   string
		service  string
		policies []string
	}{
		{
			role:     "lambda",
			output:   "iam/lambda-role-arn",
			service:  "lambda.amazonaws.com",
			policies: lambdaPolicies,
		},
		{
			role:    "ecs-execution",
			output:  "iam/ecs-execution-role-arn",
			service: "ecs-tasks.amazonaws.com",
			policies: []string{
				"arn:aws:iam::aws:policy/service-role/AmazonECSTaskExecutionRolePolicy",
			},
		},
		{
			role:    "ecs-task",
			output:  "iam/ecs-task-role-arn",
			service: "ecs-tasks.amazonaws.com",
		},
		{
			role:    "api-gateway",
			output:  "iam/api-gateway-role-arn",
			service: "apigateway.amazonaws.com",
			policies: []string{
				"arn:aws:iam::aws:policy/service-role/AmazonAPIGatewayPushToCloudWatchLogs",
			},
		},
	}

	resources := make([]engine.Resource, 0, len(roles))
	for _, r := range roles {
		name := fmt.Sprintf("%s-%s-role", prefix, r.role)
		arn, err := m.provisioner.CreateRole(ctx, name, r.service)
		if err != nil {
			return nil, err
		}
		if len(r.policies) > 0 {
			if err := m.provisioner.AttachRolePolicies(ctx, name, r.policies); err != nil {
				return nil, err
			}
		}
		resources = append(resources, engine.Resource{ID: arn, Type: "iam-role", Name: name})
		if err := reg.Write(ctx, m.Name(), r.output, arn); err != nil {
			return nil, err
		}
	}

	m.logger.Info().Int("roles", len(roles)).Msg("Identity synthesized")
	return resources, nil
}
