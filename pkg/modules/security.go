package modules

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/optstrat/infra/pkg/config"
	"github.com/optstrat/infra/pkg/engine"
	"github.com/optstrat/infra/pkg/provision"
)

// Security provisions the four security groups of the platform tier
// chain: load balancer, application, lambda, and database. Ingress is
// strictly tiered; the database accepts traffic only from the
// application and lambda groups.
type Security struct {
	provisioner provision.Provisioner
	logger      zerolog.Logger
}

// NewSecurity creates the security module.
func NewSecurity(p provision.Provisioner, logger zerolog.Logger) *Security {
	return &Security{
		provisioner: p,
		logger:      logger.With().Str("module", "security").Logger(),
	}
}

func (m *Security) Name() string { return "security" }

func (m *Security) DependsOn() []string { return []string{"networking"} }

func (m *Security) Synthesize(ctx context.Context, cfg *config.EnvironmentConfig, inputs engine.Inputs, reg *engine.OutputRegistry) ([]engine.Resource, error) {
	vpcID, ok := inputs["networking"]["vpc/id"]
	if !ok {
		return nil, engine.NewSynthError(engine.ErrCodeMissingOutput, "networking did not publish vpc/id", nil).WithModule(m.Name())
	}

	prefix := cfg.ResourcePrefix()
	var resources []engine.Resource

	create := func(role, description string) (string, error) {
		name := fmt.Sprintf("%s-%s-sg", prefix, role)
		id, err := m.provisioner.CreateSecurityGroup(ctx, name, description, vpcID)
		if err != nil {
			return "", err
		}
		resources = append(resources, engine.Resource{ID: id, Type: "security-group", Name: name})
		if err := reg.Write(ctx, m.Name(), "security-groups/"+role, id); err != nil {
			return "", err
		}
		return id, nil
	}

	albID, err := create("alb", "Load balancer ingress from the internet")
	if err != nil {
		return nil, err
	}
	appID, err := create("app", "Application tier, reachable from the load balancer only")
	if err != nil {
		return nil, err
	}
	lambdaID, err := create("lambda", "Lambda tier, egress only")
	if err != nil {
		return nil, err
	}
	dbID, err := create("database", "Database tier, reachable from app and lambda only")
	if err != nil {
		return nil, err
	}

	ingress := []struct {
		target string
		rule   provision.IngressRule
	}{
		{albID, provision.IngressRule{Protocol: "tcp", FromPort: 443, ToPort: 443, SourceCIDR: "0.0.0.0/0", Description: "HTTPS from internet"}},
		{albID, provision.IngressRule{Protocol: "tcp", FromPort: 80, ToPort: 80, SourceCIDR: "0.0.0.0/0", Description: "HTTP redirect from internet"}},
		{appID, provision.IngressRule{Protocol: "tcp", FromPort: 8080, ToPort: 8080, SourceSecurityGroupID: albID, Description: "App traffic from load balancer"}},
		{dbID, provision.IngressRule{Protocol: "tcp", FromPort: 5432, ToPort: 5432, SourceSecurityGroupID: appID, Description: "Postgres from app tier"}},
		{dbID, provision.IngressRule{Protocol: "tcp", FromPort: 5432, ToPort: 5432, SourceSecurityGroupID: lambdaID, Description: "Postgres from lambda tier"}},
	}
	for _, in := range ingress {
		if err := m.provisioner.AuthorizeIngress(ctx, in.target, in.rule); err != nil {
			return nil, err
		}
	}

	m.logger.Info().Str("vpc_id", vpcID).Int("groups", 4).Msg("Security synthesized")
	return resources, nil
}
