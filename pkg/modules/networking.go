package modules

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/rs/zerolog"

	"github.com/optstrat/infra/pkg/config"
	"github.com/optstrat/infra/pkg/engine"
	"github.com/optstrat/infra/pkg/provision"
)

// Subnet tier offsets within the VPC /16. Each tier gets a /24 per
// availability zone.
const (
	publicSubnetOffset   = 0
	privateSubnetOffset  = 10
	isolatedSubnetOffset = 20
)

// Networking provisions the VPC, the three subnet tiers, and the flow
// log group. It has no dependencies and runs first.
type Networking struct {
	provisioner provision.Provisioner
	logger      zerolog.Logger
}

// NewNetworking creates the networking module.
func NewNetworking(p provision.Provisioner, logger zerolog.Logger) *Networking {
	return &Networking{
		provisioner: p,
		logger:      logger.With().Str("module", "networking").Logger(),
	}
}

func (m *Networking) Name() string { return "networking" }

func (m *Networking) DependsOn() []string { return nil }

func (m *Networking) Synthesize(ctx context.Context, cfg *config.EnvironmentConfig, _ engine.Inputs, reg *engine.OutputRegistry) ([]engine.Resource, error) {
	prefix := cfg.ResourcePrefix()
	cidr := cfg.Networking.VPCCIDR

	vpcID, err := m.provisioner.CreateVPC(ctx, prefix+"-vpc", cidr)
	if err != nil {
		return nil, err
	}
	resources := []engine.Resource{{ID: vpcID, Type: "vpc", Name: prefix + "-vpc"}}

	if err := reg.Write(ctx, m.Name(), "vpc/id", vpcID); err != nil {
		return nil, err
	}
	if err := reg.Write(ctx, m.Name(), "vpc/cidr", cidr); err != nil {
		return nil, err
	}

	tiers := []struct {
		name   string
		offset int
		public bool
	}{
		{"public", publicSubnetOffset, true},
		{"private", privateSubnetOffset, false},
		{"isolated", isolatedSubnetOffset, false},
	}

	for _, tier := range tiers {
		ids := make([]string, 0, cfg.Networking.MaxAZs)
		for az := 0; az < cfg.Networking.MaxAZs; az++ {
			subnetCIDR, err := subnetCIDR(cidr, tier.offset+az)
			if err != nil {
				return nil, err
			}
			zone := availabilityZone(cfg.Region, az)
			name := fmt.Sprintf("%s-%s-%s", prefix, tier.name, zone)

			id, err := m.provisioner.CreateSubnet(ctx, name, vpcID, subnetCIDR, zone, tier.public)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
			resources = append(resources, engine.Resource{ID: id, Type: "subnet", Name: name})
		}
		if err := reg.Write(ctx, m.Name(), "subnets/"+tier.name, strings.Join(ids, ",")); err != nil {
			return nil, err
		}
	}

	if cfg.Networking.EnableFlowLogs {
		group := fmt.Sprintf("/aws/vpc/flowlogs/%s", prefix)
		name, err := m.provisioner.CreateLogGroup(ctx, group, cfg.Monitoring.LogRetentionDays)
		if err != nil {
			return nil, err
		}
		resources = append(resources, engine.Resource{ID: name, Type: "log-group", Name: name})
		if err := reg.Write(ctx, m.Name(), "flow-logs/group", name); err != nil {
			return nil, err
		}
	}

	m.logger.Info().Str("vpc_id", vpcID).Int("azs", cfg.Networking.MaxAZs).Msg("Networking synthesized")
	return resources, nil
}

// subnetCIDR carves the Nth /24 out of the VPC /16.
func subnetCIDR(vpcCIDR string, index int) (string, error) {
	ip, _, err := net.ParseCIDR(vpcCIDR)
	if err != nil {
		return "", fmt.Errorf("invalid vpc cidr %s: %w", vpcCIDR, err)
	}
	v4 := ip.To4()
	if v4 == nil {
		return "", fmt.Errorf("vpc cidr %s is not IPv4", vpcCIDR)
	}
	if index > 255 {
		return "", fmt.Errorf("subnet index %d exceeds /16 capacity", index)
	}
	return fmt.Sprintf("%d.%d.%d.0/24", v4[0], v4[1], index), nil
}

// availabilityZone maps an index to a zone name within the region.
func availabilityZone(region string, index int) string {
	return region + string(rune('a'+index))
}
