package provision

import (
	"context"

	"github.com/optstrat/infra/pkg/engine"
)

// IngressRule describes one security group ingress permission. Either
// SourceSecurityGroupID or SourceCIDR is set, never both.
type IngressRule struct {
	Protocol              string
	FromPort              int32
	ToPort                int32
	SourceSecurityGroupID string
	SourceCIDR            string
	Description           string
}

// Alarm describes one metric alarm.
type Alarm struct {
	Name               string
	Description        string
	Namespace          string
	MetricName         string
	Statistic          string
	Threshold          float64
	ComparisonOperator string
	EvaluationPeriods  int32
	PeriodSeconds      int32
	TopicARN           string
}

// Provisioner is the cloud collaborator modules synthesize against.
// Implementations return stable identifiers; modules publish those
// identifiers through the output registry.
type Provisioner interface {
	// CreateVPC creates a VPC and returns its ID.
	CreateVPC(ctx context.Context, name, cidr string) (string, error)

	// CreateSubnet creates a subnet in the given VPC and returns its ID.
	CreateSubnet(ctx context.Context, name, vpcID, cidr, zone string, public bool) (string, error)

	// CreateLogGroup creates a log group with the given retention and
	// returns its name.
	CreateLogGroup(ctx context.Context, name string, retentionDays int) (string, error)

	// CreateSecurityGroup creates a security group and returns its ID.
	CreateSecurityGroup(ctx context.Context, name, description, vpcID string) (string, error)

	// AuthorizeIngress adds one ingress rule to a security group.
	AuthorizeIngress(ctx context.Context, securityGroupID string, rule IngressRule) error

	// CreateRole creates an IAM role assumable by the given service
	// principal and returns its ARN.
	CreateRole(ctx context.Context, name, service string) (string, error)

	// AttachRolePolicies attaches managed policies to a role.
	AttachRolePolicies(ctx context.Context, roleName string, policyARNs []string) error

	// CreateTopic creates a notification topic and returns its ARN.
	CreateTopic(ctx context.Context, name string) (string, error)

	// SubscribeEmail subscribes an email endpoint to a topic.
	SubscribeEmail(ctx context.Context, topicARN, email string) error

	// PutDashboard creates or replaces a monitoring dashboard.
	PutDashboard(ctx context.Context, name, body string) error

	// PutMetricAlarm creates or replaces a metric alarm.
	PutMetricAlarm(ctx context.Context, alarm Alarm) error

	// TagResources applies the tag set to provisioned resources.
	TagResources(ctx context.Context, resources []engine.Resource, tags map[string]string) error
}
