package provision

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/rs/zerolog"

	"github.com/optstrat/infra/pkg/engine"
	"github.com/optstrat/infra/pkg/telemetry"
)

// assumeRolePolicy is the trust document template for service roles.
const assumeRolePolicy = `{
  "Version": "2012-10-17",
  "Statement": [
    {
      "Effect": "Allow",
      "Principal": {"Service": "%s"},
      "Action": "sts:AssumeRole"
    }
  ]
}`

// AWS is the live Provisioner backed by the AWS APIs.
type AWS struct {
	ec2     *ec2.Client
	iam     *iam.Client
	logs    *cloudwatchlogs.Client
	sns     *sns.Client
	cw      *cloudwatch.Client
	logger  zerolog.Logger
	metrics *telemetry.Metrics
}

// NewAWS creates a live provisioner for the given region using the
// default credential chain.
func NewAWS(ctx context.Context, region string, logger zerolog.Logger, metrics *telemetry.Metrics) (*AWS, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return &AWS{
		ec2:     ec2.NewFromConfig(cfg),
		iam:     iam.NewFromConfig(cfg),
		logs:    cloudwatchlogs.NewFromConfig(cfg),
		sns:     sns.NewFromConfig(cfg),
		cw:      cloudwatch.NewFromConfig(cfg),
		logger:  logger.With().Str("component", "provisioner").Logger(),
		metrics: metrics,
	}, nil
}

// call records one provider operation for metrics, labelling errors.
func (p *AWS) call(service, operation string, err error) {
	if p.metrics == nil {
		return
	}
	p.metrics.ProviderCall(service, operation)
	if err != nil {
		p.metrics.ProviderError(service, operation)
	}
}

func (p *AWS) CreateVPC(ctx context.Context, name, cidr string) (string, error) {
	out, err := p.ec2.CreateVpc(ctx, &ec2.CreateVpcInput{
		CidrBlock: aws.String(cidr),
		TagSpecifications: []ec2types.TagSpecification{{
			ResourceType: ec2types.ResourceTypeVpc,
			Tags:         []ec2types.Tag{{Key: aws.String("Name"), Value: aws.String(name)}},
		}},
	})
	p.call("ec2", "CreateVpc", err)
	if err != nil {
		return "", fmt.Errorf("failed to create VPC %s: %w", name, err)
	}
	id := aws.ToString(out.Vpc.VpcId)
	p.logger.Info().Str("vpc_id", id).Str("cidr", cidr).Msg("Created VPC")
	return id, nil
}

func (p *AWS) CreateSubnet(ctx context.Context, name, vpcID, cidr, zone string, public bool) (string, error) {
	out, err := p.ec2.CreateSubnet(ctx, &ec2.CreateSubnetInput{
		VpcId:            aws.String(vpcID),
		CidrBlock:        aws.String(cidr),
		AvailabilityZone: aws.String(zone),
		TagSpecifications: []ec2types.TagSpecification{{
			ResourceType: ec2types.ResourceTypeSubnet,
			Tags:         []ec2types.Tag{{Key: aws.String("Name"), Value: aws.String(name)}},
		}},
	})
	p.call("ec2", "CreateSubnet", err)
	if err != nil {
		return "", fmt.Errorf("failed to create subnet %s: %w", name, err)
	}
	id := aws.ToString(out.Subnet.SubnetId)

	if public {
		_, err = p.ec2.ModifySubnetAttribute(ctx, &ec2.ModifySubnetAttributeInput{
			SubnetId:            aws.String(id),
			MapPublicIpOnLaunch: &ec2types.AttributeBooleanValue{Value: aws.Bool(true)},
		})
		p.call("ec2", "ModifySubnetAttribute", err)
		if err != nil {
			return "", fmt.Errorf("failed to mark subnet %s public: %w", id, err)
		}
	}

	p.logger.Info().Str("subnet_id", id).Str("zone", zone).Bool("public", public).Msg("Created subnet")
	return id, nil
}

func (p *AWS) CreateLogGroup(ctx context.Context, name string, retentionDays int) (string, error) {
	_, err := p.logs.CreateLogGroup(ctx, &cloudwatchlogs.CreateLogGroupInput{
		LogGroupName: aws.String(name),
	})
	p.call("logs", "CreateLogGroup", err)
	if err != nil {
		return "", fmt.Errorf("failed to create log group %s: %w", name, err)
	}

	_, err = p.logs.PutRetentionPolicy(ctx, &cloudwatchlogs.PutRetentionPolicyInput{
		LogGroupName:    aws.String(name),
		RetentionInDays: aws.Int32(int32(retentionDays)),
	})
	p.call("logs", "PutRetentionPolicy", err)
	if err != nil {
		return "", fmt.Errorf("failed to set retention on log group %s: %w", name, err)
	}

	p.logger.Info().Str("log_group", name).Int("retention_days", retentionDays).Msg("Created log group")
	return name, nil
}

func (p *AWS) CreateSecurityGroup(ctx context.Context, name, description, vpcID string) (string, error) {
	out, err := p.ec2.CreateSecurityGroup(ctx, &ec2.CreateSecurityGroupInput{
		GroupName:   aws.String(name),
		Description: aws.String(description),
		VpcId:       aws.String(vpcID),
	})
	p.call("ec2", "CreateSecurityGroup", err)
	if err != nil {
		return "", fmt.Errorf("failed to create security group %s: %w", name, err)
	}
	id := aws.ToString(out.GroupId)
	p.logger.Info().Str("security_group_id", id).Str("name", name).Msg("Created security group")
	return id, nil
}

func (p *AWS) AuthorizeIngress(ctx context.Context, securityGroupID string, rule IngressRule) error {
	perm := ec2types.IpPermission{
		IpProtocol: aws.String(rule.Protocol),
		FromPort:   aws.Int32(rule.FromPort),
		ToPort:     aws.Int32(rule.ToPort),
	}
	if rule.SourceSecurityGroupID != "" {
		perm.UserIdGroupPairs = []ec2types.UserIdGroupPair{{
			GroupId:     aws.String(rule.SourceSecurityGroupID),
			Description: aws.String(rule.Description),
		}}
	} else {
		perm.IpRanges = []ec2types.IpRange{{
			CidrIp:      aws.String(rule.SourceCIDR),
			Description: aws.String(rule.Description),
		}}
	}

	_, err := p.ec2.AuthorizeSecurityGroupIngress(ctx, &ec2.AuthorizeSecurityGroupIngressInput{
		GroupId:       aws.String(securityGroupID),
		IpPermissions: []ec2types.IpPermission{perm},
	})
	p.call("ec2", "AuthorizeSecurityGroupIngress", err)
	if err != nil {
		return fmt.Errorf("failed to authorize ingress on %s: %w", securityGroupID, err)
	}
	return nil
}

func (p *AWS) CreateRole(ctx context.Context, name, service string) (string, error) {
	out, err := p.iam.CreateRole(ctx, &iam.CreateRoleInput{
		RoleName:                 aws.String(name),
		AssumeRolePolicyDocument: aws.String(fmt.Sprintf(assumeRolePolicy, service)),
	})
	p.call("iam", "CreateRole", err)
	if err != nil {
		return "", fmt.Errorf("failed to create role %s: %w", name, err)
	}
	arn := aws.ToString(out.Role.Arn)
	p.logger.Info().Str("role", name).Str("arn", arn).Msg("Created IAM role")
	return arn, nil
}

func (p *AWS) AttachRolePolicies(ctx context.Context, roleName string, policyARNs []string) error {
	for _, policyARN := range policyARNs {
		_, err := p.iam.AttachRolePolicy(ctx, &iam.AttachRolePolicyInput{
			RoleName:  aws.String(roleName),
			PolicyArn: aws.String(policyARN),
		})
		p.call("iam", "AttachRolePolicy", err)
		if err != nil {
			return fmt.Errorf("failed to attach policy %s to role %s: %w", policyARN, roleName, err)
		}
	}
	return nil
}

func (p *AWS) CreateTopic(ctx context.Context, name string) (string, error) {
	out, err := p.sns.CreateTopic(ctx, &sns.CreateTopicInput{
		Name: aws.String(name),
	})
	p.call("sns", "CreateTopic", err)
	if err != nil {
		return "", fmt.Errorf("failed to create topic %s: %w", name, err)
	}
	arn := aws.ToString(out.TopicArn)
	p.logger.Info().Str("topic", name).Str("arn", arn).Msg("Created SNS topic")
	return arn, nil
}

func (p *AWS) SubscribeEmail(ctx context.Context, topicARN, email string) error {
	_, err := p.sns.Subscribe(ctx, &sns.SubscribeInput{
		TopicArn: aws.String(topicARN),
		Protocol: aws.String("email"),
		Endpoint: aws.String(email),
	})
	p.call("sns", "Subscribe", err)
	if err != nil {
		return fmt.Errorf("failed to subscribe %s to %s: %w", email, topicARN, err)
	}
	return nil
}

func (p *AWS) PutDashboard(ctx context.Context, name, body string) error {
	_, err := p.cw.PutDashboard(ctx, &cloudwatch.PutDashboardInput{
		DashboardName: aws.String(name),
		DashboardBody: aws.String(body),
	})
	p.call("cloudwatch", "PutDashboard", err)
	if err != nil {
		return fmt.Errorf("failed to put dashboard %s: %w", name, err)
	}
	return nil
}

func (p *AWS) PutMetricAlarm(ctx context.Context, alarm Alarm) error {
	input := &cloudwatch.PutMetricAlarmInput{
		AlarmName:          aws.String(alarm.Name),
		AlarmDescription:   aws.String(alarm.Description),
		Namespace:          aws.String(alarm.Namespace),
		MetricName:         aws.String(alarm.MetricName),
		Statistic:          cwtypes.Statistic(alarm.Statistic),
		Threshold:          aws.Float64(alarm.Threshold),
		ComparisonOperator: cwtypes.ComparisonOperator(alarm.ComparisonOperator),
		EvaluationPeriods:  aws.Int32(alarm.EvaluationPeriods),
		Period:             aws.Int32(alarm.PeriodSeconds),
	}
	if alarm.TopicARN != "" {
		input.AlarmActions = []string{alarm.TopicARN}
	}

	_, err := p.cw.PutMetricAlarm(ctx, input)
	p.call("cloudwatch", "PutMetricAlarm", err)
	if err != nil {
		return fmt.Errorf("failed to put alarm %s: %w", alarm.Name, err)
	}
	return nil
}

// TagResources applies the uniform tag set to EC2-taggable resources.
// IAM, SNS, and CloudWatch resources receive their tags at creation
// through their own APIs, so only EC2 identifiers are tagged here.
func (p *AWS) TagResources(ctx context.Context, resources []engine.Resource, tags map[string]string) error {
	ids := make([]string, 0, len(resources))
	for _, r := range resources {
		switch r.Type {
		case "vpc", "subnet", "security-group":
			ids = append(ids, r.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	ec2Tags := make([]ec2types.Tag, 0, len(tags))
	for k, v := range tags {
		ec2Tags = append(ec2Tags, ec2types.Tag{Key: aws.String(k), Value: aws.String(v)})
	}

	_, err := p.ec2.CreateTags(ctx, &ec2.CreateTagsInput{
		Resources: ids,
		Tags:      ec2Tags,
	})
	p.call("ec2", "CreateTags", err)
	if err != nil {
		return fmt.Errorf("failed to tag resources: %w", err)
	}
	return nil
}
