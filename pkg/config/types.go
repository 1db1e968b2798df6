package config

import (
	"fmt"
	"strings"
)

// Environment identifies a deployment environment. The set is closed:
// every supported environment has a fully explicit preset table in
// environments.go and nothing else resolves.
type Environment string

const (
	// EnvDev is the development environment.
	EnvDev Environment = "dev"

	// EnvStaging is the staging environment.
	EnvStaging Environment = "staging"

	// EnvProd is the production environment.
	EnvProd Environment = "prod"
)

// ComplianceRegion is the only region the platform deploys to.
// Indian market data residency requirements pin everything to Mumbai.
const ComplianceRegion = "ap-south-1"

// NetworkingConfig describes the VPC layout for an environment.
type NetworkingConfig struct {
	// VPCCIDR is the address block for the VPC. Must be a /16.
	VPCCIDR string `json:"vpc_cidr" validate:"required,cidrv4"`

	// MaxAZs is the number of availability zones to spread across.
	MaxAZs int `json:"max_azs" validate:"required,min=1,max=6"`

	// EnableNATGateway controls outbound connectivity for private subnets.
	EnableNATGateway bool `json:"enable_nat_gateway"`

	EnableDNSHostnames bool `json:"enable_dns_hostnames"`
	EnableDNSSupport   bool `json:"enable_dns_support"`
	EnableFlowLogs     bool `json:"enable_flow_logs"`
}

// SecurityConfig holds the security posture toggles for an environment.
type SecurityConfig struct {
	EnableWAF          bool `json:"enable_waf"`
	EnableShield       bool `json:"enable_shield"`
	EnableStrictNACLs  bool `json:"enable_strict_nacls"`
	EnableVPCEndpoints bool `json:"enable_vpc_endpoints"`

	EnableEncryptionAtRest    bool `json:"enable_encryption_at_rest"`
	EnableEncryptionInTransit bool `json:"enable_encryption_in_transit"`
	KMSKeyRotation            bool `json:"kms_key_rotation"`
}

// MonitoringConfig holds logging and observability settings.
type MonitoringConfig struct {
	// LogRetentionDays applies to every log group the platform creates.
	LogRetentionDays int `json:"log_retention_days" validate:"required,min=1"`

	EnableDetailedMonitoring bool `json:"enable_detailed_monitoring"`
	EnableXRayTracing        bool `json:"enable_xray_tracing"`
	EnableEnhancedMonitoring bool `json:"enable_enhanced_monitoring"`

	// AlarmNotificationEmail, when set, is subscribed to the critical
	// alerts topic.
	AlarmNotificationEmail string `json:"alarm_notification_email,omitempty" validate:"omitempty,email"`

	EnableCostAlerts bool `json:"enable_cost_alerts"`
}

// ResourceConfig sizes the compute workloads per environment.
type ResourceConfig struct {
	LambdaMemoryMB    int    `json:"lambda_memory_size" validate:"required,min=128,max=10240"`
	LambdaTimeoutSecs int    `json:"lambda_timeout" validate:"required,min=1,max=900"`
	ECSCPU            int    `json:"ecs_cpu" validate:"required,min=256"`
	ECSMemoryMB       int    `json:"ecs_memory" validate:"required,min=512"`
	RDSInstanceClass  string `json:"rds_instance_class" validate:"required"`
	RDSAllocatedGB    int    `json:"rds_allocated_storage" validate:"required,min=20"`
	ElastiCacheNode   string `json:"elasticache_node_type" validate:"required"`
}

// ComplianceConfig holds regulatory settings.
type ComplianceConfig struct {
	// DataResidencyRegion must match the compliance region.
	DataResidencyRegion string `json:"data_residency_region" validate:"required"`

	EnableAuditLogging       bool `json:"enable_audit_logging"`
	BackupRetentionDays      int  `json:"backup_retention_days" validate:"required,min=1"`
	EnableCrossRegionBackup  bool `json:"enable_cross_region_backup"`
	EnablePITR               bool `json:"enable_point_in_time_recovery"`
	EnableDeletionProtection bool `json:"enable_deletion_protection"`
}

// CostOptimizationConfig holds cost control toggles.
type CostOptimizationConfig struct {
	EnableSpotInstances     bool `json:"enable_spot_instances"`
	EnableScheduledScaling  bool `json:"enable_scheduled_scaling"`
	EnableLifecyclePolicies bool `json:"enable_lifecycle_policies"`
	EnableRightSizing       bool `json:"enable_resource_right_sizing"`

	// BackupTransitionDays is when backups move to cold storage.
	BackupTransitionDays int `json:"backup_lifecycle_transition_days" validate:"min=0"`
}

// EnvironmentConfig is the fully resolved configuration for one
// environment. It is built once by Resolve and treated as read-only by
// everything downstream; modules never mutate it.
type EnvironmentConfig struct {
	// Environment is the environment this configuration belongs to.
	Environment Environment `json:"env_name" validate:"required,oneof=dev staging prod"`

	// AccountID is the AWS account, taken from the caller context when
	// available. Optional.
	AccountID string `json:"aws_account,omitempty"`

	// Region is the deployment region. Always the compliance region.
	Region string `json:"aws_region" validate:"required"`

	Networking       NetworkingConfig       `json:"networking"`
	Security         SecurityConfig         `json:"security"`
	Monitoring       MonitoringConfig       `json:"monitoring"`
	Resources        ResourceConfig         `json:"resources"`
	Compliance       ComplianceConfig       `json:"compliance"`
	CostOptimization CostOptimizationConfig `json:"cost_optimization"`

	// ResourceTags are applied to every resource the platform creates.
	ResourceTags map[string]string `json:"resource_tags"`

	// FeatureFlags are published to the parameter store for the
	// application tier to consume.
	FeatureFlags map[string]bool `json:"feature_flags"`

	// CustomParameters are opaque environment-specific key/value pairs,
	// also published to the parameter store.
	CustomParameters map[string]string `json:"custom_parameters"`
}

// IsProduction reports whether this is the production environment.
func (c *EnvironmentConfig) IsProduction() bool {
	return c.Environment == EnvProd
}

// IsDevelopment reports whether this is the development environment.
func (c *EnvironmentConfig) IsDevelopment() bool {
	return c.Environment == EnvDev
}

// StackName returns the standardized deployment stack name.
func (c *EnvironmentConfig) StackName() string {
	env := string(c.Environment)
	return "OptionsStrategyPlatform-" + strings.ToUpper(env[:1]) + env[1:]
}

// ResourcePrefix returns the prefix used for every resource name.
func (c *EnvironmentConfig) ResourcePrefix() string {
	return fmt.Sprintf("options-strategy-%s", c.Environment)
}

// ParameterPrefix returns the parameter store path prefix for this
// environment.
func (c *EnvironmentConfig) ParameterPrefix() string {
	return fmt.Sprintf("/options-strategy/%s", c.Environment)
}

// LogGroupPrefix returns the CloudWatch log group prefix.
func (c *EnvironmentConfig) LogGroupPrefix() string {
	return fmt.Sprintf("/aws/options-strategy/%s", c.Environment)
}

// defaultResourceTags returns the standard tag set applied when a
// preset does not specify its own.
func defaultResourceTags(env Environment, region string) map[string]string {
	return map[string]string{
		"Project":       "OptionsStrategyPlatform",
		"Environment":   string(env),
		"Owner":         "platform-team",
		"CostCenter":    "trading-systems",
		"DataResidency": "india",
		"ManagedBy":     "stratctl",
		"Region":        region,
	}
}

// defaultFeatureFlags returns the standard feature flag set for an
// environment. Flags that gate risky rollout mechanics stay prod-only.
func defaultFeatureFlags(env Environment) map[string]bool {
	upper := env == EnvStaging || env == EnvProd
	return map[string]bool{
		"enable_api_caching":           upper,
		"enable_multi_az":              env == EnvProd,
		"enable_auto_scaling":          upper,
		"enable_blue_green_deployment": env == EnvProd,
		"enable_canary_deployment":     env == EnvProd,
		"enable_circuit_breaker":       true,
		"enable_rate_limiting":         true,
	}
}
