package config

import (
	"os"
	"sort"
)

// EnvVarName is the process environment variable consulted when no
// environment is passed explicitly.
const EnvVarName = "STRAT_ENVIRONMENT"

// UnknownEnvironmentError is returned when an environment identifier is
// not in the closed set. It carries the valid identifiers so callers
// can produce a useful diagnostic.
type UnknownEnvironmentError struct {
	Name      string
	Supported []string
}

// Error implements the error interface.
func (e *UnknownEnvironmentError) Error() string {
	msg := "unsupported environment: " + e.Name + " (supported:"
	for _, s := range e.Supported {
		msg += " " + s
	}
	return msg + ")"
}

// Each environment preset is fully explicit. There is deliberately no
// inheritance or diffing between presets: a reviewer must be able to
// read one environment's complete posture in one place.
var environmentPresets = map[Environment]func() *EnvironmentConfig{
	EnvDev:     devConfig,
	EnvStaging: stagingConfig,
	EnvProd:    prodConfig,
}

// Resolve returns the fully populated configuration for the named
// environment. An empty name falls back to the STRAT_ENVIRONMENT
// process variable and then to "dev". Unknown names return
// *UnknownEnvironmentError.
func Resolve(name string) (*EnvironmentConfig, error) {
	if name == "" {
		name = os.Getenv(EnvVarName)
	}
	if name == "" {
		name = string(EnvDev)
	}

	preset, ok := environmentPresets[Environment(name)]
	if !ok {
		return nil, &UnknownEnvironmentError{
			Name:      name,
			Supported: Environments(),
		}
	}

	cfg := preset()
	if cfg.ResourceTags == nil {
		cfg.ResourceTags = defaultResourceTags(cfg.Environment, cfg.Region)
	}
	if cfg.FeatureFlags == nil {
		cfg.FeatureFlags = defaultFeatureFlags(cfg.Environment)
	}
	if cfg.CustomParameters == nil {
		cfg.CustomParameters = map[string]string{}
	}
	return cfg, nil
}

// Environments returns the closed set of supported environment names,
// sorted for stable diagnostics.
func Environments() []string {
	names := make([]string, 0, len(environmentPresets))
	for env := range environmentPresets {
		names = append(names, string(env))
	}
	sort.Strings(names)
	return names
}

func devConfig() *EnvironmentConfig {
	return &EnvironmentConfig{
		Environment: EnvDev,
		AccountID:   os.Getenv("AWS_ACCOUNT_ID"),
		Region:      ComplianceRegion,
		Networking: NetworkingConfig{
			VPCCIDR:            "10.0.0.0/16",
			MaxAZs:             2,
			EnableNATGateway:   true, // single NAT keeps dev cheap
			EnableDNSHostnames: true,
			EnableDNSSupport:   true,
			EnableFlowLogs:     true,
		},
		Security: SecurityConfig{
			EnableWAF:                 false,
			EnableShield:              false,
			EnableStrictNACLs:         false,
			EnableVPCEndpoints:        false,
			EnableEncryptionAtRest:    true,
			EnableEncryptionInTransit: true,
			KMSKeyRotation:            true,
		},
		Monitoring: MonitoringConfig{
			LogRetentionDays:         7,
			EnableDetailedMonitoring: false,
			EnableXRayTracing:        true,
			EnableEnhancedMonitoring: false,
			AlarmNotificationEmail:   os.Getenv("DEV_NOTIFICATION_EMAIL"),
			EnableCostAlerts:         true,
		},
		Resources: ResourceConfig{
			LambdaMemoryMB:    512,
			LambdaTimeoutSecs: 30,
			ECSCPU:            256,
			ECSMemoryMB:       512,
			RDSInstanceClass:  "db.t3.micro",
			RDSAllocatedGB:    20,
			ElastiCacheNode:   "cache.t3.micro",
		},
		Compliance: ComplianceConfig{
			DataResidencyRegion:      ComplianceRegion,
			EnableAuditLogging:       true,
			BackupRetentionDays:      7,
			EnableCrossRegionBackup:  false,
			EnablePITR:               true,
			EnableDeletionProtection: false,
		},
		CostOptimization: CostOptimizationConfig{
			EnableSpotInstances:     true,
			EnableScheduledScaling:  false,
			EnableLifecyclePolicies: true,
			EnableRightSizing:       false,
			BackupTransitionDays:    30,
		},
		CustomParameters: map[string]string{
			"debug_mode":       "true",
			"log_level":        "DEBUG",
			"enable_test_data": "true",
		},
	}
}

func stagingConfig() *EnvironmentConfig {
	return &EnvironmentConfig{
		Environment: EnvStaging,
		AccountID:   os.Getenv("AWS_ACCOUNT_ID"),
		Region:      ComplianceRegion,
		Networking: NetworkingConfig{
			VPCCIDR:            "10.1.0.0/16",
			MaxAZs:             2,
			EnableNATGateway:   true,
			EnableDNSHostnames: true,
			EnableDNSSupport:   true,
			EnableFlowLogs:     true,
		},
		Security: SecurityConfig{
			EnableWAF:                 true,
			EnableShield:              false,
			EnableStrictNACLs:         true,
			EnableVPCEndpoints:        true,
			EnableEncryptionAtRest:    true,
			EnableEncryptionInTransit: true,
			KMSKeyRotation:            true,
		},
		Monitoring: MonitoringConfig{
			LogRetentionDays:         30,
			EnableDetailedMonitoring: true,
			EnableXRayTracing:        true,
			EnableEnhancedMonitoring: true,
			AlarmNotificationEmail:   os.Getenv("STAGING_NOTIFICATION_EMAIL"),
			EnableCostAlerts:         true,
		},
		Resources: ResourceConfig{
			LambdaMemoryMB:    1024,
			LambdaTimeoutSecs: 60,
			ECSCPU:            512,
			ECSMemoryMB:       1024,
			RDSInstanceClass:  "db.t3.small",
			RDSAllocatedGB:    50,
			ElastiCacheNode:   "cache.t3.small",
		},
		Compliance: ComplianceConfig{
			DataResidencyRegion:      ComplianceRegion,
			EnableAuditLogging:       true,
			BackupRetentionDays:      30,
			EnableCrossRegionBackup:  true,
			EnablePITR:               true,
			EnableDeletionProtection: true,
		},
		CostOptimization: CostOptimizationConfig{
			EnableSpotInstances:     false,
			EnableScheduledScaling:  true,
			EnableLifecyclePolicies: true,
			EnableRightSizing:       true,
			BackupTransitionDays:    30,
		},
		CustomParameters: map[string]string{
			"debug_mode":       "false",
			"log_level":        "INFO",
			"enable_test_data": "false",
			"cache_ttl":        "3600",
		},
	}
}

func prodConfig() *EnvironmentConfig {
	return &EnvironmentConfig{
		Environment: EnvProd,
		AccountID:   os.Getenv("AWS_ACCOUNT_ID"),
		Region:      ComplianceRegion,
		Networking: NetworkingConfig{
			VPCCIDR:            "10.2.0.0/16",
			MaxAZs:             3, // high availability
			EnableNATGateway:   true,
			EnableDNSHostnames: true,
			EnableDNSSupport:   true,
			EnableFlowLogs:     true,
		},
		Security: SecurityConfig{
			EnableWAF:                 true,
			EnableShield:              true,
			EnableStrictNACLs:         true,
			EnableVPCEndpoints:        true,
			EnableEncryptionAtRest:    true,
			EnableEncryptionInTransit: true,
			KMSKeyRotation:            true,
		},
		Monitoring: MonitoringConfig{
			LogRetentionDays:         90,
			EnableDetailedMonitoring: true,
			EnableXRayTracing:        true,
			EnableEnhancedMonitoring: true,
			AlarmNotificationEmail:   os.Getenv("PROD_NOTIFICATION_EMAIL"),
			EnableCostAlerts:         true,
		},
		Resources: ResourceConfig{
			LambdaMemoryMB:    2048,
			LambdaTimeoutSecs: 300,
			ECSCPU:            2048,
			ECSMemoryMB:       4096,
			RDSInstanceClass:  "db.r5.large",
			RDSAllocatedGB:    200,
			ElastiCacheNode:   "cache.r5.large",
		},
		Compliance: ComplianceConfig{
			DataResidencyRegion:      ComplianceRegion,
			EnableAuditLogging:       true,
			BackupRetentionDays:      90,
			EnableCrossRegionBackup:  true,
			EnablePITR:               true,
			EnableDeletionProtection: true,
		},
		CostOptimization: CostOptimizationConfig{
			EnableSpotInstances:     false,
			EnableScheduledScaling:  true,
			EnableLifecyclePolicies: true,
			EnableRightSizing:       true,
			BackupTransitionDays:    30,
		},
		CustomParameters: map[string]string{
			"debug_mode":                "false",
			"log_level":                 "WARN",
			"enable_test_data":          "false",
			"cache_ttl":                 "7200",
			"max_retry_attempts":        "3",
			"circuit_breaker_threshold": "50",
		},
	}
}
