package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// RequiredCIDRPrefix is the mandated VPC address block prefix length.
const RequiredCIDRPrefix = "/16"

// ProdMinAZs is the minimum availability zone count for production.
const ProdMinAZs = 3

// ProdMinLogRetentionDays is the minimum log retention for production.
const ProdMinLogRetentionDays = 90

// ProdMinLambdaMemoryMB is the memory floor for production functions.
const ProdMinLambdaMemoryMB = 1024

// Validator checks resolved environment configurations against the
// platform's compliance and production-readiness rules.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a configuration validator.
func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

// Validate returns the ordered list of findings for cfg. An empty list
// means the configuration is valid. Every applicable rule runs; nothing
// short-circuits and nothing is auto-corrected.
func (v *Validator) Validate(cfg *EnvironmentConfig) []string {
	var findings []string

	// Structural pass first: cardinal-type violations caught by the
	// struct tags become findings alongside the rule checks.
	if err := v.validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				findings = append(findings, fmt.Sprintf(
					"field %s failed %q validation (value: %v)",
					fe.Namespace(), fe.Tag(), fe.Value()))
			}
		} else {
			findings = append(findings, fmt.Sprintf("configuration is structurally invalid: %v", err))
		}
	}

	if cfg.Region != ComplianceRegion {
		findings = append(findings, fmt.Sprintf(
			"AWS region must be %s for Indian market compliance, got: %s",
			ComplianceRegion, cfg.Region))
	}

	if !strings.HasSuffix(cfg.Networking.VPCCIDR, RequiredCIDRPrefix) {
		findings = append(findings, fmt.Sprintf(
			"VPC CIDR should use %s subnet for proper IP allocation, got: %s",
			RequiredCIDRPrefix, cfg.Networking.VPCCIDR))
	}

	if cfg.IsProduction() {
		if cfg.Networking.MaxAZs < ProdMinAZs {
			findings = append(findings,
				"production environment should use at least 3 AZs for HA")
		}
		if !cfg.Security.EnableWAF {
			findings = append(findings,
				"production environment should enable WAF")
		}
		if !cfg.Compliance.EnableDeletionProtection {
			findings = append(findings,
				"production environment should enable deletion protection")
		}
		if cfg.Monitoring.LogRetentionDays < ProdMinLogRetentionDays {
			findings = append(findings,
				"production environment should retain logs for at least 90 days")
		}
		if cfg.Resources.LambdaMemoryMB < ProdMinLambdaMemoryMB {
			findings = append(findings,
				"production Lambda functions should have at least 1024MB memory")
		}
	}

	return findings
}
