package policy

import (
	"time"
)

// GetBuiltinPolicies returns the built-in compliance guardrails.
func GetBuiltinPolicies() []Policy {
	return []Policy{
		dataResidencyPolicy(),
		productionHardeningPolicy(),
		tagHygienePolicy(),
		costGuardrailPolicy(),
	}
}

// dataResidencyPolicy pins every deployment to the Indian market
// compliance region.
func dataResidencyPolicy() Policy {
	return Policy{
		Name:        "data-residency",
		Description: "Deployments and data residency must stay in ap-south-1",
		Severity:    SeverityCritical,
		Enabled:     true,
		Tags:        []string{"compliance", "residency"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package optstrat.policies.residency

import rego.v1

deny contains violation if {
	input.config.aws_region != "ap-south-1"
	violation := {
		"message": sprintf("deployment region %s violates Indian data residency, only ap-south-1 is permitted", [input.config.aws_region]),
		"severity": "critical",
	}
}

deny contains violation if {
	input.config.compliance.data_residency_region != "ap-south-1"
	violation := {
		"message": sprintf("data residency region %s violates Indian market compliance", [input.config.compliance.data_residency_region]),
		"severity": "critical",
	}
}

deny contains violation if {
	input.config.compliance.enable_cross_region_backup == true
	violation := {
		"message": "cross-region backup is enabled, the destination must stay within India (ap-south-2)",
		"severity": "warning",
	}
}`,
	}
}

// productionHardeningPolicy blocks weakened production postures.
func productionHardeningPolicy() Policy {
	return Policy{
		Name:        "production-hardening",
		Description: "Production must keep WAF, deletion protection, and audit logging on",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"security", "production"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package optstrat.policies.hardening

import rego.v1

is_prod if input.config.env_name == "prod"

deny contains violation if {
	is_prod
	input.config.security.enable_waf == false
	violation := {
		"message": "production requires WAF protection",
		"severity": "error",
	}
}

deny contains violation if {
	is_prod
	input.config.compliance.enable_deletion_protection == false
	violation := {
		"message": "production requires deletion protection",
		"severity": "error",
	}
}

deny contains violation if {
	is_prod
	input.config.compliance.enable_audit_logging == false
	violation := {
		"message": "production requires audit logging",
		"severity": "error",
	}
}

deny contains violation if {
	is_prod
	input.config.security.enable_encryption_at_rest == false
	violation := {
		"message": "production requires encryption at rest",
		"severity": "error",
	}
}`,
	}
}

// tagHygienePolicy warns when the cost attribution tags are missing.
func tagHygienePolicy() Policy {
	return Policy{
		Name:        "tag-hygiene",
		Description: "Every environment must carry the cost attribution tag set",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"tagging", "cost"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package optstrat.policies.tags

import rego.v1

required_tags := {"Project", "Environment", "CostCenter", "DataResidency"}

deny contains violation if {
	some tag in required_tags
	not input.config.resource_tags[tag]
	violation := {
		"message": sprintf("required resource tag %s is not set", [tag]),
		"severity": "warning",
	}
}`,
	}
}

// costGuardrailPolicy warns about oversized development environments.
func costGuardrailPolicy() Policy {
	return Policy{
		Name:        "cost-guardrails",
		Description: "Development environments should stay on the cost-optimized footprint",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"cost", "development"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package optstrat.policies.cost

import rego.v1

is_dev if input.config.env_name == "dev"

deny contains violation if {
	is_dev
	input.config.cost_optimization.enable_spot_instances == false
	violation := {
		"message": "development should use spot instances to control cost",
		"severity": "warning",
	}
}

deny contains violation if {
	is_dev
	input.config.resources.lambda_memory_size > 1024
	violation := {
		"message": sprintf("development lambda memory %dMB exceeds the cost-optimized 1024MB ceiling", [input.config.resources.lambda_memory_size]),
		"severity": "warning",
	}
}

deny contains violation if {
	is_dev
	input.config.networking.max_azs > 2
	violation := {
		"message": sprintf("development spans %d AZs, 2 is the cost-optimized footprint", [input.config.networking.max_azs]),
		"severity": "warning",
	}
}`,
	}
}
