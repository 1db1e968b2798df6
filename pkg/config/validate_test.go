package config

import (
	"strings"
	"testing"
)

func mustResolve(t *testing.T, name string) *EnvironmentConfig {
	t.Helper()
	cfg, err := Resolve(name)
	if err != nil {
		t.Fatalf("Resolve(%q) returned error: %v", name, err)
	}
	return cfg
}

func findingsContain(findings []string, substr string) bool {
	for _, f := range findings {
		if strings.Contains(f, substr) {
			return true
		}
	}
	return false
}

func TestValidate_ShippedPresetsAreValid(t *testing.T) {
	v := NewValidator()
	for _, name := range Environments() {
		t.Run(name, func(t *testing.T) {
			cfg := mustResolve(t, name)
			if findings := v.Validate(cfg); len(findings) != 0 {
				t.Errorf("Expected no findings for %s preset, got: %v", name, findings)
			}
		})
	}
}

func TestValidate_WrongRegion(t *testing.T) {
	v := NewValidator()
	cfg := mustResolve(t, "dev")
	cfg.Region = "us-east-1"

	findings := v.Validate(cfg)
	if !findingsContain(findings, "AWS region must be ap-south-1") {
		t.Errorf("Expected region finding, got: %v", findings)
	}
}

func TestValidate_WrongCIDRPrefix(t *testing.T) {
	v := NewValidator()
	cfg := mustResolve(t, "staging")
	cfg.Networking.VPCCIDR = "10.1.0.0/24"

	findings := v.Validate(cfg)
	if !findingsContain(findings, "VPC CIDR should use /16") {
		t.Errorf("Expected CIDR finding, got: %v", findings)
	}
}

func TestValidate_ProdZoneCountBoundary(t *testing.T) {
	v := NewValidator()

	cfg := mustResolve(t, "prod")
	cfg.Networking.MaxAZs = 2
	findings := v.Validate(cfg)
	if !findingsContain(findings, "at least 3 AZs") {
		t.Errorf("Expected zone-count finding at 2 AZs, got: %v", findings)
	}

	cfg = mustResolve(t, "prod")
	cfg.Networking.MaxAZs = 3
	findings = v.Validate(cfg)
	if findingsContain(findings, "at least 3 AZs") {
		t.Errorf("Did not expect zone-count finding at 3 AZs, got: %v", findings)
	}
}

func TestValidate_ProdRulesCollectAllFindings(t *testing.T) {
	v := NewValidator()
	cfg := mustResolve(t, "prod")
	cfg.Networking.MaxAZs = 2
	cfg.Security.EnableWAF = false
	cfg.Compliance.EnableDeletionProtection = false
	cfg.Monitoring.LogRetentionDays = 30
	cfg.Resources.LambdaMemoryMB = 512

	findings := v.Validate(cfg)
	if len(findings) != 5 {
		t.Fatalf("Expected 5 findings, got %d: %v", len(findings), findings)
	}

	for _, want := range []string{
		"at least 3 AZs",
		"enable WAF",
		"deletion protection",
		"at least 90 days",
		"at least 1024MB memory",
	} {
		if !findingsContain(findings, want) {
			t.Errorf("Expected a finding containing %q, got: %v", want, findings)
		}
	}
}

func TestValidate_ProdRulesDoNotApplyToDev(t *testing.T) {
	v := NewValidator()
	cfg := mustResolve(t, "dev")
	cfg.Security.EnableWAF = false
	cfg.Monitoring.LogRetentionDays = 7

	if findings := v.Validate(cfg); len(findings) != 0 {
		t.Errorf("Expected no findings for dev, got: %v", findings)
	}
}

func TestValidate_StructuralFindings(t *testing.T) {
	v := NewValidator()
	cfg := mustResolve(t, "dev")
	cfg.Monitoring.AlarmNotificationEmail = "not-an-email"

	findings := v.Validate(cfg)
	if !findingsContain(findings, "AlarmNotificationEmail") {
		t.Errorf("Expected structural finding for bad email, got: %v", findings)
	}
}
