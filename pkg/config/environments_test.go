package config

import (
	"errors"
	"os"
	"strings"
	"testing"
)

func TestResolve_AllEnvironments(t *testing.T) {
	for _, name := range Environments() {
		t.Run(name, func(t *testing.T) {
			cfg, err := Resolve(name)
			if err != nil {
				t.Fatalf("Resolve(%q) returned error: %v", name, err)
			}

			if cfg.Region != ComplianceRegion {
				t.Errorf("Expected region %s, got %s", ComplianceRegion, cfg.Region)
			}

			if cfg.Compliance.DataResidencyRegion != ComplianceRegion {
				t.Errorf("Expected data residency region %s, got %s",
					ComplianceRegion, cfg.Compliance.DataResidencyRegion)
			}

			if !strings.HasSuffix(cfg.Networking.VPCCIDR, RequiredCIDRPrefix) {
				t.Errorf("Expected a %s CIDR, got %s", RequiredCIDRPrefix, cfg.Networking.VPCCIDR)
			}

			if len(cfg.ResourceTags) == 0 {
				t.Error("Expected default resource tags to be populated")
			}

			if len(cfg.FeatureFlags) == 0 {
				t.Error("Expected default feature flags to be populated")
			}
		})
	}
}

func TestResolve_DistinctCIDRsPerEnvironment(t *testing.T) {
	seen := make(map[string]string)
	for _, name := range Environments() {
		cfg, err := Resolve(name)
		if err != nil {
			t.Fatalf("Resolve(%q) returned error: %v", name, err)
		}
		if prev, ok := seen[cfg.Networking.VPCCIDR]; ok {
			t.Errorf("Environments %s and %s share CIDR %s", prev, name, cfg.Networking.VPCCIDR)
		}
		seen[cfg.Networking.VPCCIDR] = name
	}
}

func TestResolve_UnknownEnvironment(t *testing.T) {
	_, err := Resolve("qa")
	if err == nil {
		t.Fatal("Expected error for unknown environment")
	}

	var unknownErr *UnknownEnvironmentError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("Expected *UnknownEnvironmentError, got %T", err)
	}

	if unknownErr.Name != "qa" {
		t.Errorf("Expected offending name 'qa', got %q", unknownErr.Name)
	}

	want := []string{"dev", "prod", "staging"}
	if len(unknownErr.Supported) != len(want) {
		t.Fatalf("Expected %d supported environments, got %v", len(want), unknownErr.Supported)
	}
	for i, name := range want {
		if unknownErr.Supported[i] != name {
			t.Errorf("Supported[%d] = %q, want %q", i, unknownErr.Supported[i], name)
		}
	}
}

func TestResolve_EmptyDefaultsToDev(t *testing.T) {
	old, had := os.LookupEnv(EnvVarName)
	os.Unsetenv(EnvVarName)
	defer func() {
		if had {
			os.Setenv(EnvVarName, old)
		}
	}()

	cfg, err := Resolve("")
	if err != nil {
		t.Fatalf("Resolve(\"\") returned error: %v", err)
	}
	if cfg.Environment != EnvDev {
		t.Errorf("Expected default environment dev, got %s", cfg.Environment)
	}
}

func TestResolve_EmptyUsesProcessEnvironment(t *testing.T) {
	t.Setenv(EnvVarName, "staging")

	cfg, err := Resolve("")
	if err != nil {
		t.Fatalf("Resolve(\"\") returned error: %v", err)
	}
	if cfg.Environment != EnvStaging {
		t.Errorf("Expected staging from %s, got %s", EnvVarName, cfg.Environment)
	}
}

func TestEnvironmentConfig_DerivedNames(t *testing.T) {
	cfg, err := Resolve("prod")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	if got := cfg.StackName(); got != "OptionsStrategyPlatform-Prod" {
		t.Errorf("StackName() = %q", got)
	}
	if got := cfg.ResourcePrefix(); got != "options-strategy-prod" {
		t.Errorf("ResourcePrefix() = %q", got)
	}
	if got := cfg.ParameterPrefix(); got != "/options-strategy/prod" {
		t.Errorf("ParameterPrefix() = %q", got)
	}
	if got := cfg.LogGroupPrefix(); got != "/aws/options-strategy/prod" {
		t.Errorf("LogGroupPrefix() = %q", got)
	}
}

func TestResolve_ProdFeatureFlags(t *testing.T) {
	cfg, err := Resolve("prod")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	expectTrue := []string{
		"enable_api_caching",
		"enable_multi_az",
		"enable_auto_scaling",
		"enable_blue_green_deployment",
		"enable_canary_deployment",
		"enable_circuit_breaker",
		"enable_rate_limiting",
	}
	for _, flag := range expectTrue {
		if !cfg.FeatureFlags[flag] {
			t.Errorf("Expected prod flag %s to be true", flag)
		}
	}

	dev, _ := Resolve("dev")
	if dev.FeatureFlags["enable_multi_az"] {
		t.Error("Expected enable_multi_az to be false in dev")
	}
	if !dev.FeatureFlags["enable_circuit_breaker"] {
		t.Error("Expected enable_circuit_breaker to be true in dev")
	}
}
