package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeOverlayFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "overrides.cue")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write overlay file: %v", err)
	}
	return path
}

func TestLoadOverlay_ValidFile(t *testing.T) {
	path := writeOverlayFile(t, `
feature_flags: {
	enable_test_data: false
}
custom_parameters: {
	cache_ttl: "600"
}
resource_tags: {
	Team: "quant-research"
}
alarm_notification_email: "oncall@example.com"
`)

	overlay, err := LoadOverlay(path)
	if err != nil {
		t.Fatalf("LoadOverlay returned error: %v", err)
	}

	cfg := mustResolve(t, "dev")
	overlay.Apply(cfg)

	if cfg.FeatureFlags["enable_test_data"] {
		t.Error("Expected enable_test_data flag to be overridden to false")
	}
	if cfg.CustomParameters["cache_ttl"] != "600" {
		t.Errorf("Expected cache_ttl override, got %q", cfg.CustomParameters["cache_ttl"])
	}
	if cfg.ResourceTags["Team"] != "quant-research" {
		t.Errorf("Expected Team tag, got %q", cfg.ResourceTags["Team"])
	}
	if cfg.Monitoring.AlarmNotificationEmail != "oncall@example.com" {
		t.Errorf("Expected alarm email override, got %q", cfg.Monitoring.AlarmNotificationEmail)
	}

	// Untouched preset values survive the merge.
	if cfg.CustomParameters["debug_mode"] != "true" {
		t.Errorf("Expected preset debug_mode to survive, got %q", cfg.CustomParameters["debug_mode"])
	}
}

func TestLoadOverlay_RejectsUnknownFields(t *testing.T) {
	path := writeOverlayFile(t, `
aws_region: "us-east-1"
`)

	if _, err := LoadOverlay(path); err == nil {
		t.Fatal("Expected schema validation error for unknown field")
	}
}

func TestLoadOverlay_RejectsWrongTypes(t *testing.T) {
	path := writeOverlayFile(t, `
feature_flags: {
	enable_test_data: "yes"
}
`)

	if _, err := LoadOverlay(path); err == nil {
		t.Fatal("Expected schema validation error for non-bool flag")
	}
}

func TestLoadOverlay_MissingFile(t *testing.T) {
	if _, err := LoadOverlay(filepath.Join(t.TempDir(), "absent.cue")); err == nil {
		t.Fatal("Expected error for missing overlay file")
	}
}
