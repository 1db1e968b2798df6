package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

const testRego = `# Blocks shield-less production load balancers
package optstrat.policies.custom

import rego.v1

deny contains violation if {
	input.config.env_name == "prod"
	input.config.security.enable_shield == false
	violation := {
		"message": "production requires Shield Advanced",
		"severity": "error",
	}
}
`

func TestLoadFromPaths_Rego(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shield-required.rego")
	if err := os.WriteFile(path, []byte(testRego), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	loader := NewLoader(zerolog.Nop())
	policies, err := loader.LoadFromPaths(context.Background(), []string{dir})
	if err != nil {
		t.Fatalf("LoadFromPaths() error = %v", err)
	}

	if len(policies) != 1 {
		t.Fatalf("loaded %d policies, want 1", len(policies))
	}
	p := policies[0]
	if p.Name != "shield-required" {
		t.Errorf("Name = %q, want %q", p.Name, "shield-required")
	}
	if p.Description == "" {
		t.Error("description not extracted from leading comment")
	}
	if !p.Enabled {
		t.Error("loaded policy not enabled")
	}
}

func TestLoadFromPaths_JSON(t *testing.T) {
	dir := t.TempDir()
	doc := `{
  "name": "no-public-db",
  "description": "Database tier must never be exposed",
  "severity": "critical",
  "enabled": true,
  "rego": "package optstrat.policies.db\n\nimport rego.v1\n\ndeny contains v if {\n\tfalse\n\tv := {\"message\": \"unreachable\"}\n}\n"
}`
	path := filepath.Join(dir, "no-public-db.json")
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	loader := NewLoader(zerolog.Nop())
	policies, err := loader.LoadFromPaths(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("LoadFromPaths() error = %v", err)
	}

	if len(policies) != 1 {
		t.Fatalf("loaded %d policies, want 1", len(policies))
	}
	if policies[0].Severity != SeverityCritical {
		t.Errorf("Severity = %q, want %q", policies[0].Severity, SeverityCritical)
	}
}

func TestLoadFromPaths_SkipsUnknownFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a policy"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	loader := NewLoader(zerolog.Nop())
	policies, err := loader.LoadFromPaths(context.Background(), []string{dir})
	if err != nil {
		t.Fatalf("LoadFromPaths() error = %v", err)
	}
	if len(policies) != 0 {
		t.Errorf("loaded %d policies from non-policy files, want 0", len(policies))
	}
}

func TestEngine_LoadCustomPolicy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shield-required.rego")
	if err := os.WriteFile(path, []byte(testRego), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	e := newEngine(t)
	if err := e.LoadPolicies(context.Background(), []string{dir}); err != nil {
		t.Fatalf("LoadPolicies() error = %v", err)
	}

	cfg := resolve(t, "prod")
	cfg.Security.EnableShield = false

	result, err := e.Evaluate(context.Background(), cfg, "synth", true)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if result.Allowed {
		t.Errorf("custom policy did not block: %+v", result)
	}
}
