package tagging

import (
	"testing"

	"github.com/optstrat/infra/pkg/config"
)

func resolve(t *testing.T, env string) *config.EnvironmentConfig {
	t.Helper()
	cfg, err := config.Resolve(env)
	if err != nil {
		t.Fatalf("Resolve(%q) error = %v", env, err)
	}
	return cfg
}

func TestTagSet_PerEnvironment(t *testing.T) {
	tests := []struct {
		env  string
		want map[string]string
	}{
		{
			env: "dev",
			want: map[string]string{
				"Criticality":    CriticalityLow,
				"BackupRequired": "False",
				"AutoShutdown":   "True",
			},
		},
		{
			env: "staging",
			want: map[string]string{
				"Criticality":    CriticalityMedium,
				"BackupRequired": "False",
			},
		},
		{
			env: "prod",
			want: map[string]string{
				"Criticality":    CriticalityHigh,
				"BackupRequired": "True",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			tags := NewPolicy().TagSet(resolve(t, tt.env))
			for k, v := range tt.want {
				if tags[k] != v {
					t.Errorf("tags[%q] = %q, want %q", k, tags[k], v)
				}
			}
			if tt.env != "dev" {
				if _, ok := tags["AutoShutdown"]; ok {
					t.Errorf("%s tags include AutoShutdown", tt.env)
				}
			}
		})
	}
}

func TestTagSet_IncludesBaseTags(t *testing.T) {
	cfg := resolve(t, "prod")
	tags := NewPolicy().TagSet(cfg)

	for k, v := range cfg.ResourceTags {
		if tags[k] != v {
			t.Errorf("tags[%q] = %q, want base tag %q", k, tags[k], v)
		}
	}
	if tags["DataResidency"] != "india" {
		t.Errorf("tags[DataResidency] = %q, want %q", tags["DataResidency"], "india")
	}
}

func TestTagSet_BaseTagsWinOnCollision(t *testing.T) {
	cfg := resolve(t, "dev")
	cfg.ResourceTags["Criticality"] = "Sandbox"

	tags := NewPolicy().TagSet(cfg)
	if tags["Criticality"] != "Sandbox" {
		t.Errorf("tags[Criticality] = %q, want %q", tags["Criticality"], "Sandbox")
	}
}
