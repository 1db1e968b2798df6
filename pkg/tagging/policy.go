// Package tagging derives the uniform tag set applied to every
// provisioned resource.
package tagging

import (
	"sort"

	"github.com/optstrat/infra/pkg/config"
)

// Criticality tag values by environment.
const (
	CriticalityHigh   = "High"
	CriticalityMedium = "Medium"
	CriticalityLow    = "Low"
)

// Policy computes the full tag set for an environment. The set is the
// resolved configuration's base tags plus per-environment operational
// tags; base tags win on collision so operators can override through
// configuration.
type Policy struct{}

// NewPolicy creates the tagging policy.
func NewPolicy() *Policy {
	return &Policy{}
}

// TagSet returns the complete tag map for cfg.
func (p *Policy) TagSet(cfg *config.EnvironmentConfig) map[string]string {
	tags := make(map[string]string, len(cfg.ResourceTags)+3)

	switch cfg.Environment {
	case config.EnvProd:
		tags["Criticality"] = CriticalityHigh
		tags["BackupRequired"] = "True"
	case config.EnvStaging:
		tags["Criticality"] = CriticalityMedium
		tags["BackupRequired"] = "False"
	default:
		tags["Criticality"] = CriticalityLow
		tags["BackupRequired"] = "False"
		tags["AutoShutdown"] = "True"
	}

	for k, v := range cfg.ResourceTags {
		tags[k] = v
	}

	return tags
}

// Keys returns the tag keys for cfg in sorted order. The CLI uses it
// for stable display.
func (p *Policy) Keys(cfg *config.EnvironmentConfig) []string {
	tags := p.TagSet(cfg)
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
