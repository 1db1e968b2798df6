package config

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// Overlay carries the per-run override knobs an operator may supply on
// top of an environment preset. Only additive, low-blast-radius fields
// are overridable; environment identity, region, and the address block
// are fixed by the presets and the compliance rules.
type Overlay struct {
	// FeatureFlags override or extend the preset feature flags.
	FeatureFlags map[string]bool `json:"feature_flags,omitempty"`

	// CustomParameters override or extend the preset custom parameters.
	CustomParameters map[string]string `json:"custom_parameters,omitempty"`

	// ResourceTags override or extend the preset tag set.
	ResourceTags map[string]string `json:"resource_tags,omitempty"`

	// AlarmNotificationEmail overrides the alarm subscription address.
	AlarmNotificationEmail string `json:"alarm_notification_email,omitempty"`
}

// overlaySchema constrains what an overlay file may contain. Unknown
// top-level fields are rejected by the closed struct.
const overlaySchema = `
#Overlay: close({
	feature_flags?: {[string]: bool}
	custom_parameters?: {[string]: string}
	resource_tags?: {[string]: string}
	alarm_notification_email?: string
})
`

// LoadOverlay parses and validates a CUE overlay file.
func LoadOverlay(path string) (*Overlay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read overlay file: %w", err)
	}

	ctx := cuecontext.New()

	schema := ctx.CompileString(overlaySchema)
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile overlay schema: %w", err)
	}

	val := ctx.CompileBytes(data, cue.Filename(path))
	if err := val.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse overlay %s: %w", path, err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Overlay")).Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("overlay %s failed schema validation: %w", path, err)
	}

	var overlay Overlay
	if err := unified.Decode(&overlay); err != nil {
		return nil, fmt.Errorf("failed to decode overlay %s: %w", path, err)
	}

	return &overlay, nil
}

// Apply merges the overlay into a resolved configuration. Overlay
// entries win on key collisions; everything else is untouched.
func (o *Overlay) Apply(cfg *EnvironmentConfig) {
	for k, v := range o.FeatureFlags {
		cfg.FeatureFlags[k] = v
	}
	for k, v := range o.CustomParameters {
		cfg.CustomParameters[k] = v
	}
	for k, v := range o.ResourceTags {
		cfg.ResourceTags[k] = v
	}
	if o.AlarmNotificationEmail != "" {
		cfg.Monitoring.AlarmNotificationEmail = o.AlarmNotificationEmail
	}
}
