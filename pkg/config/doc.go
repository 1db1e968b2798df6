// Package config defines the typed environment configuration model for
// the options strategy platform: the per-environment presets (dev,
// staging, prod), the compliance validator, and optional CUE overlays
// for per-run overrides. The resolved EnvironmentConfig is immutable
// after construction and drives every synthesis module.
package config
