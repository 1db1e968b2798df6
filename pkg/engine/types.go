package engine

import (
	"context"
	"time"

	"github.com/optstrat/infra/pkg/config"
)

// Resource is a handle to one provisioned cloud resource. Modules
// return the handles they produced so the orchestrator can apply the
// uniform tag set after the module completes.
type Resource struct {
	// ID is the cloud identifier (ARN or ID) of the resource.
	ID string `json:"id"`

	// Type is the resource type (e.g., "ec2.vpc", "iam.role").
	Type string `json:"type"`

	// Name is the human-readable resource name.
	Name string `json:"name"`
}

// Inputs is the read-only view of upstream outputs a module receives:
// one logical-name→value map per declared dependency, keyed by the
// upstream module's name. Modules must not write through this view.
type Inputs map[string]map[string]string

// Module is a unit of resource production. Each module is synthesized
// exactly once per run, in the order fixed by the dependency graph.
type Module interface {
	// Name is the module's unique identifier. It is also the module's
	// exclusively owned registry sub-namespace.
	Name() string

	// DependsOn lists the upstream modules whose outputs this module
	// consumes. Targets must exist in the registered module set.
	DependsOn() []string

	// Synthesize produces the module's resources, reading upstream
	// values from inputs and writing its output contract to reg. It
	// returns the handles of every resource it created.
	Synthesize(ctx context.Context, cfg *config.EnvironmentConfig, inputs Inputs, reg *OutputRegistry) ([]Resource, error)
}

// RunStatus is the terminal status of a synthesis run.
type RunStatus string

const (
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// RunResult summarizes one completed synthesis run.
type RunResult struct {
	// RunID uniquely identifies this synthesis run.
	RunID string `json:"run_id"`

	// Environment is the environment that was synthesized.
	Environment string `json:"environment"`

	// Status is the terminal run status.
	Status RunStatus `json:"status"`

	// Order is the module execution order that was used.
	Order []string `json:"order"`

	// Resources counts the resources produced per module.
	Resources map[string]int `json:"resources"`

	// Registry is the final registry content.
	Registry map[string]string `json:"registry"`

	// StartedAt and CompletedAt bound the run.
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}
