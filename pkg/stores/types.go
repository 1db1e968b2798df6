package stores

import (
	"time"
)

// RunRecord is one persisted synthesis run.
type RunRecord struct {
	// ID is the run identifier (UUID).
	ID string `json:"id"`

	// Environment is the environment that was synthesized.
	Environment string `json:"environment"`

	// Status is the terminal run status (succeeded, failed).
	Status string `json:"status"`

	// ModuleOrder is the execution order, JSON-encoded.
	ModuleOrder string `json:"module_order"`

	// Resources is the per-module resource count map, JSON-encoded.
	Resources string `json:"resources"`

	// Registry is the final registry snapshot, JSON-encoded.
	Registry string `json:"registry"`

	// Findings is the validation report, JSON-encoded. Empty for
	// successful runs.
	Findings string `json:"findings"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// CompletedAt is when the run finished.
	CompletedAt time.Time `json:"completed_at"`

	// CreatedAt is when the record was written.
	CreatedAt time.Time `json:"created_at"`
}
