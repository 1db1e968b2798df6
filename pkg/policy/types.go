package policy

import (
	"time"

	"github.com/optstrat/infra/pkg/config"
)

// Severity represents the severity level of a policy violation.
type Severity string

const (
	// SeverityInfo is for informational messages.
	SeverityInfo Severity = "info"

	// SeverityWarning is for findings that should be reviewed but do
	// not block synthesis.
	SeverityWarning Severity = "warning"

	// SeverityError is for violations that block synthesis.
	SeverityError Severity = "error"

	// SeverityCritical is for compliance violations that must never
	// reach a deployed environment.
	SeverityCritical Severity = "critical"
)

// Policy represents a guardrail with its Rego code.
type Policy struct {
	// Name is the unique name of the policy.
	Name string `json:"name"`

	// Description provides a human-readable description.
	Description string `json:"description"`

	// Rego contains the Rego policy code.
	Rego string `json:"rego"`

	// Severity is the default severity for violations.
	Severity Severity `json:"severity"`

	// Enabled indicates if the policy is active.
	Enabled bool `json:"enabled"`

	// Tags are labels for organizing policies.
	Tags []string `json:"tags,omitempty"`

	// CreatedAt is when the policy was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the policy was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// Violation represents a single policy violation.
type Violation struct {
	// Policy is the name of the policy that was violated.
	Policy string `json:"policy"`

	// Message is a human-readable violation message.
	Message string `json:"message"`

	// Severity is the violation severity level.
	Severity Severity `json:"severity"`
}

// Result represents the outcome of evaluating every enabled guardrail
// against one resolved configuration.
type Result struct {
	// Allowed indicates if synthesis may proceed.
	Allowed bool `json:"allowed"`

	// Violations lists blocking violations (error or critical).
	Violations []Violation `json:"violations,omitempty"`

	// Warnings lists advisory findings that do not block synthesis.
	Warnings []Violation `json:"warnings,omitempty"`

	// EvaluatedPolicies lists the names of policies that ran.
	EvaluatedPolicies []string `json:"evaluated_policies"`

	// EvaluatedAt is when the evaluation happened.
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// Input is the document handed to every Rego evaluation.
type Input struct {
	// Config is the fully resolved environment configuration.
	Config *config.EnvironmentConfig `json:"config"`

	// Context provides evaluation context.
	Context *Context `json:"context"`
}

// Context provides context information for policy evaluation.
type Context struct {
	// Environment is the environment being synthesized.
	Environment string `json:"environment"`

	// Operation is the operation being performed (synth, validate).
	Operation string `json:"operation"`

	// Timestamp is when the evaluation is occurring.
	Timestamp time.Time `json:"timestamp"`

	// DryRun indicates if this is a dry-run evaluation.
	DryRun bool `json:"dry_run"`
}
