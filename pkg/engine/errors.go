package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for the synthesis failure taxonomy. Every code is a
// deterministic configuration-time defect: none of them are retried,
// because a retry would reproduce the identical failure.
const (
	ErrCodeUnknownEnvironment = "UNKNOWN_ENVIRONMENT"
	ErrCodeValidationFailed   = "CONFIG_VALIDATION_FAILED"
	ErrCodeModuleCycle        = "MODULE_CYCLE"
	ErrCodeDuplicateOutput    = "DUPLICATE_OUTPUT"
	ErrCodeMissingOutput      = "MISSING_OUTPUT"
	ErrCodeProvisionFailed    = "PROVISION_FAILED"
	ErrCodeSinkFailed         = "SINK_FAILED"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// SynthError is a classified synthesis error with context. It aborts
// the whole run; there is no partial synthesis.
type SynthError struct {
	// Code identifies the failure class for programmatic handling.
	Code string `json:"code"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Module is the module being synthesized when the error occurred,
	// if applicable.
	Module string `json:"module,omitempty"`

	// Findings carries the full validation report for
	// CONFIG_VALIDATION_FAILED errors.
	Findings []string `json:"findings,omitempty"`

	// Err is the underlying error, if any.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *SynthError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)
	if e.Module != "" {
		fmt.Fprintf(&b, " (module=%s)", e.Module)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %s", e.Err.Error())
	}
	if len(e.Findings) > 0 {
		fmt.Fprintf(&b, "\n%s", strings.Join(e.Findings, "\n"))
	}
	return b.String()
}

// Unwrap returns the underlying error for error chain inspection.
func (e *SynthError) Unwrap() error {
	return e.Err
}

// Is implements error equality for errors.Is: two synthesis errors
// match when their codes match.
func (e *SynthError) Is(target error) bool {
	t, ok := target.(*SynthError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewSynthError creates a synthesis error with the given code.
func NewSynthError(code, message string, err error) *SynthError {
	return &SynthError{Code: code, Message: message, Err: err}
}

// WithModule adds module context to an error.
func (e *SynthError) WithModule(name string) *SynthError {
	e.Module = name
	return e
}

// NewValidationFailedError wraps a non-empty findings list.
func NewValidationFailedError(findings []string) *SynthError {
	return &SynthError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("configuration validation failed with %d finding(s)", len(findings)),
		Findings: findings,
	}
}

// NewCycleError reports a dependency cycle in the static module set.
// The cycle path is part of the message so operators can read the
// offending chain directly.
func NewCycleError(cycle []string) *SynthError {
	return &SynthError{
		Code:    ErrCodeModuleCycle,
		Message: fmt.Sprintf("circular module dependency: %s", strings.Join(cycle, " -> ")),
	}
}

// hasCode reports whether err carries the given synthesis error code.
func hasCode(err error, code string) bool {
	var e *SynthError
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsUnknownEnvironment reports an unrecognized environment identifier.
func IsUnknownEnvironment(err error) bool { return hasCode(err, ErrCodeUnknownEnvironment) }

// IsValidationFailed reports a fatal validation report.
func IsValidationFailed(err error) bool { return hasCode(err, ErrCodeValidationFailed) }

// IsModuleCycle reports a static graph misconfiguration.
func IsModuleCycle(err error) bool { return hasCode(err, ErrCodeModuleCycle) }

// IsDuplicateOutput reports a second write to an owned registry path.
func IsDuplicateOutput(err error) bool { return hasCode(err, ErrCodeDuplicateOutput) }

// IsMissingOutput reports a read of a path no module has written.
func IsMissingOutput(err error) bool { return hasCode(err, ErrCodeMissingOutput) }
