package engine

import (
	"context"
	"fmt"
	"sort"
)

// ParameterSink is the durable parameter-store collaborator. Every
// successful registry write is forwarded to it so resources outside
// this synthesis run can consume the identifiers.
type ParameterSink interface {
	// Put stores value at the given absolute parameter path.
	Put(ctx context.Context, path, value string) error

	// PutSecure stores value encrypted at rest at the given absolute
	// parameter path.
	PutSecure(ctx context.Context, path, value string) error
}

// OutputRegistry is the run-scoped key/value store through which
// modules publish and consume resource identifiers. Paths are derived
// as {environment}/{module}/{logical-name}; each module exclusively
// owns writes to its own sub-namespace.
//
// Synthesis is single-threaded by design, so the registry needs no
// locking: a read that races a write is a graph-construction bug, not
// a runtime condition.
type OutputRegistry struct {
	environment string
	prefix      string
	sink        ParameterSink
	entries     map[string]string
}

// NewOutputRegistry creates a registry for one synthesis run.
// prefix is the external parameter-store prefix (for example
// "/options-strategy/dev"); sink may be nil when no durable store is
// attached (dry runs, tests).
func NewOutputRegistry(environment, prefix string, sink ParameterSink) *OutputRegistry {
	return &OutputRegistry{
		environment: environment,
		prefix:      prefix,
		sink:        sink,
		entries:     make(map[string]string),
	}
}

// path derives the run-scoped registry path for a module output.
func (r *OutputRegistry) path(module, name string) string {
	return fmt.Sprintf("%s/%s/%s", r.environment, module, name)
}

// Write publishes one module output. Writing the same (module, name)
// pair twice means a module is being re-synthesized and fails with a
// DUPLICATE_OUTPUT error.
func (r *OutputRegistry) Write(ctx context.Context, module, name, value string) error {
	return r.write(ctx, module, name, value, false)
}

// WriteSecure publishes one module output whose materialized parameter
// must be stored encrypted. Registry semantics are identical to Write;
// only the sink call differs.
func (r *OutputRegistry) WriteSecure(ctx context.Context, module, name, value string) error {
	return r.write(ctx, module, name, value, true)
}

func (r *OutputRegistry) write(ctx context.Context, module, name, value string, secure bool) error {
	p := r.path(module, name)
	if _, exists := r.entries[p]; exists {
		return NewSynthError(ErrCodeDuplicateOutput,
			fmt.Sprintf("output %s written twice", p), nil).WithModule(module)
	}

	r.entries[p] = value

	if r.sink != nil {
		external := fmt.Sprintf("%s/%s/%s", r.prefix, module, name)
		put := r.sink.Put
		if secure {
			put = r.sink.PutSecure
		}
		if err := put(ctx, external, value); err != nil {
			return NewSynthError(ErrCodeSinkFailed,
				fmt.Sprintf("failed to materialize %s to parameter store", external), err).
				WithModule(module)
		}
	}

	return nil
}

// Read returns a previously written output. Reading a path that has
// not been written means a module ran before its dependency and fails
// with a MISSING_OUTPUT error.
func (r *OutputRegistry) Read(module, name string) (string, error) {
	p := r.path(module, name)
	value, ok := r.entries[p]
	if !ok {
		return "", NewSynthError(ErrCodeMissingOutput,
			fmt.Sprintf("output %s has not been written", p), nil).WithModule(module)
	}
	return value, nil
}

// ReadAll returns a copy of every output the named module has written,
// keyed by logical name.
func (r *OutputRegistry) ReadAll(module string) map[string]string {
	out := make(map[string]string)
	modPrefix := fmt.Sprintf("%s/%s/", r.environment, module)
	for p, v := range r.entries {
		if len(p) > len(modPrefix) && p[:len(modPrefix)] == modPrefix {
			out[p[len(modPrefix):]] = v
		}
	}
	return out
}

// Snapshot returns the full registry content as a copy. Used for run
// records and determinism checks.
func (r *OutputRegistry) Snapshot() map[string]string {
	out := make(map[string]string, len(r.entries))
	for p, v := range r.entries {
		out[p] = v
	}
	return out
}

// Paths returns every written path in sorted order.
func (r *OutputRegistry) Paths() []string {
	paths := make([]string, 0, len(r.entries))
	for p := range r.entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Len returns the number of written outputs.
func (r *OutputRegistry) Len() int {
	return len(r.entries)
}
