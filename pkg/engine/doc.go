// Package engine provides the synthesis core: the output registry that
// modules publish resource identifiers through, the module dependency
// graph with its topological ordering, and the orchestrator that runs
// one synthesis pass for a resolved environment configuration.
package engine
