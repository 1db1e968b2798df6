// Package policy evaluates Rego compliance guardrails against
// resolved environment configurations.
//
// The built-in guardrails encode the non-negotiable platform rules:
// Indian data residency, production hardening, tag hygiene, and
// development cost footprints. Operators can add their own .rego or
// .json policy files; the loader can watch those paths and recompile
// on change.
//
// Guardrails complement the configuration validator: the validator
// checks structural correctness of a single configuration, while
// guardrails express organizational rules that operators own and can
// extend without rebuilding the binary.
package policy
