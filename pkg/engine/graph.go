package engine

import (
	"fmt"
	"sort"
	"strings"
)

// ModuleGraph holds the static module set and its dependency edges,
// and computes the synthesis order. The set is fixed and small; a
// cycle is a configuration-time error detected before any module runs.
type ModuleGraph struct {
	modules map[string]Module

	// adjacency maps a module to the modules that depend on it.
	adjacency map[string][]string

	// inDegree tracks incoming dependency edges per module.
	inDegree map[string]int

	// levels groups module names by topological level.
	levels [][]string

	// order is the flattened, fully deterministic execution order.
	order []string
}

// NewModuleGraph builds and validates the dependency graph for the
// given modules. It fails when a dependency target is missing, a name
// is duplicated, or the declared dependencies form a cycle; the cycle
// error names the full offending path.
func NewModuleGraph(modules []Module) (*ModuleGraph, error) {
	g := &ModuleGraph{
		modules:   make(map[string]Module, len(modules)),
		adjacency: make(map[string][]string),
		inDegree:  make(map[string]int),
	}

	for _, m := range modules {
		name := m.Name()
		if name == "" {
			return nil, NewSynthError(ErrCodeInternal, "module has empty name", nil)
		}
		if _, exists := g.modules[name]; exists {
			return nil, NewSynthError(ErrCodeInternal,
				fmt.Sprintf("duplicate module name: %s", name), nil)
		}
		g.modules[name] = m
		g.adjacency[name] = nil
		g.inDegree[name] = 0
	}

	for name, m := range g.modules {
		for _, dep := range m.DependsOn() {
			if _, exists := g.modules[dep]; !exists {
				return nil, NewSynthError(ErrCodeInternal,
					fmt.Sprintf("module %s depends on unregistered module %s", name, dep), nil).
					WithModule(name)
			}
			g.adjacency[dep] = append(g.adjacency[dep], name)
			g.inDegree[name]++
		}
	}

	if cycle := g.findCycle(); cycle != nil {
		return nil, NewCycleError(cycle)
	}

	if err := g.computeOrder(); err != nil {
		return nil, err
	}

	return g, nil
}

// findCycle runs DFS over the dependency edges and returns the cycle
// path when one exists, nil otherwise.
func (g *ModuleGraph) findCycle() []string {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)

	// Deterministic traversal order keeps the reported cycle stable.
	names := g.sortedNames()

	var walk func(name string, path []string) []string
	walk = func(name string, path []string) []string {
		visited[name] = true
		onStack[name] = true
		path = append(path, name)

		for _, next := range g.sortedDependents(name) {
			if !visited[next] {
				if cycle := walk(next, path); cycle != nil {
					return cycle
				}
			} else if onStack[next] {
				start := 0
				for i, n := range path {
					if n == next {
						start = i
						break
					}
				}
				return append(append([]string{}, path[start:]...), next)
			}
		}

		onStack[name] = false
		return nil
	}

	for _, name := range names {
		if !visited[name] {
			if cycle := walk(name, nil); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// computeOrder runs Kahn's algorithm, sorting each level
// lexicographically so the flattened order is deterministic for a
// fixed module set.
func (g *ModuleGraph) computeOrder() error {
	inDegree := make(map[string]int, len(g.inDegree))
	for name, d := range g.inDegree {
		inDegree[name] = d
	}

	var level []string
	for name, d := range inDegree {
		if d == 0 {
			level = append(level, name)
		}
	}
	if len(level) == 0 && len(g.modules) > 0 {
		return NewSynthError(ErrCodeModuleCycle, "no root modules: every module has dependencies", nil)
	}

	processed := 0
	for len(level) > 0 {
		sort.Strings(level)
		g.levels = append(g.levels, level)
		g.order = append(g.order, level...)
		processed += len(level)

		var next []string
		for _, name := range level {
			for _, dependent := range g.adjacency[name] {
				inDegree[dependent]--
				if inDegree[dependent] == 0 {
					next = append(next, dependent)
				}
			}
		}
		level = next
	}

	if processed != len(g.modules) {
		// Unreachable once findCycle has passed.
		return NewSynthError(ErrCodeInternal, "topological sort did not process all modules", nil)
	}
	return nil
}

// Order returns the deterministic execution order.
func (g *ModuleGraph) Order() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Levels returns the topological levels. Modules within a level have
// no ordering constraint between them; execution still runs them
// sequentially in sorted order.
func (g *ModuleGraph) Levels() [][]string {
	out := make([][]string, len(g.levels))
	for i, l := range g.levels {
		out[i] = append([]string{}, l...)
	}
	return out
}

// Module returns a registered module by name.
func (g *ModuleGraph) Module(name string) (Module, bool) {
	m, ok := g.modules[name]
	return m, ok
}

// ToDOT renders the module graph in Graphviz DOT format.
func (g *ModuleGraph) ToDOT() string {
	var sb strings.Builder
	sb.WriteString("digraph ModuleGraph {\n")
	sb.WriteString("  rankdir=TB;\n")
	sb.WriteString("  node [shape=box, style=rounded];\n")

	for _, name := range g.sortedNames() {
		fmt.Fprintf(&sb, "  %q;\n", name)
	}
	for _, name := range g.sortedNames() {
		deps := append([]string{}, g.modules[name].DependsOn()...)
		sort.Strings(deps)
		for _, dep := range deps {
			fmt.Fprintf(&sb, "  %q -> %q;\n", dep, name)
		}
	}

	sb.WriteString("}\n")
	return sb.String()
}

func (g *ModuleGraph) sortedNames() []string {
	names := make([]string, 0, len(g.modules))
	for name := range g.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (g *ModuleGraph) sortedDependents(name string) []string {
	deps := append([]string{}, g.adjacency[name]...)
	sort.Strings(deps)
	return deps
}
