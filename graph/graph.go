// Package graph builds the dimension dependency graph, topologically
// sorts it, and groups dimensions into parallel execution batches.
// A Graph is immutable once built: status tracking during a run lives
// in the engine package, not here, keeping this package pure over its
// inputs (mirroring the "stateless except for the owned data" design
// used throughout the dagengine components).
package graph

import (
	"fmt"
	"sort"
	"sync"

	"github.com/dagengine/engine/core"
)

// Node is one dimension in the dependency graph.
type Node struct {
	Name         string
	Dependencies []string
	Dependents   []string
}

// Graph is the built, validated dependency graph for one run's plan.
type Graph struct {
	mu    sync.RWMutex
	nodes map[string]*Node
	order []string // insertion order of declared dimensions, for deterministic iteration
}

// Build adds every declared dimension as a node, then wires edges for
// each declared dependency that names another declared dimension.
// Dependencies that name an undeclared dimension are silently dropped
// (spec: "unknown references are silently dropped at grouping time").
// Build does not validate acyclicity; call TopologicalSort for that.
func Build(dimensions []string, deps map[string][]string) *Graph {
	g := &Graph{nodes: make(map[string]*Node, len(dimensions))}

	for _, name := range dimensions {
		g.nodes[name] = &Node{Name: name}
		g.order = append(g.order, name)
	}

	for _, name := range dimensions {
		declared := deps[name]
		var kept []string
		for _, dep := range declared {
			if _, ok := g.nodes[dep]; ok {
				kept = append(kept, dep)
			}
		}
		g.nodes[name].Dependencies = kept
	}

	for _, node := range g.nodes {
		for _, dep := range node.Dependencies {
			depNode := g.nodes[dep]
			depNode.Dependents = append(depNode.Dependents, node.Name)
		}
	}

	return g
}

// TopologicalSort returns dimensions in dependency order. On a cycle it
// returns a *core.EngineError wrapping core.ErrCircularDependency with
// CycleMembers populated with every name still unresolved, sorted: the
// members of each cycle plus any dimension that depends on one. The list
// is not narrowed down to a single cycle.
func (g *Graph) TopologicalSort() ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	inDegree := make(map[string]int, len(g.nodes))
	for name, node := range g.nodes {
		inDegree[name] = len(node.Dependencies)
	}

	var queue []string
	for _, name := range g.order {
		if inDegree[name] == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	sorted := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		sorted = append(sorted, current)

		var newlyReady []string
		for _, dependent := range g.nodes[current].Dependents {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				newlyReady = append(newlyReady, dependent)
			}
		}
		sort.Strings(newlyReady)
		queue = append(queue, newlyReady...)
	}

	if len(sorted) != len(g.nodes) {
		var stuck []string
		for name, degree := range inDegree {
			if degree > 0 {
				stuck = append(stuck, name)
			}
		}
		sort.Strings(stuck)
		return nil, (&core.EngineError{
			Op:           "graph.TopologicalSort",
			Err:          core.ErrCircularDependency,
			CycleMembers: stuck,
		})
	}

	return sorted, nil
}

// GroupForParallelExecution greedily levelizes sortedDims into batches:
// repeatedly collect every remaining dimension whose declared
// dependencies are all already processed, emit it as one batch. A pass
// that yields nothing while dimensions remain is a bug in the caller's
// topological order (or a graph mutated between calls) and reports
// ExecutionGrouping with the stuck dimensions and, per dimension, the
// unmet dependency names.
func (g *Graph) GroupForParallelExecution(sortedDims []string) ([][]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	remaining := make(map[string]bool, len(sortedDims))
	for _, name := range sortedDims {
		remaining[name] = true
	}
	processed := make(map[string]bool, len(sortedDims))

	var groups [][]string
	for len(remaining) > 0 {
		var batch []string
		for _, name := range sortedDims {
			if !remaining[name] {
				continue
			}
			node := g.nodes[name]
			ready := true
			for _, dep := range node.Dependencies {
				if !processed[dep] {
					ready = false
					break
				}
			}
			if ready {
				batch = append(batch, name)
			}
		}

		if len(batch) == 0 {
			var stuck []string
			unmet := make(map[string][]string)
			for name := range remaining {
				stuck = append(stuck, name)
				var missing []string
				for _, dep := range g.nodes[name].Dependencies {
					if !processed[dep] {
						missing = append(missing, dep)
					}
				}
				sort.Strings(missing)
				unmet[name] = missing
			}
			sort.Strings(stuck)
			return nil, (&core.EngineError{
				Op:             "graph.GroupForParallelExecution",
				Err:            core.ErrExecutionGrouping,
				StuckDims:      stuck,
				UnmetDepsByDim: unmet,
			})
		}

		groups = append(groups, batch)
		for _, name := range batch {
			processed[name] = true
			delete(remaining, name)
		}
	}

	return groups, nil
}

// Statistics is informational graph analytics; it never affects
// execution (spec §4.1).
type Statistics struct {
	TotalNodes      int
	MaxDependencies int
	MaxDependents   int
	MaxParallelism  int
	Depth           int
}

// Analytics computes Statistics from the current graph shape.
func (g *Graph) Analytics() (Statistics, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	stats := Statistics{TotalNodes: len(g.nodes)}
	for _, node := range g.nodes {
		if len(node.Dependencies) > stats.MaxDependencies {
			stats.MaxDependencies = len(node.Dependencies)
		}
		if len(node.Dependents) > stats.MaxDependents {
			stats.MaxDependents = len(node.Dependents)
		}
	}

	sorted, err := g.sortLocked()
	if err != nil {
		return Statistics{}, err
	}
	groups, err := g.groupLocked(sorted)
	if err != nil {
		return Statistics{}, err
	}
	for _, batch := range groups {
		if len(batch) > stats.MaxParallelism {
			stats.MaxParallelism = len(batch)
		}
	}
	stats.Depth = len(groups)

	return stats, nil
}

// ExportDOT renders the graph as Graphviz DOT source.
func (g *Graph) ExportDOT() string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := "digraph dimensions {\n"
	for _, name := range g.order {
		out += fmt.Sprintf("  %q;\n", name)
	}
	for _, name := range g.order {
		for _, dep := range g.nodes[name].Dependencies {
			out += fmt.Sprintf("  %q -> %q;\n", dep, name)
		}
	}
	out += "}\n"
	return out
}

// ExportJSON renders the graph as a plain data tree suitable for
// json.Marshal by the caller.
func (g *Graph) ExportJSON() map[string]interface{} {
	g.mu.RLock()
	defer g.mu.RUnlock()

	nodes := make(map[string]interface{}, len(g.nodes))
	for name, node := range g.nodes {
		nodes[name] = map[string]interface{}{
			"dependencies": append([]string{}, node.Dependencies...),
			"dependents":   append([]string{}, node.Dependents...),
		}
	}
	return map[string]interface{}{"nodes": nodes}
}

// sortLocked/groupLocked re-implement TopologicalSort/GroupForParallelExecution
// without re-acquiring g.mu, for internal callers (Analytics) that already hold it.
func (g *Graph) sortLocked() ([]string, error) {
	inDegree := make(map[string]int, len(g.nodes))
	for name, node := range g.nodes {
		inDegree[name] = len(node.Dependencies)
	}
	var queue []string
	for _, name := range g.order {
		if inDegree[name] == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	sorted := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		sorted = append(sorted, current)

		var newlyReady []string
		for _, dependent := range g.nodes[current].Dependents {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				newlyReady = append(newlyReady, dependent)
			}
		}
		sort.Strings(newlyReady)
		queue = append(queue, newlyReady...)
	}

	if len(sorted) != len(g.nodes) {
		var stuck []string
		for name, degree := range inDegree {
			if degree > 0 {
				stuck = append(stuck, name)
			}
		}
		sort.Strings(stuck)
		return nil, (&core.EngineError{
			Op:           "graph.Analytics",
			Err:          core.ErrCircularDependency,
			CycleMembers: stuck,
		})
	}
	return sorted, nil
}

func (g *Graph) groupLocked(sortedDims []string) ([][]string, error) {
	remaining := make(map[string]bool, len(sortedDims))
	for _, name := range sortedDims {
		remaining[name] = true
	}
	processed := make(map[string]bool, len(sortedDims))

	var groups [][]string
	for len(remaining) > 0 {
		var batch []string
		for _, name := range sortedDims {
			if !remaining[name] {
				continue
			}
			ready := true
			for _, dep := range g.nodes[name].Dependencies {
				if !processed[dep] {
					ready = false
					break
				}
			}
			if ready {
				batch = append(batch, name)
			}
		}
		if len(batch) == 0 {
			// Unreachable when sortedDims came from a successful TopologicalSort.
			return nil, core.NewEngineError("graph.Analytics", core.ErrExecutionGrouping)
		}
		groups = append(groups, batch)
		for _, name := range batch {
			processed[name] = true
			delete(remaining, name)
		}
	}
	return groups, nil
}
