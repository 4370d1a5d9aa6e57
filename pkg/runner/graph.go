package runner

import (
	"path/filepath"

	"github.com/znichollscr/pydoit-nb/pkg/errors"
	"github.com/znichollscr/pydoit-nb/pkg/task"
)

// node is one task in the dependency graph.
type node struct {
	task       task.Task
	deps       map[string]*node
	dependents map[string]*node
}

// Graph is the task dependency graph. Edges are derived from file
// dependencies: a task that consumes another task's target depends on
// it.
type Graph struct {
	nodes map[string]*node

	// order preserves generation order so scheduling is deterministic.
	order []string
}

// BuildGraph indexes the tasks, wires dependency edges from
// target/file-dep overlap and rejects duplicate task ids.
func BuildGraph(tasks []task.Task) (*Graph, error) {
	g := &Graph{nodes: make(map[string]*node, len(tasks))}

	producers := make(map[string]string)
	for _, t := range tasks {
		id := t.ID()
		if _, ok := g.nodes[id]; ok {
			return nil, errors.Newf(errors.ErrTaskGenerate, "duplicate task id: %s", id)
		}
		g.nodes[id] = &node{
			task:       t,
			deps:       make(map[string]*node),
			dependents: make(map[string]*node),
		}
		g.order = append(g.order, id)

		for _, target := range t.Targets {
			producers[filepath.Clean(target.String())] = id
		}
	}

	for _, id := range g.order {
		n := g.nodes[id]
		for _, dep := range n.task.FileDeps {
			producerID, ok := producers[filepath.Clean(dep.String())]
			if !ok || producerID == id {
				continue
			}
			producer := g.nodes[producerID]
			n.deps[producerID] = producer
			producer.dependents[id] = n
		}
	}

	return g, nil
}

// Tasks returns the tasks in generation order.
func (g *Graph) Tasks() []task.Task {
	out := make([]task.Task, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id].task)
	}
	return out
}

// Dependencies returns the ids of the tasks id depends on.
func (g *Graph) Dependencies(id string) []string {
	n, ok := g.nodes[id]
	if !ok {
		return nil
	}
	deps := make([]string, 0, len(n.deps))
	for depID := range n.deps {
		deps = append(deps, depID)
	}
	return deps
}

// DetectCycles checks the graph for cycles. It returns an error naming
// a node involved in the first cycle found.
func (g *Graph) DetectCycles() error {
	// Depth-first search with the classic three node sets:
	// permanent nodes are fully visited and known safe, temporary
	// nodes are on the current recursion stack.
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var visit func(n *node) error
	visit = func(n *node) error {
		id := n.task.ID()
		if permanent[id] {
			return nil
		}
		if temporary[id] {
			return errors.Newf(errors.ErrTaskCycle, "cycle detected involving task %q", id)
		}

		temporary[id] = true
		for _, dependent := range n.dependents {
			if err := visit(dependent); err != nil {
				return err
			}
		}
		delete(temporary, id)
		permanent[id] = true

		return nil
	}

	for _, id := range g.order {
		if !permanent[id] {
			if err := visit(g.nodes[id]); err != nil {
				return err
			}
		}
	}

	return nil
}

// TopologicalOrder returns the task ids in an order that satisfies all
// dependency edges, stable with respect to generation order.
func (g *Graph) TopologicalOrder() ([]string, error) {
	if err := g.DetectCycles(); err != nil {
		return nil, err
	}

	remaining := make(map[string]int, len(g.nodes))
	for id, n := range g.nodes {
		remaining[id] = len(n.deps)
	}

	out := make([]string, 0, len(g.nodes))
	done := make(map[string]bool, len(g.nodes))

	for len(out) < len(g.order) {
		progressed := false
		for _, id := range g.order {
			if done[id] || remaining[id] > 0 {
				continue
			}
			done[id] = true
			out = append(out, id)
			for depID := range g.nodes[id].dependents {
				remaining[depID]--
			}
			progressed = true
		}
		if !progressed {
			// DetectCycles above makes this unreachable, but guard
			// against an infinite loop all the same.
			return nil, errors.New(errors.ErrTaskCycle, "no runnable task found while ordering")
		}
	}

	return out, nil
}
