package graph

import (
	"fmt"
	"sort"
)

// CycleError reports a dependency cycle.
type CycleError struct {
	// Node is a node on the cycle.
	Node string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected involving node '%s'", e.Node)
}

// DetectCycles checks the graph for any cycles. It returns a *CycleError
// naming a node on the first cycle found.
func (g *Graph) DetectCycles() error {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	const (
		unvisited = iota
		inProgress
		done
	)
	state := make(map[string]int, len(g.nodes))

	type frame struct {
		n    *node
		next []string
	}

	for _, rootID := range sortedKeys(g.nodes) {
		if state[rootID] != unvisited {
			continue
		}
		root := g.nodes[rootID]
		state[rootID] = inProgress
		stack := []*frame{{n: root, next: sortedKeys(root.dependents)}}

		for len(stack) > 0 {
			top := stack[len(stack)-1]
			if len(top.next) == 0 {
				state[top.n.id] = done
				stack = stack[:len(stack)-1]
				continue
			}
			childID := top.next[0]
			top.next = top.next[1:]

			switch state[childID] {
			case inProgress:
				return &CycleError{Node: childID}
			case unvisited:
				child := g.nodes[childID]
				state[childID] = inProgress
				stack = append(stack, &frame{n: child, next: sortedKeys(child.dependents)})
			}
		}
	}
	return nil
}

// TopologicalSort returns every node ID ordered so each node appears after
// all of its dependencies. Among nodes that are ready at the same time the
// smaller ID comes first, so the order is deterministic.
func (g *Graph) TopologicalSort() ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	remaining := make(map[string]int, len(g.nodes))
	var ready []string
	for id, n := range g.nodes {
		remaining[id] = len(n.deps)
		if len(n.deps) == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		var unlocked []string
		for depID := range g.nodes[id].dependents {
			remaining[depID]--
			if remaining[depID] == 0 {
				unlocked = append(unlocked, depID)
			}
		}
		if len(unlocked) > 0 {
			ready = append(ready, unlocked...)
			sort.Strings(ready)
		}
	}

	if len(order) != len(g.nodes) {
		for _, id := range sortedKeys(g.nodes) {
			if remaining[id] > 0 {
				return nil, &CycleError{Node: id}
			}
		}
	}
	return order, nil
}

// TransitiveDependents returns the seeds together with every node that
// depends on any of them, directly or transitively. Unknown seeds are
// ignored.
func (g *Graph) TransitiveDependents(seeds []string) map[string]struct{} {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	out := make(map[string]struct{}, len(seeds))
	queue := make([]*node, 0, len(seeds))
	for _, id := range seeds {
		n, ok := g.nodes[id]
		if !ok {
			continue
		}
		if _, seen := out[id]; !seen {
			out[id] = struct{}{}
			queue = append(queue, n)
		}
	}

	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for id, dependent := range n.dependents {
			if _, seen := out[id]; seen {
				continue
			}
			out[id] = struct{}{}
			queue = append(queue, dependent)
		}
	}
	return out
}
