package graph

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/pkgresolve/internal/address"
	"github.com/vk/pkgresolve/internal/target"
)

func TestNew(t *testing.T) {
	g := New()
	require.NotNil(t, g)
	assert.NotNil(t, g.nodes)
	assert.Empty(t, g.nodes)
}

func TestAddNode(t *testing.T) {
	g := New()

	g.AddNode("a")
	assert.Len(t, g.nodes, 1)
	nodeA, ok := g.nodes["a"]
	require.True(t, ok)
	assert.Equal(t, "a", nodeA.id)
	assert.NotNil(t, nodeA.deps)
	assert.NotNil(t, nodeA.dependents)

	g.AddNode("a") // Test idempotency
	assert.Len(t, g.nodes, 1)

	g.AddNode("b")
	assert.Equal(t, 2, g.Len())
	assert.True(t, g.Has("b"))
	assert.Equal(t, []string{"a", "b"}, g.Nodes())
}

func TestAddEdge(t *testing.T) {
	t.Run("success case", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		g.AddNode("b")

		err := g.AddEdge("a", "b") // b depends on a
		require.NoError(t, err)

		deps, err := g.Dependencies("b")
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, deps)

		dependents, err := g.Dependents("a")
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, dependents)
	})

	t.Run("error cases", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		g.AddNode("b")

		err := g.AddEdge("dne", "a")
		assert.ErrorContains(t, err, "source node not found")

		err = g.AddEdge("a", "dne")
		assert.ErrorContains(t, err, "destination node not found")

		err = g.AddEdge("a", "a")
		assert.ErrorContains(t, err, "self-referential edge")

		_, err = g.Dependencies("dne")
		assert.ErrorContains(t, err, "node not found")
	})
}

func TestDetectCycles(t *testing.T) {
	t.Run("empty graph has no cycles", func(t *testing.T) {
		g := New()
		assert.NoError(t, g.DetectCycles())
	})

	t.Run("valid dag has no cycles", func(t *testing.T) {
		g := New()
		for _, id := range []string{"a", "b", "c", "d"} {
			g.AddNode(id)
		}
		require.NoError(t, g.AddEdge("a", "b"))
		require.NoError(t, g.AddEdge("b", "c"))
		require.NoError(t, g.AddEdge("a", "c")) // Transitive edge
		require.NoError(t, g.AddEdge("c", "d"))
		assert.NoError(t, g.DetectCycles())
	})

	t.Run("longer cycle is detected", func(t *testing.T) {
		g := New()
		for _, id := range []string{"a", "b", "c", "d"} {
			g.AddNode(id)
		}
		require.NoError(t, g.AddEdge("a", "b"))
		require.NoError(t, g.AddEdge("b", "c"))
		require.NoError(t, g.AddEdge("c", "d"))
		require.NoError(t, g.AddEdge("d", "a")) // Cycle back to the start
		err := g.DetectCycles()
		var cycleErr *CycleError
		require.True(t, errors.As(err, &cycleErr))
		assert.ErrorContains(t, err, "cycle detected")
	})

	t.Run("cycle in a disjoint component is detected", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		g.AddNode("b")
		require.NoError(t, g.AddEdge("a", "b"))

		g.AddNode("x")
		g.AddNode("y")
		g.AddNode("z")
		require.NoError(t, g.AddEdge("x", "y"))
		require.NoError(t, g.AddEdge("y", "z"))
		require.NoError(t, g.AddEdge("z", "y")) // Cycle

		assert.ErrorContains(t, g.DetectCycles(), "cycle detected")
	})

	t.Run("very deep chain", func(t *testing.T) {
		g := chain(50000)
		assert.NoError(t, g.DetectCycles())
	})
}

func TestTopologicalSort(t *testing.T) {
	t.Run("dependencies come first", func(t *testing.T) {
		// A -> B, A -> C, B -> D: D depends on B, B and C depend on A.
		g := New()
		for _, id := range []string{"D", "C", "B", "A"} {
			g.AddNode(id)
		}
		require.NoError(t, g.AddEdge("A", "B"))
		require.NoError(t, g.AddEdge("A", "C"))
		require.NoError(t, g.AddEdge("B", "D"))

		order, err := g.TopologicalSort()
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B", "C", "D"}, order)
	})

	t.Run("deterministic across runs", func(t *testing.T) {
		g := New()
		for _, id := range []string{"e", "d", "c", "b", "a"} {
			g.AddNode(id)
		}
		require.NoError(t, g.AddEdge("c", "a"))
		first, err := g.TopologicalSort()
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "c", "a", "d", "e"}, first)
		for i := 0; i < 20; i++ {
			again, err := g.TopologicalSort()
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
	})

	t.Run("cycle is an error", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		g.AddNode("b")
		require.NoError(t, g.AddEdge("a", "b"))
		require.NoError(t, g.AddEdge("b", "a"))
		_, err := g.TopologicalSort()
		var cycleErr *CycleError
		assert.True(t, errors.As(err, &cycleErr))
	})
}

func TestTransitiveDependents(t *testing.T) {
	// X -> Y -> Z, W independent.
	g := New()
	for _, id := range []string{"X", "Y", "Z", "W"} {
		g.AddNode(id)
	}
	require.NoError(t, g.AddEdge("X", "Y"))
	require.NoError(t, g.AddEdge("Y", "Z"))

	got := g.TransitiveDependents([]string{"X"})
	assert.Equal(t, map[string]struct{}{"X": {}, "Y": {}, "Z": {}}, got)

	got = g.TransitiveDependents([]string{"Z", "missing"})
	assert.Equal(t, map[string]struct{}{"Z": {}}, got)

	assert.Empty(t, g.TransitiveDependents(nil))
}

func TestFromTargets(t *testing.T) {
	a := &target.Target{Address: address.New("lib", "a")}
	b := &target.Target{Address: address.New("app", "b"), Dependencies: []address.Address{a.Address, address.New("ext", "gone")}}

	g, err := FromTargets([]*target.Target{b, a})
	require.NoError(t, err)
	assert.Equal(t, []string{"app:b", "lib:a"}, g.Nodes())

	order, err := g.TopologicalSort()
	require.NoError(t, err)
	assert.Equal(t, []string{"lib:a", "app:b"}, order)
}

func chain(n int) *Graph {
	g := New()
	prev := ""
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("n%06d", i)
		g.AddNode(id)
		if prev != "" {
			_ = g.AddEdge(prev, id)
		}
		prev = id
	}
	return g
}
