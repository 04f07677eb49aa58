// Package graph holds the dependency graph between targets.
//
// Nodes are identified by string IDs (address specs in practice). An edge
// from A to B means B depends on A, so A must be resolved first. All
// operations are safe for concurrent use; traversals are iterative so deep
// chains do not grow the goroutine stack.
package graph
