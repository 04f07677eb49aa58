// Package print provides a strategy that reports what it would resolve
// instead of resolving it.
package print
