// Package memory provides a thread-safe, in-memory implementation of the
// cache.Store interface. Entries live for the lifetime of the process, which
// suits tests and watch mode.
package memory
