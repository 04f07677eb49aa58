// Package watch re-runs resolution when watched files change.
//
// A Watcher observes the parent directories of an explicit file set plus the
// directories covered by descriptor glob patterns. Events are accumulated and
// flushed once per debounce interval, so a burst of writes (a package manager
// rewriting a lockfile, an editor saving through a temp file) produces a
// single callback.
package watch
