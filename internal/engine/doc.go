// Package engine runs incremental dependency resolution over a set of
// targets.
//
// A run has up to two passes. The virtualized pass fingerprints every
// eligible target, reuses results whose fingerprint and directory are still
// valid, invalidates everything downstream of a change and resolves the rest
// into fresh directories under the work dir, in parallel and in dependency
// order. The local pass resolves every eligible target into its own source
// directory, sequentially and unconditionally. When both passes are
// requested the virtualized pass runs first.
package engine
