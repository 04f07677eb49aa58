// Package target holds the workspace model consumed by the resolution core:
// targets, the address families that declare them, and the read-only index
// from directory to family.
//
// The model is produced by a descriptor parser outside this module (see
// internal/hcl for the bundled adapter). Nothing in the resolution core
// mutates a Target; it only reads dependency edges and declared kwargs.
package target
