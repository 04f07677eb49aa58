// Package specs resolves user-supplied address selectors into concrete
// targets.
//
// Four selector forms are supported, each with a canonical string:
//
//	dir:name   SingleAddress       exactly one target
//	dir:       SiblingAddresses    every target declared directly in dir
//	dir::      DescendantAddresses every target in dir and below it
//	dir^       AscendantAddresses  every target in dir and every ancestor
//
// A set of selectors is combined with a Matcher (required tags and excluded
// address patterns) into AddressSpecs, and Resolve turns that into a sorted,
// de-duplicated list of (address, target) pairs against a target.Index.
//
// Resolution is pure. Calling Resolve repeatedly with the same inputs
// returns identical output.
package specs
