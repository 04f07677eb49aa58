// Package hcl discovers BUILD.hcl descriptor files under a build root and
// decodes their `target` blocks into an address family index.
//
// A descriptor looks like:
//
//	target "web" {
//	  category     = "package"
//	  type         = "node_module"
//	  dependencies = [":util", "lib/core:core"]
//	  tags         = ["frontend"]
//	}
//
// Every attribute other than category, type and dependencies is kept as a
// cty.Value kwarg on the target. Dependencies may use the `:name` shorthand
// for targets in the same directory.
package hcl
