package hcl

import "github.com/hashicorp/hcl/v2"

// fileRoot is the top-level structure of a descriptor file.
type fileRoot struct {
	Targets []*targetBlock `hcl:"target,block"`
	Remain  hcl.Body       `hcl:",remain"`
}

// targetBlock is one `target "name" { ... }` block.
type targetBlock struct {
	Name         string   `hcl:"name,label"`
	Category     string   `hcl:"category,optional"`
	Type         string   `hcl:"type"`
	Dependencies []string `hcl:"dependencies,optional"`
	Remain       hcl.Body `hcl:",remain"`
}
