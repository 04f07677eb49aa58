package app

import (
	"io"

	"github.com/vk/pkgresolve/internal/registry"
	"github.com/vk/pkgresolve/modules/command"
	"github.com/vk/pkgresolve/modules/copysources"
	"github.com/vk/pkgresolve/modules/print"
)

// coreModules returns every strategy module compiled into the pkgresolve
// binary. The print strategy writes to outW.
func coreModules(outW io.Writer) []registry.Module {
	return []registry.Module{
		&copysources.Module{},
		&command.Module{},
		&print.Module{Out: outW},
	}
}
