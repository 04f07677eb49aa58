package specs

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/pkgresolve/internal/address"
	"github.com/vk/pkgresolve/internal/target"
	"github.com/zclconf/go-cty/cty"
)

func newTarget(dir, name string, tags ...string) *target.Target {
	t := &target.Target{
		Address:  address.New(dir, name),
		Category: target.CategoryPackage,
		Type:     "node_module",
	}
	if len(tags) > 0 {
		vals := make([]cty.Value, 0, len(tags))
		for _, tag := range tags {
			vals = append(vals, cty.StringVal(tag))
		}
		t.Kwargs = map[string]cty.Value{"tags": cty.ListVal(vals)}
	}
	return t
}

// fixtureIndex declares:
//
//	""        root
//	pkg       A, B
//	pkg/sub   C
//	other     D (tags: frontend, 2)
func fixtureIndex(t *testing.T) *target.Index {
	t.Helper()
	d := newTarget("other", "D", "frontend")
	d.Kwargs["tags"] = cty.TupleVal([]cty.Value{cty.StringVal("frontend"), cty.NumberIntVal(2)})

	idx, err := target.NewIndex(
		&target.Family{Dir: "", Targets: []*target.Target{newTarget("", "root")}},
		&target.Family{Dir: "pkg", Targets: []*target.Target{newTarget("pkg", "A", "lib"), newTarget("pkg", "B")}},
		&target.Family{Dir: "pkg/sub", Targets: []*target.Target{newTarget("pkg/sub", "C", "lib", "frontend")}},
		&target.Family{Dir: "other", Targets: []*target.Target{d}},
	)
	require.NoError(t, err)
	return idx
}

func specStrings(pairs []target.Pair) []string {
	out := make([]string, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, p.Address.Spec())
	}
	return out
}

func mustSpecs(t *testing.T, raw []string, tags, excludes []string) *AddressSpecs {
	t.Helper()
	s, err := Parse(raw, tags, excludes)
	require.NoError(t, err)
	return s
}
