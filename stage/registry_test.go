package stage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sophia-cli/sop/stage"
)

func freshEntry(canonical string, aliases ...string) *stage.Entry {
	return &stage.Entry{
		Canonical: canonical,
		Aliases:   aliases,
		Role:      stage.RoleTransformer,
		New: func(stage.Spec, stage.Deps) (stage.Instance, error) {
			return stage.Instance{Role: stage.RoleTransformer}, nil
		},
	}
}

func TestLookupByCanonicalAndAlias(t *testing.T) {
	stage.Register(freshEntry("registrytest-echo", "rte"))

	e, ok := stage.Lookup("registrytest-echo")
	require.True(t, ok)
	assert.Equal(t, "registrytest-echo", e.Canonical)

	e, ok = stage.Lookup("rte")
	require.True(t, ok)
	assert.Equal(t, "registrytest-echo", e.Canonical)

	_, ok = stage.Lookup("registrytest-nosuch")
	assert.False(t, ok)
}

func TestRegisterPanicsOnDuplicateCanonical(t *testing.T) {
	stage.Register(freshEntry("registrytest-dup"))
	assert.Panics(t, func() {
		stage.Register(freshEntry("registrytest-dup"))
	})
}

func TestRegisterPanicsOnAliasCollision(t *testing.T) {
	stage.Register(freshEntry("registrytest-a", "registrytest-x"))
	assert.Panics(t, func() {
		stage.Register(freshEntry("registrytest-b", "registrytest-x"))
	})
}

func TestSpecOptionAccessors(t *testing.T) {
	spec := stage.Spec{
		Kind: "filter",
		Options: map[string][]string{
			"format": {"nt"},
			"m":      {"a.ttl", "b.ttl"},
			"strict": {},
		},
		Positional: []string{"?o > 1"},
	}
	v, ok := spec.Option("format")
	assert.True(t, ok)
	assert.Equal(t, "nt", v)

	assert.Equal(t, []string{"a.ttl", "b.ttl"}, spec.OptionValues("m"))
	assert.True(t, spec.Switch("strict"))
	assert.False(t, spec.Switch("nosuch"))

	_, ok = spec.Option("nosuch")
	assert.False(t, ok)
}
