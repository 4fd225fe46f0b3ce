package cli_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sophia-cli/sop/cli"
	"github.com/sophia-cli/sop/stage"
)

func init() {
	stage.Register(&stage.Entry{
		Canonical: "clitest-parse",
		Aliases:   []string{"cpt"},
		Role:      stage.RoleProducer,
		Schema: stage.Schema{
			Flags: []stage.FlagSchema{
				{Long: "format", Short: "f", Arity: stage.AritySingle},
				{Long: "strict", Arity: stage.AritySwitch},
				{Long: "m", Short: "m", Arity: stage.AritySentinel, Terminator: "m-"},
			},
			MinPositionals: 0,
			MaxPositionals: -1,
		},
		New: func(stage.Spec, stage.Deps) (stage.Instance, error) {
			return stage.Instance{Role: stage.RoleProducer}, nil
		},
	})

	stage.Register(&stage.Entry{
		Canonical: "clitest-filter",
		Aliases:   []string{"cft"},
		Role:      stage.RoleTransformer,
		Schema: stage.Schema{
			MinPositionals: 1,
			MaxPositionals: 1,
		},
		New: func(stage.Spec, stage.Deps) (stage.Instance, error) {
			return stage.Instance{Role: stage.RoleTransformer}, nil
		},
	})
}

func TestParseStageResolvesAliasAndFlags(t *testing.T) {
	spec, entry, err := cli.ParseStage([]string{"cpt", "--format", "nt", "--strict", "a.ttl", "b.ttl"})
	require.NoError(t, err)
	assert.Equal(t, "clitest-parse", entry.Canonical)
	v, ok := spec.Option("format")
	assert.True(t, ok)
	assert.Equal(t, "nt", v)
	assert.True(t, spec.Switch("strict"))
}

func TestParseStageSentinelMultiValue(t *testing.T) {
	spec, _, err := cli.ParseStage([]string{"cpt", "-m", "a.ttl", "b.ttl", "m-"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.ttl", "b.ttl"}, spec.OptionValues("m"))
}

func TestParseStageSentinelMissingTerminatorIsError(t *testing.T) {
	_, _, err := cli.ParseStage([]string{"cpt", "-m", "a.ttl", "b.ttl"})
	assert.Error(t, err)
}

func TestParseStageUnknownStageIsError(t *testing.T) {
	_, _, err := cli.ParseStage([]string{"clitest-nosuch"})
	assert.Error(t, err)
}

func TestParseStageUnknownFlagIsError(t *testing.T) {
	_, _, err := cli.ParseStage([]string{"cpt", "--nosuch"})
	assert.Error(t, err)
}

func TestParseStagePositionalArityEnforced(t *testing.T) {
	_, _, err := cli.ParseStage([]string{"cft"})
	assert.Error(t, err, "clitest-filter requires exactly one positional")

	_, _, err = cli.ParseStage([]string{"cft", "?o > 1"})
	require.NoError(t, err)
}

func TestParseAllSplitsAndParsesEveryShard(t *testing.T) {
	specs, entries, err := cli.ParseAll([]string{"cpt", "-f", "nt", "!", "cft", "?o"})
	require.NoError(t, err)
	require.Len(t, specs, 2)
	require.Len(t, entries, 2)
	assert.Equal(t, "clitest-parse", entries[0].Canonical)
	assert.Equal(t, "clitest-filter", entries[1].Canonical)
}
