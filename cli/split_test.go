package cli_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sophia-cli/sop/cli"
)

func TestSplitMultipleStages(t *testing.T) {
	shards, err := cli.Split([]string{"parse", "-f", "nt", "!", "filter", "?o", "!", "serialize", "-f", "nq"})
	require.NoError(t, err)
	require.Len(t, shards, 3)
	assert.Equal(t, []string{"parse", "-f", "nt"}, shards[0])
	assert.Equal(t, []string{"filter", "?o"}, shards[1])
	assert.Equal(t, []string{"serialize", "-f", "nq"}, shards[2])
}

func TestSplitSingleStage(t *testing.T) {
	shards, err := cli.Split([]string{"null"})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"null"}}, shards)
}

func TestSplitRejectsEmptyInput(t *testing.T) {
	_, err := cli.Split(nil)
	assert.Error(t, err)
}

func TestSplitRejectsTrailingBang(t *testing.T) {
	_, err := cli.Split([]string{"parse", "!"})
	assert.Error(t, err)
}

func TestSplitRejectsLeadingBang(t *testing.T) {
	_, err := cli.Split([]string{"!", "parse"})
	assert.Error(t, err)
}

func TestSplitRejectsDoubledBang(t *testing.T) {
	_, err := cli.Split([]string{"parse", "!", "!", "null"})
	assert.Error(t, err)
}
