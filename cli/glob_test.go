package cli_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sophia-cli/sop/cli"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		full := filepath.Join(dir, n)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte("."), 0o644))
	}
}

func TestExpandGlobsRecursiveAndLexicographic(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "b.ttl", "a.ttl", "sub/c.ttl")

	got, err := cli.ExpandGlobs([]string{filepath.Join(dir, "**", "*.ttl")})
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i-1], got[i])
	}
}

func TestExpandGlobsNegatedBracketClass(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "keep.abc", "skip.tmp")

	got, err := cli.ExpandGlobs([]string{filepath.Join(dir, "*.[!t]*")})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "keep.abc")
}

func TestExpandGlobsNoMatchIsError(t *testing.T) {
	dir := t.TempDir()
	_, err := cli.ExpandGlobs([]string{filepath.Join(dir, "*.nosuch")})
	assert.Error(t, err)
}

func TestExpandGlobsPreservesPatternOrder(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "z.ttl", "a.nt")

	got, err := cli.ExpandGlobs([]string{
		filepath.Join(dir, "*.ttl"),
		filepath.Join(dir, "*.nt"),
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Contains(t, got[0], "z.ttl")
	assert.Contains(t, got[1], "a.nt")
}
