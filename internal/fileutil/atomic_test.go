package fileutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "test.txt")

	require.NoError(t, WriteFileAtomic(path, []byte("hello world"), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not remain")
	assert.Equal(t, "test.txt", entries[0].Name())
}

func TestWriteFileAtomicOverwrite(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "test.txt")
	require.NoError(t, WriteFileAtomic(path, []byte("first"), 0o644))
	require.NoError(t, WriteFileAtomic(path, []byte("second"), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestJSONRoundTrip(t *testing.T) {
	t.Parallel()

	type snapshot struct {
		Episodes int       `json:"episodes"`
		Values   []float64 `json:"values"`
	}
	path := filepath.Join(t.TempDir(), "snap.json")
	in := snapshot{Episodes: 3, Values: []float64{1.5, -2}}

	require.NoError(t, WriteJSONAtomic(path, in))

	var out snapshot
	require.NoError(t, ReadJSON(path, &out))
	assert.Equal(t, in, out)

	require.Error(t, ReadJSON(filepath.Join(t.TempDir(), "missing.json"), &out))
}
