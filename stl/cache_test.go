package stl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestCacheReusesParsedPayload(t *testing.T) {
	c := NewCache()
	data := binarySTL("", 2, sampleTris, 0)

	first, err := c.Extract(data, true)
	require.NoError(t, err)
	first[0] = r3.Vec{X: 99}

	second, err := c.Extract(data, true)
	require.NoError(t, err)
	assert.Equal(t, sampleTris[0][0], second[0], "callers get private copies")
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 1, c.Hits())

	all, err := c.Extract(data, false)
	require.NoError(t, err)
	assert.Len(t, all, 6)
	assert.Equal(t, 2, c.Len(), "dedup flag is part of the key")
}

func TestCacheLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.stl")
	require.NoError(t, os.WriteFile(path, binarySTL("", 2, sampleTris, 0), 0o644))

	c := NewCache()
	_, err := c.Load(path, true)
	require.NoError(t, err)
	_, err = c.Load(path, true)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Hits())

	_, err = c.Load(filepath.Join(dir, "nope.stl"), true)
	assert.ErrorIs(t, err, ErrIO)

	_, err = c.Extract([]byte("garbage"), true)
	assert.ErrorIs(t, err, ErrParse)
	assert.Equal(t, 1, c.Len(), "failures are not cached")
}
