package cache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/sigma/classfile"
	"github.com/chazu/sigma/compiler"
)

func openMemory(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestGetMissing(t *testing.T) {
	c := openMemory(t)
	_, err := c.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, c.IsMiss(err))
}

func TestPutThenGet(t *testing.T) {
	c := openMemory(t)
	ctx := context.Background()
	a := &compiler.Artifact{
		ClassName: "Main",
		Entry:     "main",
		Class:     []byte{0xCA, 0xFE, 0xBA, 0xBE},
		Methods:   []string{"f(I)I"},
	}
	require.NoError(t, c.Put(ctx, "k1", a))

	got, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "k1", got.Key)
	assert.Equal(t, a.ClassName, got.ClassName)
	assert.Equal(t, a.Entry, got.Entry)
	assert.Equal(t, a.Class, got.Class)
	assert.Equal(t, a.Methods, got.Methods)
}

func TestPutReplacesAndAssignsNewBuildID(t *testing.T) {
	c := openMemory(t)
	ctx := context.Background()
	require.NoError(t, c.Put(ctx, "k", &compiler.Artifact{ClassName: "A", Class: []byte{1}}))
	before, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, before, 1)

	require.NoError(t, c.Put(ctx, "k", &compiler.Artifact{ClassName: "B", Class: []byte{1, 2}}))
	after, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, "B", after[0].ClassName)
	assert.NotEqual(t, before[0].BuildID, after[0].BuildID)
	assert.Positive(t, after[0].Size)
}

func TestClear(t *testing.T) {
	c := openMemory(t)
	ctx := context.Background()
	require.NoError(t, c.Put(ctx, "a", &compiler.Artifact{ClassName: "A"}))
	require.NoError(t, c.Put(ctx, "b", &compiler.Artifact{ClassName: "B"}))

	n, err := c.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	entries, err := c.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.db")
	ctx := context.Background()

	c, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, c.Put(ctx, "k", &compiler.Artifact{ClassName: "Keep"}))
	require.NoError(t, c.Close())

	c, err = Open(path)
	require.NoError(t, err)
	defer c.Close()
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "Keep", got.ClassName)
}

func TestDriverWithCache(t *testing.T) {
	c := openMemory(t)
	d := compiler.NewDriver(c)
	ctx := context.Background()
	src := `println("cached");`

	first, err := d.Compile(ctx, "c.sigma", src, compiler.Options{ClassName: "C"})
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := d.Compile(ctx, "c.sigma", src, compiler.Options{ClassName: "C"})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Class, second.Class)

	_, err = classfile.Parse(second.Class)
	assert.NoError(t, err)
}
