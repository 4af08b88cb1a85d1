package fs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/smcluster/service/artifact"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	workdir := filepath.Join(t.TempDir(), "c1")

	store, err := New(ctx, workdir)
	require.NoError(t, err)
	info, err := os.Stat(workdir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	_, err = store.Get(ctx, "spark_master")
	assert.ErrorIs(t, err, artifact.ErrNotFound)

	require.NoError(t, store.PutIfAbsent(ctx, "spark_master", []byte("spark://node-a:7077\n")))
	err = store.PutIfAbsent(ctx, "spark_master", []byte("spark://node-b:7077\n"))
	assert.ErrorIs(t, err, artifact.ErrExists)

	data, err := store.Get(ctx, "spark_master")
	require.NoError(t, err)
	assert.Equal(t, "spark://node-a:7077\n", string(data))

	info, err = os.Stat(filepath.Join(workdir, "spark_master"))
	require.NoError(t, err)
	assert.True(t, info.Mode().IsRegular(), "record must be a regular file")

	onDisk, err := os.ReadFile(filepath.Join(workdir, "spark_master"))
	require.NoError(t, err)
	assert.Equal(t, "spark://node-a:7077\n", string(onDisk))

	require.NoError(t, store.Delete(ctx, "spark_master"))
	ok, err := store.Exists(ctx, "spark_master")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, store.Delete(ctx, "spark_master"))
}

func TestStore_NestedKeyAndNoTemporaryLeftovers(t *testing.T) {
	ctx := context.Background()
	workdir := t.TempDir()
	store, err := New(ctx, workdir)
	require.NoError(t, err)

	require.NoError(t, store.PutIfAbsent(ctx, "hadoop/namenode", nil))
	ok, err := store.Exists(ctx, "hadoop/namenode")
	require.NoError(t, err)
	assert.True(t, ok)

	info, err := os.Stat(filepath.Join(workdir, "hadoop", "namenode"))
	require.NoError(t, err)
	assert.True(t, info.Mode().IsRegular())

	entries, err := os.ReadDir(filepath.Join(workdir, "hadoop"))
	require.NoError(t, err)
	for _, entry := range entries {
		assert.False(t, strings.HasPrefix(entry.Name(), tmpPrefix), "leftover %s", entry.Name())
	}
}

func TestStore_RecordsAreFiles(t *testing.T) {
	ctx := context.Background()
	workdir := t.TempDir()
	store, err := New(ctx, workdir)
	require.NoError(t, err)

	for _, key := range []string{"done", "record.txt", "logs/report.c1.0.json"} {
		require.NoError(t, store.PutIfAbsent(ctx, key, []byte("17\n")), key)
		info, err := os.Stat(filepath.Join(workdir, key))
		require.NoError(t, err, key)
		assert.False(t, info.IsDir(), key)
		data, err := store.Get(ctx, key)
		require.NoError(t, err, key)
		assert.Equal(t, "17\n", string(data), key)
	}
	entries, err := os.ReadDir(workdir)
	require.NoError(t, err)
	for _, entry := range entries {
		assert.False(t, strings.HasPrefix(entry.Name(), tmpPrefix), "leftover %s", entry.Name())
	}
}

func TestStore_InvalidKey(t *testing.T) {
	ctx := context.Background()
	store, err := New(ctx, t.TempDir())
	require.NoError(t, err)
	assert.ErrorIs(t, store.PutIfAbsent(ctx, "", nil), artifact.ErrInvalidKey)
	_, err = store.Get(ctx, "../escape")
	assert.ErrorIs(t, err, artifact.ErrInvalidKey)

	_, err = New(ctx, "")
	assert.Error(t, err)
}
