package vmo

import (
	"bytes"
	"os"
	"testing"

	"github.com/hupe1980/mapres/internal/mmap"
	"github.com/hupe1980/mapres/namespace"
	"github.com/hupe1980/mapres/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromFilename(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "res.bin", bytes.Repeat([]byte{7}, 4096))
	testutil.Chdir(t, dir)

	v, err := FromFilename("res.bin")
	require.NoError(t, err)
	defer v.Close()

	assert.Equal(t, int64(4096), v.Size())
	assert.False(t, v.Executable())
	assert.Equal(t, mmap.ProtRead, v.Protection())
	assert.GreaterOrEqual(t, v.Fd(), 0)
}

func TestFromFilenameAt(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "sub/res.bin", []byte("hello"))

	root, err := namespace.NewLocal(dir).OpenRoot()
	require.NoError(t, err)
	defer root.Close()

	v, err := FromFilenameAt(root, "sub/res.bin")
	require.NoError(t, err)
	defer v.Close()
	assert.Equal(t, int64(5), v.Size())

	_, err = FromFilenameAt(root, "missing")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFromFile_Directory(t *testing.T) {
	f, err := os.Open(t.TempDir())
	require.NoError(t, err)

	_, err = FromFile(f)
	assert.ErrorIs(t, err, ErrNotRegular)
}

func TestReplaceAsExecutable(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "code.bin", []byte{0xc3})

	v, err := FromFilename(path)
	require.NoError(t, err)
	defer v.Close()

	if err := mmap.CheckExecutable(v.Fd()); err != nil {
		require.ErrorIs(t, v.ReplaceAsExecutable(), ErrNotExecutable)
		t.Skip("temp dir is mounted noexec")
	}

	require.NoError(t, v.ReplaceAsExecutable())
	assert.True(t, v.Executable())
	assert.Equal(t, mmap.ProtRead|mmap.ProtExec, v.Protection())
}

func TestClose(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "res.bin", []byte("abc"))

	v, err := FromFilename(path)
	require.NoError(t, err)
	assert.Equal(t, path, v.Name())

	require.NoError(t, v.Close())
	require.NoError(t, v.Close())
	assert.Equal(t, -1, v.Fd())
	assert.Empty(t, v.Name())
	assert.ErrorIs(t, v.ReplaceAsExecutable(), ErrClosed)
}
