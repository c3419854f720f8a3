package mapres

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/hupe1980/mapres/namespace"
	"github.com/hupe1980/mapres/resource"
	"github.com/hupe1980/mapres/testutil"
	"github.com/hupe1980/mapres/vmo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func page(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

func TestMappedResource_Empty(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "empty.bin", nil)

	metrics := &BasicMetricsCollector{}
	r := NewMappedResource(WithMetricsCollector(metrics))
	require.NoError(t, r.LoadFromNamespace(namespace.NewLocal(dir), "empty.bin", false))

	assert.Nil(t, r.Address())
	assert.Zero(t, r.Size())
	assert.Nil(t, r.Bytes())
	assert.False(t, r.Loaded())
	assert.NoError(t, r.Advise(AccessSequential))
	assert.NoError(t, r.Close())

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.MapCount)
	assert.Zero(t, stats.MapErrors)
	assert.Zero(t, stats.UnmapCount)
}

func TestMappedResource_LoadFromVMO_Empty(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "empty.bin", nil)

	v, err := vmo.FromFilename(path)
	require.NoError(t, err)

	r := NewMappedResource()
	require.NoError(t, r.LoadFromVMO("empty.bin", v, false))
	assert.Nil(t, r.Address())
	assert.Zero(t, r.Size())
	assert.Equal(t, -1, v.Fd())
}

func TestMappedResource_ReadOnly(t *testing.T) {
	dir := t.TempDir()
	data := page(4096)
	testutil.WriteFile(t, dir, "res/data.bin", data)

	rc := resource.NewController(resource.Config{MemoryLimitBytes: 1 << 20})
	metrics := &BasicMetricsCollector{}
	r := NewMappedResource(WithResourceController(rc), WithMetricsCollector(metrics))
	require.NoError(t, r.LoadFromNamespace(namespace.NewLocal(dir), "res/data.bin", false))

	require.NotNil(t, r.Address())
	assert.Equal(t, 4096, r.Size())
	assert.Equal(t, data, r.Bytes())
	assert.True(t, r.Loaded())
	assert.False(t, r.Executable())
	assert.Equal(t, "res/data.bin", r.Path())
	assert.Equal(t, int64(4096), rc.MemoryUsage())
	assert.NoError(t, r.Advise(AccessWillNeed))

	addr := uintptr(r.Address())
	if testutil.ProcMapsAvailable() {
		perms, ok := testutil.MappingPerms(addr)
		require.True(t, ok)
		assert.Equal(t, "r--", perms[:3])
	}

	require.NoError(t, r.Close())
	assert.Nil(t, r.Address())
	assert.Zero(t, r.Size())
	assert.False(t, r.Loaded())
	assert.Zero(t, rc.MemoryUsage())
	require.NoError(t, r.Close())

	if testutil.ProcMapsAvailable() {
		_, ok := testutil.MappingPerms(addr)
		assert.False(t, ok)
	}

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.MapCount)
	assert.Equal(t, int64(1), stats.UnmapCount)
	assert.Zero(t, stats.MappedBytes)
}

func TestMappedResource_Executable(t *testing.T) {
	dir := t.TempDir()
	requireExec(t, dir)
	testutil.WriteFile(t, dir, "code.bin", page(4096))

	r := NewMappedResource()
	require.NoError(t, r.LoadFromNamespace(namespace.NewLocal(dir), "code.bin", true))
	defer r.Close()

	assert.Equal(t, 4096, r.Size())
	assert.True(t, r.Executable())
	if testutil.ProcMapsAvailable() {
		perms, ok := testutil.MappingPerms(uintptr(r.Address()))
		require.True(t, ok)
		assert.Equal(t, "r-x", perms[:3])
	}
}

func TestMappedResource_LoadFromVMO_DefaultPath(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "named.bin", page(4096))

	v, err := vmo.FromFilename(path)
	require.NoError(t, err)

	r := NewMappedResource()
	require.NoError(t, r.LoadFromVMO("", v, false))
	defer r.Close()
	assert.Equal(t, path, r.Path())
}

func TestMappedResource_LoadFromVMO_RequiresExecuteRight(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "data.bin", page(4096))
	metrics := &BasicMetricsCollector{}

	v, err := vmo.FromFilename(path)
	require.NoError(t, err)
	require.False(t, v.Executable())

	r := NewMappedResource(WithMetricsCollector(metrics))
	err = r.LoadFromVMO("data.bin", v, true)
	assert.ErrorIs(t, err, ErrExecutable)
	assert.ErrorIs(t, err, vmo.ErrNotExecutable)
	assert.False(t, r.Loaded())
	assert.Nil(t, r.Address())
	assert.Equal(t, -1, v.Fd(), "consumed on failure")
	assert.Equal(t, int64(1), metrics.GetStats().MapErrors)

	t.Run("upgraded", func(t *testing.T) {
		requireExec(t, dir)

		v, err := vmo.FromFilename(path)
		require.NoError(t, err)
		require.NoError(t, v.ReplaceAsExecutable())

		r := NewMappedResource()
		require.NoError(t, r.LoadFromVMO("data.bin", v, true))
		defer r.Close()
		assert.True(t, r.Executable())
	})

	t.Run("read only request", func(t *testing.T) {
		requireExec(t, dir)

		v, err := vmo.FromFilename(path)
		require.NoError(t, err)
		require.NoError(t, v.ReplaceAsExecutable())

		r := NewMappedResource()
		require.NoError(t, r.LoadFromVMO("data.bin", v, false))
		defer r.Close()
		assert.False(t, r.Executable())
	})
}

func TestMappedResource_NilNamespace(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "cwd.bin", []byte("working directory"))
	testutil.Chdir(t, dir)

	r := NewMappedResource()
	require.NoError(t, r.LoadFromNamespace(nil, "cwd.bin", false))
	defer r.Close()
	assert.Equal(t, "working directory", string(r.Bytes()))
}

func TestMappedResource_AbsolutePathPanics(t *testing.T) {
	ns := &countingNamespace{ns: namespace.NewLocal(t.TempDir())}
	r := NewMappedResource()

	assert.Panics(t, func() {
		_ = r.LoadFromNamespace(ns, "/etc/passwd", false)
	})
	assert.Panics(t, func() {
		_ = r.LoadFromNamespace(nil, "/etc/passwd", false)
	})
	assert.Zero(t, ns.opens.Load())
	assert.False(t, r.Loaded())
}

func TestMappedResource_ClosesRootDir(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "a.bin", []byte("a"))
	ns := &countingNamespace{ns: namespace.NewLocal(dir)}

	r := NewMappedResource()
	require.NoError(t, r.LoadFromNamespace(ns, "a.bin", false))
	require.NoError(t, r.Close())

	err := r.LoadFromNamespace(ns, "missing.bin", false)
	require.Error(t, err)

	assert.Equal(t, int32(2), ns.opens.Load())
	assert.Equal(t, int32(2), ns.closes.Load())
}

func TestMappedResource_Errors(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "a.bin", page(4096))

	t.Run("missing", func(t *testing.T) {
		r := NewMappedResource()
		err := r.LoadFromNamespace(namespace.NewLocal(dir), "missing.bin", false)
		assert.ErrorIs(t, err, ErrResolve)
		assert.ErrorIs(t, err, os.ErrNotExist)

		var pe *PathError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "missing.bin", pe.Path)
		assert.Equal(t, "load", pe.Op)
		assert.False(t, r.Loaded())
	})

	t.Run("open namespace", func(t *testing.T) {
		r := NewMappedResource()
		err := r.LoadFromNamespace(&countingNamespace{openErr: errNoRoot}, "a.bin", false)
		assert.ErrorIs(t, err, ErrOpenNamespace)
		assert.ErrorIs(t, err, errNoRoot)
	})

	t.Run("escape", func(t *testing.T) {
		r := NewMappedResource()
		err := r.LoadFromNamespace(namespace.NewLocal(dir), "../a.bin", false)
		assert.ErrorIs(t, err, ErrResolve)
	})

	t.Run("already loaded", func(t *testing.T) {
		r := NewMappedResource()
		require.NoError(t, r.LoadFromNamespace(namespace.NewLocal(dir), "a.bin", false))
		defer r.Close()
		addr := r.Address()

		err := r.LoadFromNamespace(namespace.NewLocal(dir), "a.bin", false)
		assert.ErrorIs(t, err, ErrAlreadyLoaded)
		assert.Equal(t, addr, r.Address())
	})

	t.Run("memory limit", func(t *testing.T) {
		rc := resource.NewController(resource.Config{MemoryLimitBytes: 1024})
		r := NewMappedResource(WithResourceController(rc))
		err := r.LoadFromNamespace(namespace.NewLocal(dir), "a.bin", false)
		assert.ErrorIs(t, err, ErrMap)
		assert.ErrorIs(t, err, resource.ErrMemoryLimitExceeded)
		assert.Zero(t, rc.MemoryUsage())
		assert.False(t, r.Loaded())
	})
}

func TestMappedResource_LogsFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	r := NewMappedResource(WithLogger(logger))
	err := r.LoadFromNamespace(namespace.NewLocal(t.TempDir()), "missing.bin", false)
	require.Error(t, err)

	assert.Contains(t, buf.String(), `"msg":"map failed"`)
	assert.Contains(t, buf.String(), `"path":"missing.bin"`)
}

func TestPathError(t *testing.T) {
	cause := errors.New("boom")
	err := pathError("load", "x.bin", ErrMap, cause)

	assert.Equal(t, "mapres: load x.bin: cannot map resource: boom", err.Error())
	assert.ErrorIs(t, err, ErrMap)
	assert.ErrorIs(t, err, cause)

	bare := pathError("load", "x.bin", ErrAlreadyLoaded, nil)
	assert.Equal(t, "mapres: load x.bin: already loaded", bare.Error())
}
