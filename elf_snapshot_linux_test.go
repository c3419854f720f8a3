package mapres

import (
	"debug/elf"
	"errors"
	"os"
	"testing"
	"unsafe"

	"github.com/hupe1980/mapres/blobstore"
	"github.com/hupe1980/mapres/elfloader"
	"github.com/hupe1980/mapres/internal/memfd"
	"github.com/hupe1980/mapres/namespace"
	"github.com/hupe1980/mapres/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot() testutil.SnapshotImage {
	return testutil.SnapshotImage{
		VMData:              []byte("vm snapshot data"),
		VMInstructions:      []byte{0xc3, 0xcc, 0xcc, 0xcc},
		IsolateData:         []byte("isolate snapshot data"),
		IsolateInstructions: []byte{0xc3},
	}
}

func snapshotDir(t *testing.T) string {
	t.Helper()
	if testutil.NativeMachine() == elf.EM_NONE {
		t.Skip("unknown host machine")
	}
	dir := t.TempDir()
	requireExec(t, dir)
	return dir
}

func regionPointers(s *ElfSnapshot) []unsafe.Pointer {
	return []unsafe.Pointer{s.VMData(), s.VMInstructions(), s.IsolateData(), s.IsolateInstructions()}
}

func TestElfSnapshot_Load(t *testing.T) {
	dir := snapshotDir(t)
	want := testSnapshot()
	testutil.WriteFile(t, dir, "app_aot.so", testutil.BuildSnapshotELF(want))
	ns := &countingNamespace{ns: namespace.NewLocal(dir)}

	metrics := &BasicMetricsCollector{}
	s := NewElfSnapshot(WithMetricsCollector(metrics))
	require.NoError(t, s.Load(ns, "app_aot.so"))

	assert.Equal(t, int32(1), ns.opens.Load())
	assert.Equal(t, int32(1), ns.closes.Load())
	assert.True(t, s.Loaded())
	assert.Equal(t, "app_aot.so", s.Path())

	for _, p := range regionPointers(s) {
		assert.NotNil(t, p)
	}
	assert.Equal(t, want.VMData, s.Region(elfloader.VMData))
	assert.Equal(t, want.VMInstructions, s.Region(elfloader.VMInstructions))
	assert.Equal(t, want.IsolateData, s.Region(elfloader.IsolateData))
	assert.Equal(t, want.IsolateInstructions, s.Region(elfloader.IsolateInstructions))
	assert.Equal(t, byte('v'), *(*byte)(s.VMData()))

	addrs := make([]uintptr, 0, 4)
	for _, p := range regionPointers(s) {
		addrs = append(addrs, uintptr(p))
	}

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.False(t, s.Loaded())
	for _, p := range regionPointers(s) {
		assert.Nil(t, p)
	}
	if testutil.ProcMapsAvailable() {
		for _, addr := range addrs {
			_, ok := testutil.MappingPerms(addr)
			assert.False(t, ok)
		}
	}

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.SnapshotLoadCount)
	assert.Equal(t, int64(1), stats.SnapshotUnloadCount)
	assert.Zero(t, stats.SnapshotBytes)
}

func TestElfSnapshot_LoadNilNamespace(t *testing.T) {
	dir := snapshotDir(t)
	testutil.WriteFile(t, dir, "app_aot.so", testutil.BuildSnapshotELF(testSnapshot()))
	testutil.Chdir(t, dir)

	s := NewElfSnapshot()
	require.NoError(t, s.Load(nil, "app_aot.so"))
	defer s.Close()
	assert.NotNil(t, s.IsolateInstructions())
}

func TestElfSnapshot_Malformed(t *testing.T) {
	dir := snapshotDir(t)
	testutil.WriteFile(t, dir, "broken.so", []byte("\x7fELF but not really"))
	ns := &countingNamespace{ns: namespace.NewLocal(dir)}

	s := NewElfSnapshot()
	err := s.Load(ns, "broken.so")
	assert.ErrorIs(t, err, ErrLoadELF)
	assert.ErrorIs(t, err, elfloader.ErrInvalidImage)

	assert.Equal(t, int32(1), ns.closes.Load())
	assert.False(t, s.Loaded())
	for _, p := range regionPointers(s) {
		assert.Nil(t, p)
	}
	assert.NoError(t, s.Close())
}

func TestElfSnapshot_MissingSymbol(t *testing.T) {
	dir := snapshotDir(t)
	img := testSnapshot()
	img.OmitSymbol = testutil.SymVMData
	testutil.WriteFile(t, dir, "partial.so", testutil.BuildSnapshotELF(img))

	s := NewElfSnapshot()
	err := s.Load(namespace.NewLocal(dir), "partial.so")
	assert.ErrorIs(t, err, elfloader.ErrMissingSymbol)
	assert.Nil(t, s.IsolateData())
}

func TestElfSnapshot_OpenErrors(t *testing.T) {
	dir := snapshotDir(t)

	t.Run("missing file", func(t *testing.T) {
		ns := &countingNamespace{ns: namespace.NewLocal(dir)}
		err := NewElfSnapshot().Load(ns, "missing.so")
		assert.ErrorIs(t, err, ErrOpenFile)
		assert.ErrorIs(t, err, os.ErrNotExist)
		assert.Equal(t, int32(1), ns.closes.Load())
	})

	t.Run("namespace", func(t *testing.T) {
		err := NewElfSnapshot().Load(&countingNamespace{openErr: errNoRoot}, "app.so")
		assert.ErrorIs(t, err, ErrOpenNamespace)
	})
}

func TestElfSnapshot_AlreadyLoaded(t *testing.T) {
	dir := snapshotDir(t)
	testutil.WriteFile(t, dir, "app_aot.so", testutil.BuildSnapshotELF(testSnapshot()))
	ns := namespace.NewLocal(dir)

	s := NewElfSnapshot()
	require.NoError(t, s.Load(ns, "app_aot.so"))
	defer s.Close()
	vmData := s.VMData()

	err := s.Load(ns, "app_aot.so")
	assert.ErrorIs(t, err, ErrAlreadyLoaded)
	assert.Equal(t, vmData, s.VMData())
}

func TestElfSnapshot_LoadFile(t *testing.T) {
	if testutil.NativeMachine() == elf.EM_NONE {
		t.Skip("unknown host machine")
	}
	f, err := memfd.Create("app_aot.so")
	require.NoError(t, err)
	defer f.Close()
	_, err = f.Write(testutil.BuildSnapshotELF(testSnapshot()))
	require.NoError(t, err)

	s := NewElfSnapshot()
	require.NoError(t, s.LoadFile(f))
	defer s.Close()
	assert.Equal(t, testSnapshot().IsolateData, s.Region(elfloader.IsolateData))
}

func TestElfSnapshot_BlobNamespace(t *testing.T) {
	if testutil.NativeMachine() == elf.EM_NONE {
		t.Skip("unknown host machine")
	}
	store := blobstore.NewMemoryStore()
	store.Put("snapshots/app_aot.so", testutil.BuildSnapshotELF(testSnapshot()))
	ns := namespace.NewBlob(store)
	defer ns.Close()

	s := NewElfSnapshot()
	require.NoError(t, s.Load(ns, "snapshots/app_aot.so"))
	defer s.Close()
	assert.Equal(t, testSnapshot().VMData, s.Region(elfloader.VMData))
}

type failingLoader struct{ err error }

func (l failingLoader) Load(*os.File, int64) (*elfloader.Image, error) { return nil, l.err }

func TestElfSnapshot_LoaderError(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "app.so", []byte("x"))
	f, err := os.Open(dir + "/app.so")
	require.NoError(t, err)
	defer f.Close()

	cause := errors.New("unsupported snapshot version")
	s := NewElfSnapshot(WithLoader(failingLoader{err: cause}))
	err = s.LoadFile(f)
	assert.ErrorIs(t, err, ErrLoadELF)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "unsupported snapshot version")
	assert.False(t, s.Loaded())
}
