package mapres

import (
	"errors"
	"os"
	"sync/atomic"
	"testing"

	"github.com/hupe1980/mapres/internal/mmap"
	"github.com/hupe1980/mapres/namespace"
	"github.com/hupe1980/mapres/testutil"
	"github.com/stretchr/testify/require"
)

// countingNamespace records how often its root is opened and closed.
type countingNamespace struct {
	ns      namespace.Namespace
	openErr error
	opens   atomic.Int32
	closes  atomic.Int32
}

func (c *countingNamespace) OpenRoot() (namespace.Dir, error) {
	if c.openErr != nil {
		return nil, c.openErr
	}
	d, err := c.ns.OpenRoot()
	if err != nil {
		return nil, err
	}
	c.opens.Add(1)
	return &countingDir{Dir: d, ns: c}, nil
}

type countingDir struct {
	namespace.Dir
	ns *countingNamespace
}

func (d *countingDir) Close() error {
	d.ns.closes.Add(1)
	return d.Dir.Close()
}

var errNoRoot = errors.New("namespace unavailable")

// requireExec skips the test when dir sits on a noexec mount.
func requireExec(t *testing.T, dir string) {
	t.Helper()

	path := testutil.WriteFile(t, dir, ".exec-check", []byte{0})
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	if err := mmap.CheckExecutable(int(f.Fd())); err != nil {
		t.Skipf("%s is mounted noexec", dir)
	}
}
