package namespace

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hupe1980/mapres/blobstore"
	"github.com/hupe1980/mapres/internal/cache"
	"github.com/hupe1980/mapres/internal/memfd"
	"github.com/hupe1980/mapres/resource"
)

// DefaultBlobCacheBytes bounds the materialized-file cache of a Blob namespace.
const DefaultBlobCacheBytes = 64 << 20

type blobOptions struct {
	rc         *resource.Controller
	cacheBytes int64
	decompress bool
	timeout    time.Duration
	logger     *slog.Logger
}

// BlobOption configures a Blob namespace.
type BlobOption func(*blobOptions)

// WithController rate-limits materialization with the controller's IO limit.
func WithController(rc *resource.Controller) BlobOption {
	return func(o *blobOptions) {
		o.rc = rc
	}
}

// WithCacheBytes sets the size of the materialized-file cache.
// Zero disables caching.
func WithCacheBytes(n int64) BlobOption {
	return func(o *blobOptions) {
		o.cacheBytes = n
	}
}

// WithDecompression transparently decodes zstd and LZ4 framed blobs.
func WithDecompression(enabled bool) BlobOption {
	return func(o *blobOptions) {
		o.decompress = enabled
	}
}

// WithTimeout bounds each materialization. Zero means no timeout.
func WithTimeout(d time.Duration) BlobOption {
	return func(o *blobOptions) {
		o.timeout = d
	}
}

// WithBlobLogger sets the logger for materialization events.
func WithBlobLogger(l *slog.Logger) BlobOption {
	return func(o *blobOptions) {
		o.logger = l
	}
}

// Blob is a namespace backed by a blobstore.BlobStore. Opening a file
// streams the blob into a sealed anonymous memory file, so the result can be
// mapped exactly like a local file.
type Blob struct {
	store blobstore.BlobStore
	opts  blobOptions
	cache *cache.FileCache
}

// NewBlob returns a namespace serving the blobs of store.
func NewBlob(store blobstore.BlobStore, optFns ...BlobOption) *Blob {
	opts := blobOptions{
		cacheBytes: DefaultBlobCacheBytes,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.logger == nil {
		opts.logger = slog.New(slog.DiscardHandler)
	}

	return &Blob{
		store: store,
		opts:  opts,
		cache: cache.NewFileCache(opts.cacheBytes),
	}
}

// OpenRoot returns a Dir over the blob store. It never fails.
func (n *Blob) OpenRoot() (Dir, error) {
	return &blobDir{ns: n}, nil
}

// Invalidate drops any cached copy of name, forcing the next open to fetch.
func (n *Blob) Invalidate(name string) {
	n.cache.Invalidate(path.Clean(name))
}

// CacheStats returns hit and miss counts of the materialized-file cache.
func (n *Blob) CacheStats() (hits, misses int64) {
	return n.cache.Stats()
}

// Close releases all cached files.
func (n *Blob) Close() error {
	return n.cache.Close()
}

func (n *Blob) open(name string) (*os.File, error) {
	key := path.Clean(name)

	f, ok, err := n.cache.Get(key)
	if err != nil {
		return nil, err
	}
	if ok {
		return f, nil
	}

	ctx := context.Background()
	if n.opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.opts.timeout)
		defer cancel()
	}

	start := time.Now()
	f, size, err := n.materialize(ctx, key)
	if err != nil {
		n.opts.logger.Error("materialize failed", "name", key, "error", err)
		return nil, err
	}
	n.opts.logger.Debug("materialized", "name", key, "bytes", size, "duration", time.Since(start))

	dup, err := memfd.Dup(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	if !n.cache.Put(key, f, size) {
		f.Close()
	}
	return dup, nil
}

func (n *Blob) materialize(ctx context.Context, name string) (*os.File, int64, error) {
	blob, err := n.store.Open(ctx, name)
	if err != nil {
		return nil, 0, &os.PathError{Op: "open", Path: name, Err: err}
	}
	defer blob.Close()

	f, err := memfd.Create(path.Base(name))
	if err != nil {
		return nil, 0, err
	}

	size, err := n.fill(ctx, blob, f)
	if err == nil {
		_, err = f.Seek(0, io.SeekStart)
	}
	if err == nil {
		err = memfd.Seal(f)
	}
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("materialize %s: %w", name, err)
	}
	return f, size, nil
}

func (n *Blob) fill(ctx context.Context, blob blobstore.Blob, f *os.File) (int64, error) {
	if d, ok := blob.(blobstore.Downloader); ok && !n.opts.decompress {
		if err := n.waitIO(ctx, blob.Size()); err != nil {
			return 0, err
		}
		return d.DownloadTo(ctx, f)
	}

	rc, err := blob.ReadRange(ctx, 0, blob.Size())
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	var r io.Reader = rc
	if n.opts.decompress {
		dec, _, err := blobstore.NewDecompressor(rc)
		if err != nil {
			return 0, err
		}
		defer dec.Close()
		r = dec
	}

	return io.Copy(f, resource.NewRateLimitedReader(ctx, r, n.opts.rc))
}

// waitIO charges size bytes against the IO limit in burst-sized steps.
func (n *Blob) waitIO(ctx context.Context, size int64) error {
	burst := int64(n.opts.rc.IOBurst())
	if burst == 0 {
		return nil
	}
	for size > 0 {
		step := min(size, burst)
		if err := n.opts.rc.AcquireIO(ctx, int(step)); err != nil {
			return err
		}
		size -= step
	}
	return nil
}

type blobDir struct {
	ns     *Blob
	closed atomic.Bool
}

func (d *blobDir) Open(name string, rights Rights) (*os.File, error) {
	if d.closed.Load() {
		return nil, ErrClosed
	}
	if rights&RightReadable == 0 {
		return nil, &os.PathError{Op: "open", Path: name, Err: ErrNotReadable}
	}
	if !isLocal(name) {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrInvalid}
	}

	f, err := d.ns.open(name)
	if err != nil {
		return nil, err
	}
	return checkRights(f, name, rights)
}

func (d *blobDir) Close() error {
	if d.closed.Swap(true) {
		return ErrClosed
	}
	return nil
}

// isLocal reports whether a slash-separated name stays inside its root.
func isLocal(name string) bool {
	if name == "" || path.IsAbs(name) {
		return false
	}
	clean := path.Clean(name)
	return clean != "." && clean != ".." && !strings.HasPrefix(clean, "../")
}
