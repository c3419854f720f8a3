package mapres

import (
	"context"
	"runtime"

	"github.com/hupe1980/mapres/namespace"
	"golang.org/x/sync/errgroup"
)

// ResourceRequest names one resource for LoadResources.
type ResourceRequest struct {
	Path       string
	Executable bool
}

// LoadResources maps every request from ns on worker goroutines. With a
// resource controller, concurrency is bounded by its background worker
// slots; otherwise by GOMAXPROCS.
//
// Results are in request order. If any load fails, the resources mapped so
// far are closed and the first error is returned. LoadResources panics if
// any path is absolute.
func LoadResources(ctx context.Context, ns namespace.Namespace, reqs []ResourceRequest, optFns ...Option) ([]*MappedResource, error) {
	for _, req := range reqs {
		mustBeRelative(req.Path)
	}

	o := newOptions(optFns)
	out := make([]*MappedResource, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	if o.rc == nil {
		g.SetLimit(runtime.GOMAXPROCS(0))
	}

	for i, req := range reqs {
		g.Go(func() error {
			if err := o.rc.AcquireBackground(gctx); err != nil {
				return err
			}
			defer o.rc.ReleaseBackground()

			if err := gctx.Err(); err != nil {
				return err
			}

			r := NewMappedResource(optFns...)
			if err := r.LoadFromNamespace(ns, req.Path, req.Executable); err != nil {
				return err
			}
			out[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, r := range out {
			if r != nil {
				_ = r.Close()
			}
		}
		return nil, err
	}
	return out, nil
}
