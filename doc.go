// Package mapres maps read-only resources and AOT program snapshots into
// process memory.
//
// # Mapped resources
//
// A MappedResource maps a file from a namespace read-only, or read+execute
// when the caller intends to run code from it:
//
//	ns := namespace.NewLocal("/pkg/data")
//	res := mapres.NewMappedResource()
//	if err := res.LoadFromNamespace(ns, "fonts/Roboto.ttf", false); err != nil {
//	    return err
//	}
//	defer res.Close()
//
//	font := res.Bytes()
//
// Passing a nil namespace resolves paths against the working directory.
// Paths must be relative: an absolute path would escape the namespace, so
// LoadFromNamespace panics on one.
//
// # ELF snapshots
//
// An ElfSnapshot loads an image exporting the four snapshot regions:
//
//	snap := mapres.NewElfSnapshot(mapres.WithLogger(mapres.NewTextLogger(slog.LevelDebug)))
//	if err := snap.Load(ns, "app_aot.so"); err != nil {
//	    return err
//	}
//	defer snap.Close()
//
//	start(snap.VMData(), snap.VMInstructions(), snap.IsolateData(), snap.IsolateInstructions())
//
// Region pointers are valid until Close.
//
// # Remote resources
//
// The namespace package can serve resources from a blob store (local
// directory, MinIO, S3). Blobs are materialized into sealed anonymous memory
// files, so they map exactly like local files:
//
//	store, _ := s3.New(ctx, "my-bucket", s3.WithPrefix("assets/"))
//	ns := namespace.NewBlob(store, namespace.WithDecompression(true))
//
// # Resource limits
//
// A resource.Controller caps the total mapped bytes and the number of
// concurrent loads in LoadResources:
//
//	rc := resource.NewController(resource.Config{MemoryLimitBytes: 256 << 20})
//	res := mapres.NewMappedResource(mapres.WithResourceController(rc))
//
// Instances are not safe for concurrent Load and Close.
package mapres
