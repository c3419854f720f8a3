// Package s3 provides an Amazon S3 implementation of blobstore.BlobStore.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("snapshots/"),
//	    s3.WithRegion("eu-central-1"),
//	)
//
//	ns := namespace.NewBlob(store)
//
// # Features
//
//   - Range reads for partial fetches
//   - Parallel multi-part downloads (feature/s3/manager) when a whole
//     resource is materialized into memory
//   - Configurable prefix for multi-tenant isolation
package s3
