// Package minio provides a BlobStore backed by MinIO or any S3-compatible
// object store, for serving snapshots and assets through a blob namespace.
//
// # Basic Usage
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.NewStore(client, "snapshots", "app/v42/")
//	ns := namespace.NewBlob(store)
//
//	snap := mapres.NewElfSnapshot()
//	err = snap.Load(ns, "app.so")
//
// # Features
//
//   - Native MinIO client
//   - Works with any S3-compatible storage (Ceph, Garage, SeaweedFS)
//   - Ranged GETs for partial reads
package minio
