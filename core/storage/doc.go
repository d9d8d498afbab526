// Package storage archives sync runs to S3-compatible object storage.
//
// Client is the slice of the MinIO API the archive needs; a *minio.Client
// satisfies it directly and core/storage/mocks provides a testify mock.
// PutJSON writes one JSON document per object and CountObjects backs the
// archive integrity check.
//
//	client, err := storage.NewClient(cfg.Storage)
//	if err := storage.EnsureBucket(ctx, client, cfg.Storage.Bucket, cfg.Storage.Region); err != nil {
//	    return err
//	}
package storage
