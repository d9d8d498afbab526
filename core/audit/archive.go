package audit

import (
	"context"
	"path"

	"exercise-sync/core/storage"
)

// Archiver stores a completed run outside the database.
type Archiver interface {
	Archive(ctx context.Context, run *Run, items []Item) error
}

// StorageArchiver writes runs as JSON objects under prefix/<id>.json.
type StorageArchiver struct {
	client storage.Client
	bucket string
	prefix string
}

// NewStorageArchiver creates an archiver writing into bucket.
func NewStorageArchiver(client storage.Client, bucket, prefix string) *StorageArchiver {
	if prefix == "" {
		prefix = "runs"
	}
	return &StorageArchiver{client: client, bucket: bucket, prefix: prefix}
}

type archivedRun struct {
	Run   *Run   `json:"run"`
	Items []Item `json:"items"`
}

// ObjectName returns the object key for a run id.
func (s *StorageArchiver) ObjectName(runID string) string {
	return path.Join(s.prefix, runID+".json")
}

func (s *StorageArchiver) Archive(ctx context.Context, run *Run, items []Item) error {
	if items == nil {
		items = []Item{}
	}
	return storage.PutJSON(ctx, s.client, s.bucket, s.ObjectName(run.ID), archivedRun{Run: run, Items: items})
}
