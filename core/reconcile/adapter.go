package reconcile

import (
	"context"

	"exercise-sync/core/record"
)

// RemoteSource loads the full remote snapshot.
type RemoteSource interface {
	ListAll(ctx context.Context) ([]record.RemoteRecord, error)
}

// LocalSource loads the full local snapshot.
type LocalSource interface {
	ListAll(ctx context.Context) ([]record.LocalRecord, error)
}

// RemoteSourceFunc adapts a function to RemoteSource.
type RemoteSourceFunc func(ctx context.Context) ([]record.RemoteRecord, error)

// ListAll calls f.
func (f RemoteSourceFunc) ListAll(ctx context.Context) ([]record.RemoteRecord, error) {
	return f(ctx)
}

// LocalSourceFunc adapts a function to LocalSource.
type LocalSourceFunc func(ctx context.Context) ([]record.LocalRecord, error)

// ListAll calls f.
func (f LocalSourceFunc) ListAll(ctx context.Context) ([]record.LocalRecord, error) {
	return f(ctx)
}
