package output

import (
	"context"

	"collectorkit/internal/domain/entities"
)

// BlobStore is a single storage backend. Implementations classify failures
// into domain.ErrNotFound, domain.ErrAccessDenied or domain.ErrTransient;
// retrying is the caller's business.
type BlobStore interface {
	Put(ctx context.Context, bucket, name string, data []byte, attrs entities.ObjectAttrs) (*entities.ObjectInfo, error)
	Get(ctx context.Context, bucket, name string) ([]byte, error)
	Delete(ctx context.Context, bucket, name string) error
	Stat(ctx context.Context, bucket, name string) (*entities.ObjectInfo, error)
	List(ctx context.Context, bucket string, query entities.ObjectQuery) ([]entities.ObjectInfo, error)
}
