// Package gcs is the Google Cloud Storage BlobStore backend.
package gcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"collectorkit/internal/domain"
	"collectorkit/internal/domain/entities"
	"collectorkit/internal/ports/output"
)

var _ output.BlobStore = (*Store)(nil)

type Store struct {
	client *storage.Client
}

// New connects with application default credentials. A non-empty endpoint
// targets an emulator and disables authentication.
func New(ctx context.Context, endpoint string) (*Store, error) {
	var opts []option.ClientOption
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint), option.WithoutAuthentication())
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs: new client: %w", err)
	}
	return newStore(client), nil
}

// newStore disables SDK retries so each attempt of the storage facade is one request.
func newStore(client *storage.Client) *Store {
	client.SetRetry(storage.WithPolicy(storage.RetryNever))
	return &Store{client: client}
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Put(ctx context.Context, bucket, name string, data []byte, attrs entities.ObjectAttrs) (*entities.ObjectInfo, error) {
	op := fmt.Sprintf("gcs put %s/%s", bucket, name)
	w := s.client.Bucket(bucket).Object(name).NewWriter(ctx)
	w.ContentType = attrs.ContentType
	w.Metadata = attrs.Metadata
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		w.Close()
		return nil, classify(op, err)
	}
	if err := w.Close(); err != nil {
		return nil, classify(op, err)
	}
	return toInfo(w.Attrs()), nil
}

func (s *Store) Get(ctx context.Context, bucket, name string) ([]byte, error) {
	op := fmt.Sprintf("gcs get %s/%s", bucket, name)
	r, err := s.client.Bucket(bucket).Object(name).NewReader(ctx)
	if err != nil {
		return nil, classify(op, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, classify(op, err)
	}
	return data, nil
}

func (s *Store) Delete(ctx context.Context, bucket, name string) error {
	if err := s.client.Bucket(bucket).Object(name).Delete(ctx); err != nil {
		return classify(fmt.Sprintf("gcs delete %s/%s", bucket, name), err)
	}
	return nil
}

func (s *Store) Stat(ctx context.Context, bucket, name string) (*entities.ObjectInfo, error) {
	attrs, err := s.client.Bucket(bucket).Object(name).Attrs(ctx)
	if err != nil {
		return nil, classify(fmt.Sprintf("gcs stat %s/%s", bucket, name), err)
	}
	return toInfo(attrs), nil
}

func (s *Store) List(ctx context.Context, bucket string, query entities.ObjectQuery) ([]entities.ObjectInfo, error) {
	it := s.client.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: query.Prefix})
	out := []entities.ObjectInfo{}
	for query.Limit <= 0 || len(out) < query.Limit {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, classify("gcs list "+bucket, err)
		}
		out = append(out, *toInfo(attrs))
	}
	return out, nil
}

func toInfo(a *storage.ObjectAttrs) *entities.ObjectInfo {
	if a == nil {
		return &entities.ObjectInfo{}
	}
	return &entities.ObjectInfo{
		Bucket:      a.Bucket,
		Name:        a.Name,
		Size:        a.Size,
		ContentType: a.ContentType,
		ETag:        a.Etag,
		Metadata:    a.Metadata,
		UpdatedAt:   a.Updated.UTC(),
	}
}

// classify maps GCS failures onto the domain error kinds.
func classify(op string, err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return domain.Wrap(op, domain.ErrNotFound, err)
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == http.StatusNotFound:
			return domain.Wrap(op, domain.ErrNotFound, err)
		case gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden:
			return domain.Wrap(op, domain.ErrAccessDenied, err)
		case gerr.Code == http.StatusTooManyRequests || gerr.Code == http.StatusRequestTimeout || gerr.Code >= 500:
			return domain.Wrap(op, domain.ErrTransient, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	var nerr net.Error
	if errors.As(err, &nerr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return domain.Wrap(op, domain.ErrTransient, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
