// Package local stores blobs on disk: one directory per bucket, metadata in
// JSON sidecars under <root>/.meta, and writes serialised per bucket with a
// file lock so several processes can share a root.
package local

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"
	jsoniter "github.com/json-iterator/go"

	"collectorkit/internal/domain"
	"collectorkit/internal/domain/entities"
	"collectorkit/internal/ports/output"
)

var _ output.BlobStore = (*Store)(nil)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	metaDir       = ".meta"
	lockDir       = ".locks"
	metaSuffix    = ".json"
	lockRetryWait = 20 * time.Millisecond
)

type sidecar struct {
	ContentType string            `json:"content_type"`
	ETag        string            `json:"etag"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type Store struct {
	root string
}

// New prepares root for use.
func New(root string) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("local storage: empty root")
	}
	for _, dir := range []string{root, filepath.Join(root, metaDir), filepath.Join(root, lockDir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, classify("local storage: prepare "+dir, err)
		}
	}
	return &Store{root: root}, nil
}

func (s *Store) objectPath(bucket, name string) string {
	return filepath.Join(s.root, bucket, filepath.FromSlash(name))
}

func (s *Store) metaPath(bucket, name string) string {
	return filepath.Join(s.root, metaDir, bucket, filepath.FromSlash(name)+metaSuffix)
}

func (s *Store) lock(ctx context.Context, bucket string, exclusive bool) (func(), error) {
	fl := flock.New(filepath.Join(s.root, lockDir, bucket+".lock"))
	var locked bool
	var err error
	if exclusive {
		locked, err = fl.TryLockContext(ctx, lockRetryWait)
	} else {
		locked, err = fl.TryRLockContext(ctx, lockRetryWait)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, domain.Wrap("lock bucket "+bucket, domain.ErrTransient, err)
		}
		return nil, classify("lock bucket "+bucket, err)
	}
	if !locked {
		return nil, domain.Wrap("lock bucket "+bucket, domain.ErrTransient, nil)
	}
	return func() { _ = fl.Unlock() }, nil
}

func (s *Store) Put(ctx context.Context, bucket, name string, data []byte, attrs entities.ObjectAttrs) (*entities.ObjectInfo, error) {
	op := fmt.Sprintf("put %s/%s", bucket, name)
	if !filepath.IsLocal(filepath.FromSlash(name)) {
		return nil, domain.Wrap(op, domain.ErrValidationFailed, errors.New("name escapes bucket"))
	}
	unlock, err := s.lock(ctx, bucket, true)
	if err != nil {
		return nil, err
	}
	defer unlock()

	sum := md5.Sum(data)
	meta := sidecar{
		ContentType: attrs.ContentType,
		ETag:        hex.EncodeToString(sum[:]),
		Metadata:    attrs.Metadata,
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("%s: encode metadata: %w", op, err)
	}
	if err := writeAtomic(s.objectPath(bucket, name), data); err != nil {
		return nil, classify(op, err)
	}
	if err := writeAtomic(s.metaPath(bucket, name), raw); err != nil {
		return nil, classify(op, err)
	}
	return s.stat(bucket, name)
}

func (s *Store) Get(ctx context.Context, bucket, name string) ([]byte, error) {
	unlock, err := s.lock(ctx, bucket, false)
	if err != nil {
		return nil, err
	}
	defer unlock()

	data, err := os.ReadFile(s.objectPath(bucket, name))
	if err != nil {
		return nil, classify(fmt.Sprintf("get %s/%s", bucket, name), err)
	}
	return data, nil
}

func (s *Store) Delete(ctx context.Context, bucket, name string) error {
	unlock, err := s.lock(ctx, bucket, true)
	if err != nil {
		return err
	}
	defer unlock()

	if err := os.Remove(s.objectPath(bucket, name)); err != nil {
		return classify(fmt.Sprintf("delete %s/%s", bucket, name), err)
	}
	if err := os.Remove(s.metaPath(bucket, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return classify(fmt.Sprintf("delete %s/%s metadata", bucket, name), err)
	}
	return nil
}

func (s *Store) Stat(ctx context.Context, bucket, name string) (*entities.ObjectInfo, error) {
	unlock, err := s.lock(ctx, bucket, false)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return s.stat(bucket, name)
}

func (s *Store) stat(bucket, name string) (*entities.ObjectInfo, error) {
	op := fmt.Sprintf("stat %s/%s", bucket, name)
	fi, err := os.Stat(s.objectPath(bucket, name))
	if err != nil {
		return nil, classify(op, err)
	}
	if fi.IsDir() {
		return nil, domain.Wrap(op, domain.ErrNotFound, nil)
	}
	info := &entities.ObjectInfo{
		Bucket:    bucket,
		Name:      name,
		Size:      fi.Size(),
		UpdatedAt: fi.ModTime().UTC(),
	}
	raw, err := os.ReadFile(s.metaPath(bucket, name))
	switch {
	case err == nil:
		var meta sidecar
		if err := json.Unmarshal(raw, &meta); err != nil {
			return nil, domain.Wrap(op+": metadata", domain.ErrParseError, err)
		}
		info.ContentType = meta.ContentType
		info.ETag = meta.ETag
		info.Metadata = meta.Metadata
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, classify(op, err)
	}
	return info, nil
}

func (s *Store) List(ctx context.Context, bucket string, query entities.ObjectQuery) ([]entities.ObjectInfo, error) {
	unlock, err := s.lock(ctx, bucket, false)
	if err != nil {
		return nil, err
	}
	defer unlock()

	base := filepath.Join(s.root, bucket)
	var names []string
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".tmp-") {
			return nil
		}
		rel, err := filepath.Rel(base, p)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if strings.HasPrefix(name, query.Prefix) {
			names = append(names, name)
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return []entities.ObjectInfo{}, nil
	}
	if err != nil {
		return nil, classify("list "+bucket, err)
	}

	sort.Strings(names)
	if query.Limit > 0 && len(names) > query.Limit {
		names = names[:query.Limit]
	}
	out := make([]entities.ObjectInfo, 0, len(names))
	for _, name := range names {
		info, err := s.stat(bucket, name)
		if err != nil {
			return nil, err
		}
		out = append(out, *info)
	}
	return out, nil
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func classify(op string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return domain.Wrap(op, domain.ErrNotFound, err)
	case errors.Is(err, fs.ErrPermission):
		return domain.Wrap(op, domain.ErrAccessDenied, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
