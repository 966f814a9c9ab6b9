// Package agentconfig stores the patch management agent settings: in the
// Windows registry on the agent host, or in a TOML file elsewhere.
package agentconfig

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/pelletier/go-toml/v2"

	"collectorkit/internal/domain"
	"collectorkit/internal/ports/output"
)

var _ output.AgentSettings = (*FileStore)(nil)

const lockRetryWait = 20 * time.Millisecond

// document maps a key path to its named values.
type document map[string]map[string]uint32

// FileStore keeps the settings in one TOML file, one table per key. Writers
// hold an exclusive lock on a sibling .lock file.
type FileStore struct {
	path string
}

func NewFileStore(path string) (*FileStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("agent settings: empty file path")
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) SetDWORD(ctx context.Context, key, name string, value uint32) error {
	op := fmt.Sprintf("set %s\\%s", key, name)
	if key == "" || name == "" {
		return domain.Wrap(op, domain.ErrValidationFailed, errors.New("empty key or value name"))
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return classify(op, err)
	}
	unlock, err := s.lock(ctx, op, true)
	if err != nil {
		return err
	}
	defer unlock()

	doc, err := s.read()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return classify(op, err)
	}
	if doc == nil {
		doc = document{}
	}
	if doc[key] == nil {
		doc[key] = map[string]uint32{}
	}
	doc[key][name] = value

	raw, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%s: encode: %w", op, err)
	}
	if err := writeAtomic(s.path, raw); err != nil {
		return classify(op, err)
	}
	return nil
}

func (s *FileStore) DWORD(ctx context.Context, key, name string) (uint32, error) {
	op := fmt.Sprintf("read %s\\%s", key, name)
	if _, err := os.Stat(s.path); err != nil {
		return 0, classify(op, err)
	}
	unlock, err := s.lock(ctx, op, false)
	if err != nil {
		return 0, err
	}
	defer unlock()

	doc, err := s.read()
	if err != nil {
		return 0, classify(op, err)
	}
	value, ok := doc[key][name]
	if !ok {
		return 0, domain.Wrap(op, domain.ErrNotFound, nil)
	}
	return value, nil
}

func (s *FileStore) read() (document, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	doc := document{}
	if err := toml.Unmarshal(raw, &doc); err != nil {
		return nil, domain.Wrap("decode "+s.path, domain.ErrParseError, err)
	}
	return doc, nil
}

func (s *FileStore) lock(ctx context.Context, op string, exclusive bool) (func(), error) {
	fl := flock.New(s.path + ".lock")
	var locked bool
	var err error
	if exclusive {
		locked, err = fl.TryLockContext(ctx, lockRetryWait)
	} else {
		locked, err = fl.TryRLockContext(ctx, lockRetryWait)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, domain.Wrap(op, domain.ErrTransient, err)
		}
		return nil, classify(op, err)
	}
	if !locked {
		return nil, domain.Wrap(op, domain.ErrTransient, nil)
	}
	return func() { _ = fl.Unlock() }, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".agent-*")
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
