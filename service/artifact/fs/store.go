package fs

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/smcluster/internal/idgen"
	"github.com/viant/smcluster/service/artifact"
)

// Store implements artifact.Store on a shared filesystem directory.
//
// Values are uploaded into a hidden temporary directory next to the target
// and then moved into place, so a reader never sees a partially written record.
// Exclusivity of PutIfAbsent relies on the single-writer role assignment: the
// existence check only guards against rewriting a record a previous writer
// already published.
type Store struct {
	basePath string
	fs       afs.Service
}

// Ensure Store implements artifact.Store
var _ artifact.Store = (*Store)(nil)

// New creates a store rooted at basePath, creating the directory if needed.
func New(ctx context.Context, basePath string, options ...Option) (*Store, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}
	s := &Store{basePath: strings.TrimRight(basePath, "/")}
	for _, option := range options {
		option(s)
	}
	if s.fs == nil {
		s.fs = afs.New()
	}
	if err := s.ensureDir(ctx, s.basePath); err != nil {
		return nil, err
	}
	return s, nil
}

// Option customises the store.
type Option func(s *Store)

// WithFS sets the afs service used for storage access.
func WithFS(fs afs.Service) Option {
	return func(s *Store) { s.fs = fs }
}

// PutIfAbsent publishes data under key unless the key already exists.
func (s *Store) PutIfAbsent(ctx context.Context, key string, data []byte) error {
	target, err := s.path(key)
	if err != nil {
		return err
	}
	exists, err := s.fs.Exists(ctx, target)
	if err != nil {
		return fmt.Errorf("failed to check artifact %s: %w", key, err)
	}
	if exists {
		return fmt.Errorf("%w: %s", artifact.ErrExists, key)
	}
	parent := path.Dir(target)
	if err := s.ensureDir(ctx, parent); err != nil {
		return err
	}
	// The temporary object keeps the target's base name; afs treats a move
	// between differing names as a move into a directory.
	tmpDir := path.Join(parent, tmpPrefix+idgen.Short())
	defer func() { _ = s.fs.Delete(ctx, tmpDir) }()
	tmp := path.Join(tmpDir, path.Base(target))
	if err := s.fs.Upload(ctx, tmp, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write artifact %s: %w", key, err)
	}
	if err := s.fs.Move(ctx, tmp, target); err != nil {
		return fmt.Errorf("failed to publish artifact %s: %w", key, err)
	}
	return nil
}

const tmpPrefix = ".tmp-"

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	target, err := s.path(key)
	if err != nil {
		return nil, err
	}
	exists, err := s.fs.Exists(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("failed to check artifact %s: %w", key, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", artifact.ErrNotFound, key)
	}
	data, err := s.fs.DownloadWithURL(ctx, target)
	if err != nil {
		if ok, _ := s.fs.Exists(ctx, target); !ok {
			return nil, fmt.Errorf("%w: %s", artifact.ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to read artifact %s: %w", key, err)
	}
	return data, nil
}

// Exists reports whether key is present.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	target, err := s.path(key)
	if err != nil {
		return false, err
	}
	return s.fs.Exists(ctx, target)
}

// Delete removes key if present.
func (s *Store) Delete(ctx context.Context, key string) error {
	target, err := s.path(key)
	if err != nil {
		return err
	}
	exists, err := s.fs.Exists(ctx, target)
	if err != nil {
		return fmt.Errorf("failed to check artifact %s: %w", key, err)
	}
	if !exists {
		return nil
	}
	if err := s.fs.Delete(ctx, target); err != nil {
		return fmt.Errorf("failed to delete artifact %s: %w", key, err)
	}
	return nil
}

func (s *Store) path(key string) (string, error) {
	key = strings.Trim(key, "/")
	if key == "" || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: %q", artifact.ErrInvalidKey, key)
	}
	return path.Join(s.basePath, key), nil
}

func (s *Store) ensureDir(ctx context.Context, dir string) error {
	exists, _ := s.fs.Exists(ctx, dir)
	if exists {
		return nil
	}
	if err := s.fs.Create(ctx, dir, file.DefaultDirOsMode, true); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}
