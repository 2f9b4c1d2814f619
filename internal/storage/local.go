package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// LocalStore writes objects below a root directory of an afero filesystem.
type LocalStore struct {
	fs afero.Fs
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if dir == "" {
		dir = "data/documents"
	}
	osFs := afero.NewOsFs()
	if err := osFs.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return NewLocalStoreFs(afero.NewBasePathFs(osFs, dir)), nil
}

// NewLocalStoreFs wraps an existing filesystem, e.g. afero.NewMemMapFs().
func NewLocalStoreFs(fs afero.Fs) *LocalStore {
	return &LocalStore{fs: fs}
}

func (s *LocalStore) resolve(key string) (string, error) {
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return "", fmt.Errorf("invalid object key %q", key)
		}
	}
	clean := path.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.FromSlash(clean), nil
}

func (s *LocalStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	name, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := s.fs.MkdirAll(filepath.Dir(name), 0755); err != nil {
		return err
	}

	f, err := s.fs.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	written, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = s.fs.Remove(name)
		return err
	}
	if size >= 0 && written != size {
		_ = s.fs.Remove(name)
		return fmt.Errorf("short write: %d of %d bytes", written, size)
	}
	return nil
}

func (s *LocalStore) Get(ctx context.Context, key string) (*Object, error) {
	name, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := s.fs.Open(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &Object{
		Body:        f,
		Size:        info.Size(),
		ContentType: mime.TypeByExtension(path.Ext(key)),
	}, nil
}

func (s *LocalStore) Delete(ctx context.Context, key string) error {
	name, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
