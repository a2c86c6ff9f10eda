package diskstore

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/kazimoto/tarefa/core"
)

// Store keeps objects on the local filesystem under a root directory.
// Slash-separated object paths map to directories; writes overwrite in
// place.
type Store struct {
	root string
}

var _ core.ObjectStore = (*Store)(nil)

func New(root string) *Store {
	return &Store{root: root}
}

func (s *Store) abs(path string) string {
	return filepath.Join(s.root, filepath.FromSlash(path))
}

func (s *Store) List(_ context.Context, folder string) ([]string, error) {
	entries, err := os.ReadDir(s.abs(folder))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, errors.Wrap(err, "listing folder "+folder)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func (s *Store) Put(_ context.Context, path string, r io.Reader) error {
	abs := s.abs(path)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return errors.Wrap(err, "creating folder for "+path)
	}
	f, err := os.Create(abs)
	if err != nil {
		return errors.Wrap(err, "creating "+path)
	}
	defer f.Close()
	if _, err = io.Copy(f, r); err != nil {
		return errors.Wrap(err, "writing "+path)
	}
	return nil
}

func (s *Store) Get(_ context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(s.abs(path))
	if err != nil {
		return nil, errors.Wrap(err, "reading "+path)
	}
	return data, nil
}

func (s *Store) Remove(_ context.Context, path string) error {
	if err := os.Remove(s.abs(path)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing "+path)
	}
	return nil
}
