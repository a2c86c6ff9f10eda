package dummystore

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/kazimoto/tarefa/core"
)

// Store is an in-memory core.ObjectStore for tests.
type Store struct {
	mu      sync.RWMutex
	objects map[string][]byte

	// FailPut maps paths to errors, letting tests force per-file failures
	// in the middle of a merge.
	FailPut map[string]error
}

var _ core.ObjectStore = (*Store)(nil)

func New() *Store {
	return &Store{objects: make(map[string][]byte)}
}

func (s *Store) List(_ context.Context, folder string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := strings.TrimSuffix(folder, "/") + "/"
	names := make([]string, 0)
	for path := range s.objects {
		if rest := strings.TrimPrefix(path, prefix); rest != path && !strings.Contains(rest, "/") {
			names = append(names, rest)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) Put(_ context.Context, path string, r io.Reader) error {
	if err, ok := s.FailPut[path]; ok {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.objects[path] = data
	s.mu.Unlock()
	return nil
}

func (s *Store) Get(_ context.Context, path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.objects[path]
	if !ok {
		return nil, errors.New("object not found: " + path)
	}
	return data, nil
}

func (s *Store) Remove(_ context.Context, path string) error {
	s.mu.Lock()
	delete(s.objects, path)
	s.mu.Unlock()
	return nil
}

// Len reports the number of stored objects.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
