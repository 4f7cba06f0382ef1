package backing

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store manages the set of named contexts living in one directory on disk —
// one directory per database, one file per named context.
// Context names are validated and, when the caller does not supply one, are
// generated from a namespace and a fresh UUID (see GenerateContextName).
type Store struct {
	dir      string
	pageSize int

	mu       sync.Mutex
	contexts map[string]*FileStrategy
}

// NewStore opens a Store rooted at dir, creating the directory if absent.
func NewStore(dir string, pageSize int) (*Store, error) {
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("backing: create store dir: %w", err)
	}
	return &Store{dir: dir, pageSize: pageSize, contexts: map[string]*FileStrategy{}}, nil
}

// contextPath returns the on-disk file path for a context name.
func (s *Store) contextPath(name string) string {
	return filepath.Join(s.dir, name+".llamactx")
}

// Open returns the FileStrategy for an existing or new context, opening its
// backing file on first use. Concurrent Open calls for the same name return
// the same *FileStrategy.
func (s *Store) Open(name string) (*FileStrategy, error) {
	if err := ValidateContextName(name); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if fs, ok := s.contexts[name]; ok {
		return fs, nil
	}
	fs, err := OpenFileStrategy(FileConfig{
		Path:        s.contextPath(name),
		ContextName: name,
		PageSize:    s.pageSize,
	})
	if err != nil {
		return nil, err
	}
	s.contexts[name] = fs
	return fs, nil
}

// Create opens a brand-new context, generating a name under namespace when
// name is empty, and fails with ErrContextExists if a file for that name is
// already on disk.
func (s *Store) Create(namespace, name string) (*FileStrategy, error) {
	if name == "" {
		name = GenerateContextName(namespace)
	} else if namespace != "" {
		name = JoinContextName(namespace, name, 0)
	}
	if err := ValidateContextName(name); err != nil {
		return nil, err
	}
	if _, err := os.Stat(s.contextPath(name)); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrContextExists, name)
	}
	return s.Open(name)
}

// Names lists every context currently open through this Store.
func (s *Store) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.contexts))
	for name := range s.contexts {
		out = append(out, name)
	}
	return out
}

// Close syncs and closes every open context.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for name, fs := range s.contexts {
		if err := fs.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("backing: close context %q: %w", name, err)
		}
		delete(s.contexts, name)
	}
	return firstErr
}
