package pebble

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/LeJamon/txdiffusion/internal/storage/database"
)

// Manager opens named databases under one directory and closes them
// together.
type Manager struct {
	dbs  map[string]*DB
	path string
	fs   vfs.FS
	mu   sync.Mutex
}

// NewManager returns a manager rooted at path on the OS filesystem.
func NewManager(path string) *Manager {
	return NewManagerFS(path, nil)
}

// NewManagerFS is NewManager over an explicit filesystem, e.g. vfs.NewMem()
// in tests. A nil fs means the OS filesystem.
func NewManagerFS(path string, fs vfs.FS) *Manager {
	return &Manager{
		dbs:  make(map[string]*DB),
		path: path,
		fs:   fs,
	}
}

// OpenDB opens the named database, reusing an open handle.
func (m *Manager) OpenDB(name string) (database.DB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if db, exists := m.dbs[name]; exists {
		return db, nil
	}

	opts := &pebble.Options{}
	if m.fs != nil {
		opts.FS = m.fs
	}

	db, err := Open(filepath.Join(m.path, name+".db"), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", name, err)
	}

	m.dbs[name] = db
	return db, nil
}

// CloseDB closes one named database.
func (m *Manager) CloseDB(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	db, exists := m.dbs[name]
	if !exists {
		return fmt.Errorf("database %s not found", name)
	}
	delete(m.dbs, name)
	return db.Close()
}

// Close closes every open database and returns the last failure.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var lastErr error
	for name, db := range m.dbs {
		if err := db.Close(); err != nil {
			lastErr = fmt.Errorf("failed to close database %s: %w", name, err)
		}
		delete(m.dbs, name)
	}
	return lastErr
}
