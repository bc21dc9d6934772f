// Package catalog owns index file naming and lifecycle: it creates, opens,
// drops and closes the trees the query layer asks for, and keeps a registry
// of the ones currently open.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	bplus "CinderDB/bplustree"
)

var (
	ErrIndexExists   = errors.New("index already exists")
	ErrIndexNotFound = errors.New("index not found")
)

// IndexManager maps index names to open trees under one base directory.
type IndexManager struct {
	baseDir string
	logger  *zap.Logger
	trees   map[string]*bplus.BPlusTree
	mu      sync.Mutex
}

// NewIndexManager prepares the base directory and an empty registry.
func NewIndexManager(baseDir string, logger *zap.Logger) (*IndexManager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create index directory %s: %w", baseDir, err)
	}
	return &IndexManager{
		baseDir: baseDir,
		logger:  logger,
		trees:   make(map[string]*bplus.BPlusTree),
	}, nil
}

// Create makes a fresh index file and registers the open tree.
func (m *IndexManager) Create(name string, opts bplus.Options) (*bplus.BPlusTree, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, open := m.trees[name]; open {
		return nil, fmt.Errorf("index %s: %w", name, ErrIndexExists)
	}
	path := m.IndexPath(name)
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("index %s: %w", name, ErrIndexExists)
	}

	tree, err := bplus.Open(path, opts)
	if err != nil {
		return nil, err
	}
	m.trees[name] = tree
	m.logger.Info("index created",
		zap.String("name", name),
		zap.Int32("order", tree.Order()),
		zap.Int32("keySize", tree.KeySize()))
	return tree, nil
}

// Open returns the registered tree, opening the index file on first use.
func (m *IndexManager) Open(name string, opts bplus.Options) (*bplus.BPlusTree, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if tree, open := m.trees[name]; open {
		return tree, nil
	}
	path := m.IndexPath(name)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("index %s: %w", name, ErrIndexNotFound)
	}

	tree, err := bplus.Open(path, opts)
	if err != nil {
		return nil, err
	}
	m.trees[name] = tree
	m.logger.Info("index opened", zap.String("name", name))
	return tree, nil
}

// Close flushes and deregisters one index.
func (m *IndexManager) Close(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeLocked(name)
}

func (m *IndexManager) closeLocked(name string) error {
	tree, open := m.trees[name]
	if !open {
		return fmt.Errorf("index %s: %w", name, ErrIndexNotFound)
	}
	delete(m.trees, name)
	if err := tree.Close(); err != nil {
		return fmt.Errorf("close index %s: %w", name, err)
	}
	m.logger.Info("index closed", zap.String("name", name))
	return nil
}

// Drop closes the index if open and deletes its file.
func (m *IndexManager) Drop(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, open := m.trees[name]; open {
		if err := m.closeLocked(name); err != nil {
			return err
		}
	}
	path := m.IndexPath(name)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("index %s: %w", name, ErrIndexNotFound)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("drop index %s: %w", name, err)
	}
	m.logger.Info("index dropped", zap.String("name", name))
	return nil
}

// CloseAll flushes and deregisters every open index, keeping the first error.
func (m *IndexManager) CloseAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for name, tree := range m.trees {
		if err := tree.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close index %s: %w", name, err)
		}
		delete(m.trees, name)
	}
	return firstErr
}

// IndexPath names the index file for an index name.
func (m *IndexManager) IndexPath(name string) string {
	return filepath.Join(m.baseDir, name+".idx")
}

// HeapPath names the base-table heap file for a table name.
func (m *IndexManager) HeapPath(name string) string {
	return filepath.Join(m.baseDir, name+".bin")
}
