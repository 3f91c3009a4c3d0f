// Package store persists the labeled observation dataset
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/tabsort/internal/model"
)

// Store is the persistent medium behind the collector. Order of
// observations is insertion order.
type Store interface {
	Load() (*Snapshot, error)
	Append(obs model.Observation) error
	ReplaceAll(obs []model.Observation) error
	Close() error
}

// Snapshot is the dataset as read at startup
type Snapshot struct {
	Observations []model.Observation
	Recovered    bool // stored data was unreadable and replaced by an empty dataset
}

// Open creates the store selected by cfg.Backend
func Open(cfg model.StoreConfig) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "file", "json":
		return NewFileStore(cfg.Path), nil
	case "sqlite", "sqlite3":
		return NewSQLiteStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown store backend: %s (supported: file, sqlite)", cfg.Backend)
	}
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	return nil
}
