package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/ppiankov/tabsort/internal/model"
)

// FileStore keeps the dataset in a single pretty-printed JSON array.
// Every mutation rewrites the whole file through a temp file and rename.
type FileStore struct {
	path string

	mu      sync.Mutex
	current []model.Observation
	loaded  bool
}

// NewFileStore creates a store backed by the JSON file at path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the dataset. A missing file is an empty dataset; an unreadable
// one is reported as recovered.
func (s *FileStore) Load() (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load()
	if err != nil {
		return nil, err
	}
	s.current = snap.Observations
	s.loaded = true

	out := make([]model.Observation, len(snap.Observations))
	copy(out, snap.Observations)
	return &Snapshot{Observations: out, Recovered: snap.Recovered}, nil
}

func (s *FileStore) load() (*Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Snapshot{Observations: []model.Observation{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}

	var obs []model.Observation
	if err := json.Unmarshal(data, &obs); err != nil || obs == nil {
		return &Snapshot{Observations: []model.Observation{}, Recovered: true}, nil
	}
	return &Snapshot{Observations: obs}, nil
}

// Append adds one observation and rewrites the file
func (s *FileStore) Append(obs model.Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		snap, err := s.load()
		if err != nil {
			return err
		}
		s.current = snap.Observations
		s.loaded = true
	}

	next := make([]model.Observation, len(s.current), len(s.current)+1)
	copy(next, s.current)
	next = append(next, obs)

	if err := s.write(next); err != nil {
		return err
	}
	s.current = next
	return nil
}

// ReplaceAll overwrites the dataset
func (s *FileStore) ReplaceAll(obs []model.Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]model.Observation, len(obs))
	copy(next, obs)

	if err := s.write(next); err != nil {
		return err
	}
	s.current = next
	s.loaded = true
	return nil
}

// Close is a no-op; every mutation is already on disk
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) write(obs []model.Observation) error {
	if err := ensureDir(s.path); err != nil {
		return err
	}

	data, err := Encode(obs)
	if err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".dataset-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write dataset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write dataset: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace dataset: %w", err)
	}
	return nil
}

// Encode renders observations as a 2-space indented JSON array with
// non-ASCII text and HTML characters left unescaped
func Encode(obs []model.Observation) ([]byte, error) {
	if obs == nil {
		obs = []model.Observation{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(obs); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
