package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/ppiankov/tabsort/internal/model"
)

//go:embed schema.sql
var schema string

// SQLiteStore keeps observations in a SQLite table ordered by rowid
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and creates if needed) the database at dbPath
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := ensureDir(dbPath); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps :memory: databases alive and serializes writes
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Load returns all observations in insertion order
func (s *SQLiteStore) Load() (*Snapshot, error) {
	rows, err := s.db.Query("SELECT title, url, content, category, timestamp FROM observations ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("list observations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	obs := []model.Observation{}
	for rows.Next() {
		var o model.Observation
		var category string
		if err := rows.Scan(&o.Title, &o.URL, &o.Content, &category, &o.Timestamp); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		o.Category = model.Category(category)
		obs = append(obs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list observations: %w", err)
	}

	return &Snapshot{Observations: obs}, nil
}

// Append inserts one observation
func (s *SQLiteStore) Append(obs model.Observation) error {
	if err := insert(s.db, obs); err != nil {
		return fmt.Errorf("insert observation: %w", err)
	}
	return nil
}

// ReplaceAll swaps the table contents in one transaction
func (s *SQLiteStore) ReplaceAll(obs []model.Observation) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM observations"); err != nil {
		return fmt.Errorf("clear observations: %w", err)
	}
	for _, o := range obs {
		if err := insert(tx, o); err != nil {
			return fmt.Errorf("insert observation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func insert(db execer, o model.Observation) error {
	_, err := db.Exec(
		"INSERT INTO observations (title, url, content, category, timestamp) VALUES (?, ?, ?, ?, ?)",
		o.Title, o.URL, o.Content, string(o.Category), o.Timestamp,
	)
	return err
}
