// Package history provides SQLite-backed persistence for past selections.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"darter/internal/models"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store owns the history table. All writes are serialized so a poll-triggered
// execute racing a user selection can never lose a count.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// New creates a new Store and runs migrations.
func New(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Open with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS history (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		last_used DATETIME NOT NULL,
		recent_terms TEXT
	);

	CREATE TABLE IF NOT EXISTS selections (
		id TEXT PRIMARY KEY,
		item_id TEXT NOT NULL,
		prev_item_id TEXT,
		term TEXT,
		selected_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_history_last_used ON history(last_used);
	CREATE INDEX IF NOT EXISTS idx_selections_item_id ON selections(item_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// RecordSelection upserts the history row for an item: count++, lastUsed=now,
// and the search term folded into the learned-term list. It also appends to
// the selection log consumed by the suggestion engine.
func (s *Store) RecordSelection(id string, kind models.ItemKind, term string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, err := s.get(id)
	if err != nil {
		return err
	}
	if item == nil {
		item = &models.HistoryItem{ID: id, Kind: kind}
	}
	item.Touch(term, now.UTC())

	termsJSON, _ := json.Marshal(item.RecentTerms)
	_, err = s.db.Exec(
		`INSERT INTO history (id, kind, count, last_used, recent_terms) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET kind=excluded.kind, count=excluded.count,
		 last_used=excluded.last_used, recent_terms=excluded.recent_terms`,
		item.ID, item.Kind, item.Count, item.LastUsed, string(termsJSON),
	)
	if err != nil {
		return fmt.Errorf("upsert history: %w", err)
	}

	var prev sql.NullString
	err = s.db.QueryRow(
		`SELECT item_id FROM selections WHERE item_id != ? ORDER BY selected_at DESC LIMIT 1`, id,
	).Scan(&prev)
	if err != nil && err != sql.ErrNoRows {
		log.Printf("History: read previous selection: %v", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO selections (id, item_id, prev_item_id, term, selected_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), id, prev.String, term, now.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert selection: %w", err)
	}
	return nil
}

// Get retrieves one history item, or nil when the item was never selected.
func (s *Store) Get(id string) (*models.HistoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(id)
}

func (s *Store) get(id string) (*models.HistoryItem, error) {
	item := &models.HistoryItem{}
	var terms sql.NullString

	err := s.db.QueryRow(
		`SELECT id, kind, count, last_used, recent_terms FROM history WHERE id = ?`, id,
	).Scan(&item.ID, &item.Kind, &item.Count, &item.LastUsed, &terms)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query history item: %w", err)
	}
	if terms.Valid && terms.String != "" {
		json.Unmarshal([]byte(terms.String), &item.RecentTerms)
	}
	return item, nil
}

// Snapshot returns a read-only copy of every history row. The ranking
// pipeline only ever sees these copies.
func (s *Store) Snapshot() ([]models.HistoryItem, error) {
	rows, err := s.db.Query(`SELECT id, kind, count, last_used, recent_terms FROM history`)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

// Recent returns history items ordered by last use, newest first. Backs the
// empty-query view.
func (s *Store) Recent(limit int) ([]models.HistoryItem, error) {
	rows, err := s.db.Query(
		`SELECT id, kind, count, last_used, recent_terms FROM history ORDER BY last_used DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent history: %w", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

// Samples returns the most recent selection events, newest first, for the
// suggestion engine.
func (s *Store) Samples(limit int) ([]SelectionSample, error) {
	rows, err := s.db.Query(
		`SELECT item_id, prev_item_id, term, selected_at FROM selections ORDER BY selected_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query selections: %w", err)
	}
	defer rows.Close()

	var samples []SelectionSample
	for rows.Next() {
		var sm SelectionSample
		var prev, term sql.NullString
		if err := rows.Scan(&sm.ItemID, &prev, &term, &sm.At); err != nil {
			return nil, fmt.Errorf("scan selection: %w", err)
		}
		sm.PrevItemID = prev.String
		sm.Term = term.String
		samples = append(samples, sm)
	}
	return samples, rows.Err()
}

// SelectionSample is one logged selection event.
type SelectionSample struct {
	ItemID     string
	PrevItemID string
	Term       string
	At         time.Time
}

// Wipe removes all history. The only hard delete; explicit user action only.
func (s *Store) Wipe() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(`DELETE FROM history`); err != nil {
		return fmt.Errorf("wipe history: %w", err)
	}
	if _, err := s.db.Exec(`DELETE FROM selections`); err != nil {
		return fmt.Errorf("wipe selections: %w", err)
	}
	return nil
}

func scanItems(rows *sql.Rows) ([]models.HistoryItem, error) {
	var items []models.HistoryItem
	for rows.Next() {
		var item models.HistoryItem
		var terms sql.NullString
		if err := rows.Scan(&item.ID, &item.Kind, &item.Count, &item.LastUsed, &terms); err != nil {
			return nil, fmt.Errorf("scan history item: %w", err)
		}
		if terms.Valid && terms.String != "" {
			json.Unmarshal([]byte(terms.String), &item.RecentTerms)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
