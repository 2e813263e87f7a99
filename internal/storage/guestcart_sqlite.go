package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"linguini-ordering-web/internal/model"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// SQLiteGuestCartRepository implements GuestCartRepository using SQLite.
// Thread-safe with WAL mode for high-concurrency reads.
type SQLiteGuestCartRepository struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteGuestCartRepository creates a new SQLite guest-cart repository.
// dbPath is the path to the SQLite database file (e.g., "./data/guest_carts.db")
func NewSQLiteGuestCartRepository(dbPath string) (*SQLiteGuestCartRepository, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite only supports 1 writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := createGuestCartTable(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Printf("[SQLiteGuestCartRepository] Initialized with database: %s", dbPath)
	return &SQLiteGuestCartRepository{db: db}, nil
}

func createGuestCartTable(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS guest_carts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		guest_key TEXT NOT NULL UNIQUE,
		items_json TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_guest_key ON guest_carts(guest_key);
	`
	_, err := db.Exec(query)
	return err
}

// Load retrieves the stored guest cart collection.
func (r *SQLiteGuestCartRepository) Load(ctx context.Context, guestKey string) ([]model.CartItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var itemsJSON string
	query := `SELECT items_json FROM guest_carts WHERE guest_key = ?`
	err := r.db.QueryRowContext(ctx, query, guestKey).Scan(&itemsJSON)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load guest cart: %w", err)
	}

	var items []model.CartItem
	if err := json.Unmarshal([]byte(itemsJSON), &items); err != nil {
		return nil, fmt.Errorf("failed to decode guest cart: %w", err)
	}
	return items, nil
}

// Save replaces the stored guest cart collection.
func (r *SQLiteGuestCartRepository) Save(ctx context.Context, guestKey string, items []model.CartItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if items == nil {
		items = []model.CartItem{}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode guest cart: %w", err)
	}

	query := `
		INSERT INTO guest_carts (guest_key, items_json, updated_at)
		VALUES (?, ?, datetime('now'))
		ON CONFLICT(guest_key) DO UPDATE SET
			items_json = excluded.items_json,
			updated_at = datetime('now')`

	if _, err := r.db.ExecContext(ctx, query, guestKey, string(itemsJSON)); err != nil {
		return fmt.Errorf("failed to save guest cart: %w", err)
	}
	return nil
}

// Delete removes the stored guest cart collection.
func (r *SQLiteGuestCartRepository) Delete(ctx context.Context, guestKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM guest_carts WHERE guest_key = ?`, guestKey); err != nil {
		return fmt.Errorf("failed to delete guest cart: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *SQLiteGuestCartRepository) Close() error {
	return r.db.Close()
}

// Ensure SQLiteGuestCartRepository implements GuestCartRepository
var _ GuestCartRepository = (*SQLiteGuestCartRepository)(nil)
