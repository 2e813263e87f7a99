package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"linguini-ordering-web/internal/model"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

// MySQLGuestCartRepository implements GuestCartRepository using MySQL.
// Used when several frontend instances share one durable store.
type MySQLGuestCartRepository struct {
	db *sql.DB
}

// NewMySQLGuestCartRepository creates a new MySQL guest-cart repository.
// dsn format: "user:password@tcp(host:port)/dbname?parseTime=true"
func NewMySQLGuestCartRepository(dsn string) (*MySQLGuestCartRepository, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	if err := createMySQLGuestCartTable(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Println("[MySQLGuestCartRepository] Initialized")
	return &MySQLGuestCartRepository{db: db}, nil
}

func createMySQLGuestCartTable(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS guest_carts (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		guest_key VARCHAR(64) NOT NULL UNIQUE,
		items_json JSON NOT NULL,
		updated_at DATETIME NOT NULL
	)`
	_, err := db.Exec(query)
	return err
}

// Load retrieves the stored guest cart collection.
func (r *MySQLGuestCartRepository) Load(ctx context.Context, guestKey string) ([]model.CartItem, error) {
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
func (r *MySQLGuestCartRepository) Save(ctx context.Context, guestKey string, items []model.CartItem) error {
	if items == nil {
		items = []model.CartItem{}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode guest cart: %w", err)
	}

	query := `
		INSERT INTO guest_carts (guest_key, items_json, updated_at)
		VALUES (?, ?, NOW())
		ON DUPLICATE KEY UPDATE
			items_json = VALUES(items_json),
			updated_at = NOW()`

	if _, err := r.db.ExecContext(ctx, query, guestKey, string(itemsJSON)); err != nil {
		return fmt.Errorf("failed to save guest cart: %w", err)
	}
	return nil
}

// Delete removes the stored guest cart collection.
func (r *MySQLGuestCartRepository) Delete(ctx context.Context, guestKey string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM guest_carts WHERE guest_key = ?`, guestKey); err != nil {
		return fmt.Errorf("failed to delete guest cart: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *MySQLGuestCartRepository) Close() error {
	return r.db.Close()
}

// Ensure MySQLGuestCartRepository implements GuestCartRepository
var _ GuestCartRepository = (*MySQLGuestCartRepository)(nil)
