// Package history stores completed facility searches in SQLite.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/randytsao24/carefinder/internal/models"
)

// DefaultRecentLimit caps Recent when no positive limit is given.
const DefaultRecentLimit = 20

// Store is a SQLite-backed search log.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS searches (
		id TEXT PRIMARY KEY,
		query TEXT NOT NULL,
		anchor_lat REAL NOT NULL,
		anchor_lon REAL NOT NULL,
		was_fallback INTEGER NOT NULL DEFAULT 0,
		facility_count INTEGER NOT NULL DEFAULT 0,
		facility_error TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_searches_created_at ON searches(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// Record inserts rec, assigning an ID and timestamp when they are unset.
// CreatedAt is normalized to UTC.
func (s *Store) Record(ctx context.Context, rec *models.SearchRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	// stored as text; a single zone keeps ORDER BY created_at chronological
	rec.CreatedAt = rec.CreatedAt.UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO searches (id, query, anchor_lat, anchor_lon, was_fallback, facility_count, facility_error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Query, rec.Anchor.Latitude, rec.Anchor.Longitude,
		rec.WasFallback, rec.FacilityCount, rec.FacilityError, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record search: %w", err)
	}
	return nil
}

// Recent returns up to limit searches, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]models.SearchRecord, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, query, anchor_lat, anchor_lon, was_fallback, facility_count, facility_error, created_at
		 FROM searches ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query searches: %w", err)
	}
	defer rows.Close()

	records := []models.SearchRecord{}
	for rows.Next() {
		var rec models.SearchRecord
		if err := rows.Scan(
			&rec.ID, &rec.Query, &rec.Anchor.Latitude, &rec.Anchor.Longitude,
			&rec.WasFallback, &rec.FacilityCount, &rec.FacilityError, &rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Count returns the number of stored searches.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM searches`).Scan(&n)
	return n, err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
