// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists processed documents and monthly reports in
// SQLite. All writes are append-only inserts keyed by generated ULIDs;
// nothing is ever updated in place.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"

	"github.com/meshintel/fiscal-engine/pkg/types"
)

const dbFile = "fiscal.db"

// Store manages the document database.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database under cfg.DataDir (default "data")
// and ensures the schema exists.
func Open(cfg types.StorageConfig) (*Store, error) {
	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = "data"
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			document_type TEXT NOT NULL,
			total_value REAL NOT NULL,
			state TEXT,
			municipality TEXT,
			raw_data TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_user_created ON documents(user_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS monthly_reports (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			month INTEGER NOT NULL,
			year INTEGER NOT NULL,
			report_data TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_user_period ON monthly_reports(user_id, year, month)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SaveDocument appends a processed document and returns its generated id.
// The full PipelineResult is stored as the raw_data blob; summary columns
// are denormalized for querying.
func (s *Store) SaveDocument(ctx context.Context, userID string, result *types.PipelineResult) (string, error) {
	return s.saveDocumentAt(ctx, userID, result, time.Now().UTC())
}

func (s *Store) saveDocumentAt(ctx context.Context, userID string, result *types.PipelineResult, at time.Time) (string, error) {
	rawData, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("encoding result: %w", err)
	}

	id := ulid.Make().String()
	rec := result.DocumentData

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (id, user_id, document_type, total_value, state, municipality, raw_data, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, userID, string(rec.DocumentType), rec.TotalValue,
		rec.State, rec.Municipality, string(rawData),
		at.Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("inserting document: %w", err)
	}
	return id, nil
}

// DocumentsForMonth returns the raw_data blobs of every document a user
// stored within the given month, in insertion order.
func (s *Store) DocumentsForMonth(ctx context.Context, userID string, month time.Month, year int) ([][]byte, error) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	rows, err := s.db.QueryContext(ctx,
		`SELECT raw_data FROM documents
		 WHERE user_id = ? AND created_at >= ? AND created_at < ?
		 ORDER BY created_at`,
		userID, from.Format(time.RFC3339Nano), to.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var blobs [][]byte
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		blobs = append(blobs, []byte(raw))
	}
	return blobs, rows.Err()
}

// SaveMonthlyReport appends a rendered monthly report and returns its
// generated id.
func (s *Store) SaveMonthlyReport(ctx context.Context, userID string, month time.Month, year int, reportData []byte) (string, error) {
	id := ulid.Make().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO monthly_reports (id, user_id, month, year, report_data, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, userID, int(month), year, string(reportData),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("inserting monthly report: %w", err)
	}
	return id, nil
}
