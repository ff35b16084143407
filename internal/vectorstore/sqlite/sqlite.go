// Package sqlite persists the vector index in a single SQLite file so it
// survives restarts. Every rebuild writes a new generation of rows and flips
// the active generation inside one transaction.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"shoprag/internal/domain"
	"shoprag/internal/vectorstore"
)

//go:embed schema.sql
var schema string

// FileName is the database file created under the data directory.
const FileName = "index.db"

// Storage is a SQLite-backed vector store with brute-force cosine search.
type Storage struct {
	db   *sql.DB
	path string
}

var _ domain.VectorStore = (*Storage)(nil)

// NewStorage opens (or creates) the index database under dataDir.
// If dataDir is empty, defaults to ~/.shoprag/data.
func NewStorage(dataDir string) (*Storage, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".shoprag", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, FileName)

	// WAL lets queries read the last committed generation during a rebuild
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return &Storage{db: db, path: dbPath}, nil
}

// Close closes the database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Storage) Path() string {
	return s.path
}

// Rebuild stages records under a fresh generation and makes it active.
// Any failure rolls the transaction back and the previous generation stays.
func (s *Storage) Rebuild(ctx context.Context, records []domain.Record) error {
	if _, err := vectorstore.Validate(records); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	generation := uuid.NewString()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (generation, id, position, item_id, chunk_type, title, category, price, rating, text, vector)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		m := r.Metadata
		if _, err := stmt.ExecContext(ctx, generation, r.ID, i, m.ItemID, m.ChunkType,
			m.Title, m.Category, m.Price, m.Rating, r.Text, encodeVector(r.Vector)); err != nil {
			return fmt.Errorf("inserting record %s: %w", r.ID, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO index_state (id, generation, rebuilt_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			generation = excluded.generation,
			rebuilt_at = excluded.rebuilt_at
	`, generation, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("activating generation: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE generation != ?`, generation); err != nil {
		return fmt.Errorf("dropping old generations: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing rebuild: %w", err)
	}
	return nil
}

// Query scores every record of the active generation against vector.
func (s *Storage) Query(ctx context.Context, vector []float32, topK int) ([]domain.Hit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.item_id, r.chunk_type, r.title, r.category, r.price, r.rating, r.text, r.vector
		FROM records r
		JOIN index_state st ON st.id = 1 AND st.generation = r.generation
		ORDER BY r.position
	`)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var records []domain.Record
	for rows.Next() {
		var r domain.Record
		var blob []byte
		m := &r.Metadata
		if err := rows.Scan(&r.ID, &m.ItemID, &m.ChunkType, &m.Title, &m.Category,
			&m.Price, &m.Rating, &r.Text, &blob); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		r.Vector = decodeVector(blob)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}

	return vectorstore.TopK(records, vector, topK), nil
}

// Count returns the number of records in the active generation.
func (s *Storage) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM records r
		JOIN index_state st ON st.id = 1 AND st.generation = r.generation
	`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}

// RebuiltAt returns the time of the last successful rebuild.
func (s *Storage) RebuiltAt(ctx context.Context) (time.Time, error) {
	var at sql.NullTime
	err := s.db.QueryRowContext(ctx, `SELECT rebuilt_at FROM index_state WHERE id = 1`).Scan(&at)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("reading index state: %w", err)
	}
	return at.Time, nil
}

// encodeVector converts a float32 slice to little-endian bytes.
func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector converts little-endian bytes back to a float32 slice.
func decodeVector(data []byte) []float32 {
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
