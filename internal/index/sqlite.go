package index

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	_ "github.com/mattn/go-sqlite3"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

func init() {
	// Register sqlite-vec extension
	sqlite_vec.Auto()
}

// SQLiteIndex implements Index using SQLite and sqlite-vec.
type SQLiteIndex struct {
	db         *sql.DB
	mu         sync.RWMutex
	path       string
	namespace  string
	table      string
	dimensions int
	closed     bool
}

// NewSQLiteIndex opens (or creates) the database at dbPath and prepares the
// namespace for vectors of the given dimensions.
func NewSQLiteIndex(dbPath, namespace string, dimensions int) (*SQLiteIndex, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := ensureNamespace(db, namespace, dimensions); err != nil {
		db.Close()
		return nil, err
	}

	log.Debug("Opened SQLite index", "path", dbPath, "namespace", namespace, "dimensions", dimensions)

	return &SQLiteIndex{
		db:         db,
		path:       dbPath,
		namespace:  namespace,
		table:      vectorTableName(namespace),
		dimensions: dimensions,
	}, nil
}

// Close closes the database connection.
func (s *SQLiteIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Info describes the index.
func (s *SQLiteIndex) Info() Info {
	return Info{
		Backend:    "sqlite",
		Location:   s.path,
		Namespace:  s.namespace,
		Dimensions: s.dimensions,
	}
}

// Upsert writes all entries and their vectors in one transaction.
func (s *SQLiteIndex) Upsert(ctx context.Context, entries []Entry) ([]string, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	for i := range entries {
		if err := checkDimensions(entries[i].Vector, s.dimensions); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	keys := make([]string, len(entries))
	for i, e := range entries {
		key := e.Key
		if key == "" {
			key = NewKey(s.namespace)
		}

		var existingID int64
		err := tx.QueryRowContext(ctx, "SELECT id FROM entries WHERE key = ?", key).Scan(&existingID)
		if err != nil && err != sql.ErrNoRows {
			return nil, fmt.Errorf("failed to check existing entry: %w", err)
		}
		if existingID > 0 {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+s.table+" WHERE entry_id = ?", existingID); err != nil {
				return nil, fmt.Errorf("failed to delete old vector: %w", err)
			}
			if _, err := tx.ExecContext(ctx, "DELETE FROM entries WHERE id = ?", existingID); err != nil {
				return nil, fmt.Errorf("failed to delete old entry: %w", err)
			}
		}

		result, err := tx.ExecContext(ctx, `
			INSERT INTO entries (key, namespace, source_file, metadata_json, content, sequence, content_type, page)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, key, s.namespace, e.SourceFile, e.MetadataJSON, e.Content, e.Sequence, e.ContentType, e.Page)
		if err != nil {
			return nil, fmt.Errorf("failed to insert entry %d: %w", i, err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("failed to get entry ID: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO "+s.table+" (entry_id, embedding) VALUES (?, ?)",
			id, serializeEmbedding(e.Vector),
		); err != nil {
			return nil, fmt.Errorf("failed to insert vector for entry %d: %w", i, err)
		}

		keys[i] = key
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return keys, nil
}

// Search performs a KNN query against the namespace's vec0 table.
func (s *SQLiteIndex) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	if err := checkDimensions(query, s.dimensions); err != nil {
		return nil, err
	}
	if k <= 0 {
		return []Hit{}, nil
	}
	if k > MaxSearchK {
		k = MaxSearchK
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT
			e.key, e.source_file, e.metadata_json, e.content, e.sequence, e.content_type, e.page,
			v.distance
		FROM `+s.table+` v
		JOIN entries e ON e.id = v.entry_id
		WHERE v.embedding MATCH ?
			AND k = ?
		ORDER BY v.distance ASC, e.id ASC
	`, serializeEmbedding(query), k)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	defer rows.Close()

	hits := []Hit{}
	for rows.Next() {
		var h Hit
		if err := rows.Scan(
			&h.Key, &h.SourceFile, &h.MetadataJSON, &h.Content, &h.Sequence, &h.ContentType, &h.Page,
			&h.Distance,
		); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		h.Score = 1 - h.Distance
		hits = append(hits, h)
	}

	return hits, rows.Err()
}

// Delete removes entries by key.
func (s *SQLiteIndex) Delete(ctx context.Context, keys []string) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var ids []int64
	for _, key := range keys {
		var id int64
		err := tx.QueryRowContext(ctx, "SELECT id FROM entries WHERE key = ? AND namespace = ?", key, s.namespace).Scan(&id)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("failed to look up entry: %w", err)
		}
		ids = append(ids, id)
	}

	if err := s.deleteIDs(ctx, tx, ids); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return len(ids), nil
}

// DeleteMatching scans the namespace's metadata and deletes matching entries
// inside a single transaction.
func (s *SQLiteIndex) DeleteMatching(ctx context.Context, match func(Metadata) bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		"SELECT id, source_file, metadata_json FROM entries WHERE namespace = ? ORDER BY id",
		s.namespace,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to scan entries: %w", err)
	}

	var ids []int64
	for rows.Next() {
		var id int64
		var md Metadata
		if err := rows.Scan(&id, &md.SourceFile, &md.MetadataJSON); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan entry: %w", err)
		}
		if match(md) {
			ids = append(ids, id)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	if len(ids) == 0 {
		return 0, nil
	}

	if err := s.deleteIDs(ctx, tx, ids); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}

	log.Debug("Deleted matching entries", "namespace", s.namespace, "count", len(ids))
	return len(ids), nil
}

func (s *SQLiteIndex) deleteIDs(ctx context.Context, tx *sql.Tx, ids []int64) error {
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+s.table+" WHERE entry_id = ?", id); err != nil {
			return fmt.Errorf("failed to delete vector: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM entries WHERE id = ?", id); err != nil {
			return fmt.Errorf("failed to delete entry: %w", err)
		}
	}
	return nil
}

// Scan calls fn for every entry in insertion order.
func (s *SQLiteIndex) Scan(ctx context.Context, fn func(Entry) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT key, source_file, metadata_json, content, sequence, content_type, page
		FROM entries WHERE namespace = ? ORDER BY id
	`, s.namespace)
	if err != nil {
		return fmt.Errorf("failed to scan entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.SourceFile, &e.MetadataJSON, &e.Content, &e.Sequence, &e.ContentType, &e.Page); err != nil {
			return fmt.Errorf("failed to scan entry: %w", err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Count returns the number of entries in the namespace.
func (s *SQLiteIndex) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, ErrClosed
	}

	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries WHERE namespace = ?", s.namespace).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return n, nil
}

// Clear removes every entry in the namespace.
func (s *SQLiteIndex) Clear(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+s.table); err != nil {
		return 0, fmt.Errorf("failed to delete vectors: %w", err)
	}
	result, err := tx.ExecContext(ctx, "DELETE FROM entries WHERE namespace = ?", s.namespace)
	if err != nil {
		return 0, fmt.Errorf("failed to delete entries: %w", err)
	}
	n, _ := result.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return int(n), nil
}

// Drop removes the namespace's tables and recreates them empty.
func (s *SQLiteIndex) Drop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+s.table); err != nil {
		return fmt.Errorf("failed to drop vector table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM entries WHERE namespace = ?", s.namespace); err != nil {
		return fmt.Errorf("failed to delete entries: %w", err)
	}

	if err := createVectorTable(tx, s.table, s.dimensions); err != nil {
		return fmt.Errorf("failed to recreate vector table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE namespaces SET dimensions = ?, created_at = datetime('now') WHERE name = ?", s.dimensions, s.namespace); err != nil {
		return fmt.Errorf("failed to reset namespace: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	log.Debug("Dropped and recreated index", "namespace", s.namespace)
	return nil
}

// dropSQLiteNamespace deletes a namespace whatever dimensions it was created
// with. The next open recreates it.
func dropSQLiteNamespace(ctx context.Context, dbPath, namespace string) (int, error) {
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return 0, nil
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return 0, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := initSchema(db); err != nil {
		return 0, fmt.Errorf("failed to initialize schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+vectorTableName(namespace)); err != nil {
		return 0, fmt.Errorf("failed to drop vector table: %w", err)
	}
	result, err := tx.ExecContext(ctx, "DELETE FROM entries WHERE namespace = ?", namespace)
	if err != nil {
		return 0, fmt.Errorf("failed to delete entries: %w", err)
	}
	n, _ := result.RowsAffected()
	if _, err := tx.ExecContext(ctx, "DELETE FROM namespaces WHERE name = ?", namespace); err != nil {
		return 0, fmt.Errorf("failed to unregister namespace: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}

	log.Debug("Dropped namespace", "path", dbPath, "namespace", namespace, "entries", n)
	return int(n), nil
}

// serializeEmbedding converts a float32 slice to bytes for sqlite-vec.
func serializeEmbedding(embedding []float32) []byte {
	buf := make([]byte, len(embedding)*4)
	for i, v := range embedding {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}
