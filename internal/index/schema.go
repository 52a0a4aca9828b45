package index

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
)

const currentSchemaVersion = 1

const schemaVersionTable = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY
);
`

const namespacesTable = `
CREATE TABLE IF NOT EXISTS namespaces (
	name TEXT PRIMARY KEY,
	dimensions INTEGER NOT NULL,
	created_at TEXT DEFAULT (datetime('now'))
);
`

const entriesTable = `
CREATE TABLE IF NOT EXISTS entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	key TEXT UNIQUE NOT NULL,
	namespace TEXT NOT NULL,
	source_file TEXT NOT NULL DEFAULT '',
	metadata_json TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL,
	sequence INTEGER NOT NULL DEFAULT 0,
	content_type TEXT NOT NULL DEFAULT '',
	page INTEGER NOT NULL DEFAULT 0,
	created_at TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_entries_namespace ON entries(namespace);
CREATE INDEX IF NOT EXISTS idx_entries_source ON entries(namespace, source_file);
`

// initSchema initializes the database schema.
func initSchema(db *sql.DB) error {
	if _, err := db.Exec(schemaVersionTable); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	var version int
	err := db.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		version = 0
	} else if err != nil {
		return fmt.Errorf("failed to check schema version: %w", err)
	}

	if version >= currentSchemaVersion {
		log.Debug("Schema is up to date", "version", version)
		return nil
	}

	log.Debug("Migrating schema", "from", version, "to", currentSchemaVersion)

	if version < 1 {
		if err := migrateV1(db); err != nil {
			return fmt.Errorf("failed to migrate to v1: %w", err)
		}
	}

	return nil
}

// migrateV1 creates the initial schema. Vector tables are created per
// namespace once its dimensions are known.
func migrateV1(db *sql.DB) error {
	log.Debug("Applying migration v1")

	for _, table := range []string{namespacesTable, entriesTable} {
		if _, err := db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	if _, err := db.Exec("INSERT OR REPLACE INTO schema_version (version) VALUES (?)", 1); err != nil {
		return fmt.Errorf("failed to update schema version: %w", err)
	}

	return nil
}

// vectorTableName maps a namespace to its vec0 table. Characters that are
// not valid in an identifier become underscores.
func vectorTableName(namespace string) string {
	var b strings.Builder
	b.WriteString("vec_")
	for _, r := range namespace {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// createVectorTable creates the sqlite-vec virtual table for a namespace.
func createVectorTable(db execer, table string, dimensions int) error {
	query := fmt.Sprintf(`
		CREATE VIRTUAL TABLE IF NOT EXISTS %s USING vec0(
			entry_id INTEGER PRIMARY KEY,
			embedding float[%d] distance_metric=cosine
		);
	`, table, dimensions)

	_, err := db.Exec(query)
	return err
}

// ensureNamespace registers the namespace and its vector table. An existing
// namespace with different dimensions is only recreated when it holds no
// entries.
func ensureNamespace(db *sql.DB, namespace string, dimensions int) error {
	table := vectorTableName(namespace)

	var existing int
	err := db.QueryRow("SELECT dimensions FROM namespaces WHERE name = ?", namespace).Scan(&existing)
	switch {
	case err == sql.ErrNoRows:
		log.Debug("Creating namespace", "namespace", namespace, "dimensions", dimensions)
		if err := createVectorTable(db, table, dimensions); err != nil {
			return fmt.Errorf("failed to create vector table: %w", err)
		}
		if _, err := db.Exec("INSERT INTO namespaces (name, dimensions) VALUES (?, ?)", namespace, dimensions); err != nil {
			return fmt.Errorf("failed to register namespace: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("failed to check namespace: %w", err)
	}

	if existing == dimensions {
		return createVectorTable(db, table, dimensions)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM entries WHERE namespace = ?", namespace).Scan(&count); err != nil {
		return fmt.Errorf("failed to count entries: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: index %q holds %d entries of %d dimensions but the embedder produces %d; drop the index or switch back to the original model",
			ErrDimensionMismatch, namespace, count, existing, dimensions)
	}

	log.Debug("Recreating empty namespace", "namespace", namespace, "from", existing, "to", dimensions)
	if _, err := db.Exec("DROP TABLE IF EXISTS " + table); err != nil {
		return fmt.Errorf("failed to drop vector table: %w", err)
	}
	if err := createVectorTable(db, table, dimensions); err != nil {
		return fmt.Errorf("failed to create vector table: %w", err)
	}
	if _, err := db.Exec("UPDATE namespaces SET dimensions = ? WHERE name = ?", dimensions, namespace); err != nil {
		return fmt.Errorf("failed to update namespace: %w", err)
	}
	return nil
}
