package config

import (
	"os"
	"path/filepath"
	"time"
)

// Default configuration values
const (
	// Index defaults
	DefaultIndexName  = "doc_chunks"
	DefaultDBFileName = "memory.db"

	// Embedding defaults
	DefaultEmbeddingProvider  = "ollama"
	DefaultOllamaURL          = "http://localhost:11434"
	DefaultOllamaEmbedModel   = "all-minilm"
	DefaultOpenAIEmbedModel   = "text-embedding-3-small"
	DefaultEmbeddingCacheSize = 1000

	// Ingest defaults
	DefaultBatchSize   = 50
	DefaultWorkers     = 4
	DefaultMaxFileSize = 50 << 20 // 50MB
	DefaultPDFToText   = "pdftotext"

	// Server defaults
	DefaultInitTimeout = 2 * time.Minute

	// Watch defaults
	DefaultWatchDebounce = 500 * time.Millisecond
)

// DefaultIgnorePatterns returns the patterns skipped when a directory is saved.
func DefaultIgnorePatterns() []string {
	return []string{
		// Dependencies and build outputs
		"node_modules/",
		"vendor/",
		".venv/",
		"venv/",
		"dist/",
		"build/",
		"target/",
		"__pycache__/",

		// Version control
		".git/",
		".svn/",
		".hg/",

		// IDE/Editor
		".idea/",
		".vscode/",
		"*.swp",
		"*~",

		// Misc
		".DS_Store",
		"Thumbs.db",
		"*.log",
	}
}

// DefaultConfigDir returns the default configuration directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/vecmem"
	}
	return filepath.Join(home, ".config", "vecmem")
}

// DefaultDataDir returns the default data directory path.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".local/share/vecmem"
	}
	return filepath.Join(home, ".local", "share", "vecmem")
}

// DefaultDatabasePath returns the default database file path.
func DefaultDatabasePath() string {
	return filepath.Join(DefaultDataDir(), DefaultDBFileName)
}

// DefaultIndexURL returns the default index connection string, a local SQLite file.
func DefaultIndexURL() string {
	return "sqlite://" + DefaultDatabasePath()
}
