// Package fs provides file system helpers: content type detection and a
// gitignore-aware walker used to expand directories into document paths.
package fs

import "time"

// FileInfo represents metadata about a file.
type FileInfo struct {
	Path        string      // Absolute path to the file
	RelPath     string      // Path relative to the root
	Size        int64       // File size in bytes
	ModTime     time.Time   // Last modification time
	Hash        string      // xxhash of file contents
	ContentType ContentType // Detected content type
}

// WalkOptions configures the file walker.
type WalkOptions struct {
	// Root is the directory to start walking from.
	Root string

	// MaxFileSize is the maximum file size to process (in bytes).
	MaxFileSize int64

	// MaxFileCount is the maximum number of files to process.
	MaxFileCount int

	// IgnorePatterns are additional patterns to ignore (gitignore syntax).
	IgnorePatterns []string

	// IncludeHidden includes hidden files and directories.
	IncludeHidden bool

	// UseGitignore respects .gitignore files.
	UseGitignore bool

	// KnownOnly limits the walk to extensions with an explicit content type.
	KnownOnly bool
}

// Walker walks a directory tree and yields files.
type Walker interface {
	// Walk walks the directory tree and calls fn for each file.
	// The walk stops if fn returns an error.
	Walk(fn func(FileInfo) error) error

	// Stats returns statistics about the walk.
	Stats() WalkStats
}

// WalkStats contains statistics from a directory walk.
type WalkStats struct {
	FilesFound   int   // Total files found
	FilesSkipped int   // Files skipped due to size/pattern/etc
	DirsSkipped  int   // Directories skipped
	TotalBytes   int64 // Total bytes of files found
	SkippedBytes int64 // Total bytes of skipped files
}
