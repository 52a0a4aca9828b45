package fs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/charmbracelet/log"
	gitignore "github.com/sabhiram/go-gitignore"
)

// Ignorer defines the interface for pattern matching.
type Ignorer interface {
	MatchesPath(path string) bool
}

// combinedIgnorer matches a repository .gitignore and the configured patterns.
type combinedIgnorer struct {
	file     *gitignore.GitIgnore
	patterns *gitignore.GitIgnore
}

// MatchesPath returns true if the path matches any ignore pattern.
func (c *combinedIgnorer) MatchesPath(path string) bool {
	return c.file.MatchesPath(path) || c.patterns.MatchesPath(path)
}

// FileWalker implements Walker for traversing a file system.
type FileWalker struct {
	opts    WalkOptions
	ignorer Ignorer
	stats   WalkStats
}

// NewFileWalker creates a new file walker.
func NewFileWalker(opts WalkOptions) (*FileWalker, error) {
	// Ensure root is absolute
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root path: %w", err)
	}
	opts.Root = root

	// Check root exists
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("root path does not exist: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path is not a directory: %s", root)
	}

	w := &FileWalker{opts: opts}
	w.initIgnorer()
	return w, nil
}

// initIgnorer compiles the configured patterns, merged with the root .gitignore.
func (w *FileWalker) initIgnorer() {
	// Custom patterns first, then the defaults for binary and generated files
	patterns := append([]string{}, w.opts.IgnorePatterns...)
	patterns = append(patterns, defaultIgnorePatterns...)
	compiled := gitignore.CompileIgnoreLines(patterns...)

	// Load .gitignore from root if it exists
	if w.opts.UseGitignore {
		gitignorePath := filepath.Join(w.opts.Root, ".gitignore")
		if _, err := os.Stat(gitignorePath); err == nil {
			gi, err := gitignore.CompileIgnoreFile(gitignorePath)
			if err != nil {
				log.Warn("Failed to parse .gitignore", "path", gitignorePath, "error", err)
			} else {
				w.ignorer = &combinedIgnorer{file: gi, patterns: compiled}
				return
			}
		}
	}

	// Use only our patterns
	w.ignorer = compiled
}

// Walk traverses the directory tree.
func (w *FileWalker) Walk(fn func(FileInfo) error) error {
	w.stats = WalkStats{} // Reset stats

	return filepath.WalkDir(w.opts.Root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			log.Debug("Error accessing path", "path", path, "error", err)
			return nil // Skip errors, continue walking
		}

		// Get relative path for pattern matching
		relPath, err := filepath.Rel(w.opts.Root, path)
		if err != nil {
			relPath = path
		}

		// The root itself is never skipped, even when hidden
		if d.IsDir() {
			if path != w.opts.Root && w.shouldSkipDir(d.Name(), relPath) {
				w.stats.DirsSkipped++
				return filepath.SkipDir
			}
			return nil
		}

		// Check max file count
		if w.opts.MaxFileCount > 0 && w.stats.FilesFound >= w.opts.MaxFileCount {
			return filepath.SkipAll
		}

		// Skip if file should be ignored
		if w.shouldSkipFile(d.Name(), relPath) {
			w.stats.FilesSkipped++
			return nil
		}

		// Get file info
		info, err := d.Info()
		if err != nil {
			log.Debug("Failed to get file info", "path", path, "error", err)
			return nil
		}

		// Check file size
		if w.opts.MaxFileSize > 0 && info.Size() > w.opts.MaxFileSize {
			w.stats.FilesSkipped++
			w.stats.SkippedBytes += info.Size()
			return nil
		}

		// Only documents with a known extension
		if w.opts.KnownOnly && !IsKnownDocument(path) {
			w.stats.FilesSkipped++
			return nil
		}

		contentType := DetectContentType(path)

		// PDFs are binary by nature; everything else must look like text
		if contentType != TypePDF {
			if isBinary, err := isBinaryFile(path); err != nil || isBinary {
				w.stats.FilesSkipped++
				return nil
			}
		}

		// Compute file hash
		hash, err := HashFile(path)
		if err != nil {
			log.Debug("Failed to hash file", "path", path, "error", err)
			return nil
		}

		w.stats.FilesFound++
		w.stats.TotalBytes += info.Size()

		return fn(FileInfo{
			Path:        path,
			RelPath:     relPath,
			Size:        info.Size(),
			ModTime:     info.ModTime(),
			Hash:        hash,
			ContentType: contentType,
		})
	})
}

// Stats returns the walk statistics.
func (w *FileWalker) Stats() WalkStats {
	return w.stats
}

// shouldSkipDir checks if a directory should be skipped.
func (w *FileWalker) shouldSkipDir(name, relPath string) bool {
	// Always skip .git
	if name == ".git" {
		return true
	}

	// Skip hidden directories unless configured otherwise
	if !w.opts.IncludeHidden && strings.HasPrefix(name, ".") {
		return true
	}

	// Check gitignore patterns
	return w.ignorer != nil && w.ignorer.MatchesPath(relPath+"/")
}

// shouldSkipFile checks if a file should be skipped.
func (w *FileWalker) shouldSkipFile(name, relPath string) bool {
	// Skip hidden files unless configured otherwise
	if !w.opts.IncludeHidden && strings.HasPrefix(name, ".") {
		return true
	}
	return w.ignorer != nil && w.ignorer.MatchesPath(relPath)
}

// ExpandPaths replaces every directory in paths with the documents found
// beneath it. Files and missing paths pass through unchanged so that the
// caller can report them individually.
func ExpandPaths(paths []string, opts WalkOptions) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || !info.IsDir() {
			out = append(out, p)
			continue
		}

		o := opts
		o.Root = p
		walker, err := NewFileWalker(o)
		if err != nil {
			return nil, err
		}

		var found []string
		if err := walker.Walk(func(fi FileInfo) error {
			found = append(found, fi.Path)
			return nil
		}); err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", p, err)
		}
		sort.Strings(found)
		out = append(out, found...)
	}
	return out, nil
}

// HashFile computes the xxhash of a file's contents.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return fmt.Sprintf("%016x", h.Sum64()), nil
}

// isBinaryFile checks if a file appears to be binary.
func isBinaryFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	// Read first 8KB
	buf := make([]byte, 8192)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return false, err
	}

	return isBinaryContent(buf[:n]), nil
}

// isBinaryContent checks if content appears to be binary.
func isBinaryContent(content []byte) bool {
	if len(content) == 0 {
		return false
	}

	// Null bytes mean binary; otherwise count non-printable characters
	nonPrintable := 0
	for _, b := range content {
		if b == 0 {
			return true
		}
		if b < 32 && b != '\t' && b != '\n' && b != '\r' && b != '\f' {
			nonPrintable++
		}
	}

	// More than 30% control characters
	return float64(nonPrintable)/float64(len(content)) > 0.3
}

// Default patterns to ignore when expanding directories.
var defaultIgnorePatterns = []string{
	// Dependencies
	"node_modules/",
	"vendor/",

	// Binaries and archives
	"*.exe",
	"*.dll",
	"*.so",
	"*.dylib",
	"*.o",
	"*.a",
	"*.class",
	"*.jar",
	"*.zip",
	"*.tar",
	"*.gz",
	"*.7z",

	// Media
	"*.png",
	"*.jpg",
	"*.jpeg",
	"*.gif",
	"*.ico",
	"*.mp3",
	"*.mp4",
	"*.mov",

	// Database files, including our own index
	"*.db",
	"*.db-wal",
	"*.db-shm",
	"*.sqlite",
	"*.sqlite3",
}
