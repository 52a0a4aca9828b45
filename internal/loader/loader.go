// Package loader turns files on disk into raw document text.
package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"github.com/nickcecere/vecmem/internal/fs"
)

// ErrPDFToolNotFound is returned when the pdftotext binary cannot be found.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH; install poppler-utils (apt) or poppler (brew)")

// ErrFileTooLarge is returned for files above the configured size limit.
var ErrFileTooLarge = errors.New("file too large")

// Document is the raw text of one file. Pages holds one element for unpaged
// documents and one element per page for PDFs.
type Document struct {
	Path        string
	ContentType fs.ContentType
	Pages       []string
}

// Loader loads a document given its path and detected content type.
type Loader interface {
	Load(ctx context.Context, path string, ct fs.ContentType) (*Document, error)
}

// CommandRunner runs an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements CommandRunner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, ErrPDFToolNotFound
	}
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, err
	}
	return out, nil
}

// FileLoader reads text and markdown directly and converts PDFs with pdftotext.
type FileLoader struct {
	runner      CommandRunner
	pdftotext   string
	maxFileSize int64
}

// Option configures a FileLoader.
type Option func(*FileLoader)

// WithRunner replaces the command runner used for PDF conversion.
func WithRunner(r CommandRunner) Option {
	return func(l *FileLoader) {
		l.runner = r
	}
}

// WithPDFToText sets the pdftotext binary name or path.
func WithPDFToText(bin string) Option {
	return func(l *FileLoader) {
		if bin != "" {
			l.pdftotext = bin
		}
	}
}

// WithMaxFileSize rejects files larger than n bytes. Zero disables the check.
func WithMaxFileSize(n int64) Option {
	return func(l *FileLoader) {
		l.maxFileSize = n
	}
}

// New creates a FileLoader.
func New(opts ...Option) *FileLoader {
	l := &FileLoader{
		runner:    ExecRunner{},
		pdftotext: "pdftotext",
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load implements Loader.
func (l *FileLoader) Load(ctx context.Context, path string, ct fs.ContentType) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if l.maxFileSize > 0 && info.Size() > l.maxFileSize {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, info.Size(), l.maxFileSize)
	}

	doc := &Document{Path: path, ContentType: ct}

	switch ct {
	case fs.TypePDF:
		pages, err := l.loadPDF(ctx, path)
		if err != nil {
			return nil, err
		}
		doc.Pages = pages
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		doc.Pages = []string{toValidText(data)}
	}

	log.Debug("Loaded document", "path", path, "type", ct, "pages", len(doc.Pages))
	return doc, nil
}

// loadPDF converts a PDF and splits the output on form feeds, one per page.
func (l *FileLoader) loadPDF(ctx context.Context, path string) ([]string, error) {
	out, err := l.runner.Run(ctx, l.pdftotext, "-layout", "-enc", "UTF-8", path, "-")
	if err != nil {
		if errors.Is(err, ErrPDFToolNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("pdftotext failed: %w", err)
	}

	pages := strings.Split(toValidText(out), "\f")
	// pdftotext terminates the last page with a form feed
	for len(pages) > 1 && strings.TrimSpace(pages[len(pages)-1]) == "" {
		pages = pages[:len(pages)-1]
	}
	return pages, nil
}

// CheckPDFTool reports whether the pdftotext binary is available.
func CheckPDFTool(bin string) error {
	if bin == "" {
		bin = "pdftotext"
	}
	if _, err := exec.LookPath(bin); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// toValidText decodes bytes as UTF-8, dropping a BOM and invalid sequences.
func toValidText(data []byte) string {
	s := strings.TrimPrefix(string(data), "\ufeff")
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "\uFFFD")
	}
	return strings.ReplaceAll(s, "\r\n", "\n")
}
