package fs

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDetectContentType tests content type detection from file paths.
func TestDetectContentType(t *testing.T) {
	tests := []struct {
		path     string
		expected ContentType
	}{
		{"report.pdf", TypePDF},
		{"REPORT.PDF", TypePDF},
		{"README.md", TypeMarkdown},
		{"notes.markdown", TypeMarkdown},
		{"page.mdx", TypeMarkdown},
		{"notes.txt", TypeText},
		{"data.csv", TypeText},
		{"main.go", TypeText},
		{"Makefile", TypeText},
		{"archive.xyz", TypeText},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectContentType(tt.path))
		})
	}
}

func TestIsKnownDocument(t *testing.T) {
	assert.True(t, IsKnownDocument("/a/b.pdf"))
	assert.True(t, IsKnownDocument("/a/b.md"))
	assert.True(t, IsKnownDocument("/a/b.txt"))
	assert.False(t, IsKnownDocument("/a/b.go"))
	assert.False(t, IsKnownDocument("/a/Makefile"))
	assert.Contains(t, SupportedExtensions(), ".pdf")
	assert.IsNonDecreasing(t, SupportedExtensions())
}

// TestIsBinaryContent tests binary detection.
func TestIsBinaryContent(t *testing.T) {
	assert.False(t, isBinaryContent([]byte("Hello, World!\n")))
	assert.False(t, isBinaryContent([]byte("page one\fpage two")))
	assert.True(t, isBinaryContent([]byte("hello\x00world")))
	assert.False(t, isBinaryContent([]byte{}))
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	}
	return root
}

func TestFileWalker(t *testing.T) {
	root := writeTree(t, map[string]string{
		"notes.txt":               "plain notes",
		"guide.md":                "# Guide\n\nText.",
		"paper.pdf":               "%PDF-1.4\x00\x01binary",
		"blob.bin":                "abc\x00def",
		".hidden.md":              "hidden",
		"node_modules/pkg/doc.md": "vendored",
		"drafts/todo.md":          "draft",
		".gitignore":              "drafts/\n",
	})

	walker, err := NewFileWalker(WalkOptions{Root: root, UseGitignore: true})
	require.NoError(t, err)

	var found []string
	types := map[string]ContentType{}
	require.NoError(t, walker.Walk(func(fi FileInfo) error {
		found = append(found, fi.RelPath)
		types[fi.RelPath] = fi.ContentType
		assert.Len(t, fi.Hash, 16)
		return nil
	}))
	sort.Strings(found)

	assert.Equal(t, []string{"guide.md", "notes.txt", "paper.pdf"}, found)
	assert.Equal(t, TypePDF, types["paper.pdf"])
	assert.Equal(t, TypeMarkdown, types["guide.md"])

	stats := walker.Stats()
	assert.Equal(t, 3, stats.FilesFound)
	assert.Greater(t, stats.DirsSkipped, 0)
}

func TestFileWalkerKnownOnly(t *testing.T) {
	root := writeTree(t, map[string]string{
		"notes.txt": "plain notes",
		"main.go":   "package main",
	})

	walker, err := NewFileWalker(WalkOptions{Root: root, KnownOnly: true})
	require.NoError(t, err)

	var found []string
	require.NoError(t, walker.Walk(func(fi FileInfo) error {
		found = append(found, fi.RelPath)
		return nil
	}))
	assert.Equal(t, []string{"notes.txt"}, found)
}

func TestFileWalkerLimits(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.txt":   "a",
		"b.txt":   "b",
		"big.txt": "0123456789012345678901234567890123456789",
	})

	walker, err := NewFileWalker(WalkOptions{Root: root, MaxFileSize: 10})
	require.NoError(t, err)

	count := 0
	require.NoError(t, walker.Walk(func(FileInfo) error {
		count++
		return nil
	}))
	assert.Equal(t, 2, count)
	assert.Equal(t, 1, walker.Stats().FilesSkipped)
}

func TestNewFileWalkerErrors(t *testing.T) {
	_, err := NewFileWalker(WalkOptions{Root: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	_, err = NewFileWalker(WalkOptions{Root: file})
	assert.Error(t, err)
}

func TestExpandPaths(t *testing.T) {
	root := writeTree(t, map[string]string{
		"docs/a.md":  "# A",
		"docs/b.txt": "B",
		"single.txt": "single",
	})
	missing := filepath.Join(root, "missing.txt")

	out, err := ExpandPaths([]string{
		filepath.Join(root, "single.txt"),
		filepath.Join(root, "docs"),
		missing,
	}, WalkOptions{KnownOnly: true})
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(root, "single.txt"),
		filepath.Join(root, "docs", "a.md"),
		filepath.Join(root, "docs", "b.txt"),
		missing,
	}, out)
}
