package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickcecere/vecmem/internal/fs"
)

// mockRunner is a test double for CommandRunner.
type mockRunner struct {
	output []byte
	err    error

	name string
	args []string
}

func (m *mockRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	m.name = name
	m.args = args
	return m.output, m.err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadText(t *testing.T) {
	path := writeFile(t, "notes.txt", "\ufeffline one\r\nline two\n")

	doc, err := New().Load(context.Background(), path, fs.TypeText)
	require.NoError(t, err)

	assert.Equal(t, path, doc.Path)
	assert.Equal(t, fs.TypeText, doc.ContentType)
	require.Len(t, doc.Pages, 1)
	assert.Equal(t, "line one\nline two\n", doc.Pages[0])
}

func TestLoadMarkdownKeepsStructure(t *testing.T) {
	path := writeFile(t, "guide.md", "# Title\n\n## Section\n\nBody")

	doc, err := New().Load(context.Background(), path, fs.TypeMarkdown)
	require.NoError(t, err)
	assert.Equal(t, []string{"# Title\n\n## Section\n\nBody"}, doc.Pages)
}

func TestLoadInvalidUTF8(t *testing.T) {
	path := writeFile(t, "bad.txt", "ok \xff\xfe end")

	doc, err := New().Load(context.Background(), path, fs.TypeText)
	require.NoError(t, err)
	assert.Contains(t, doc.Pages[0], "ok ")
	assert.Contains(t, doc.Pages[0], " end")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := New().Load(context.Background(), filepath.Join(t.TempDir(), "nope.txt"), fs.TypeText)
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

func TestLoadDirectory(t *testing.T) {
	_, err := New().Load(context.Background(), t.TempDir(), fs.TypeText)
	assert.Error(t, err)
}

func TestLoadMaxFileSize(t *testing.T) {
	path := writeFile(t, "big.txt", "0123456789")

	_, err := New(WithMaxFileSize(5)).Load(context.Background(), path, fs.TypeText)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestLoadPDFWithMockRunner(t *testing.T) {
	path := writeFile(t, "paper.pdf", "%PDF-1.4")
	runner := &mockRunner{output: []byte("Page one text\fPage two text\f")}

	doc, err := New(WithRunner(runner), WithPDFToText("/opt/bin/pdftotext")).
		Load(context.Background(), path, fs.TypePDF)
	require.NoError(t, err)

	assert.Equal(t, []string{"Page one text", "Page two text"}, doc.Pages)
	assert.Equal(t, "/opt/bin/pdftotext", runner.name)
	assert.Equal(t, []string{"-layout", "-enc", "UTF-8", path, "-"}, runner.args)
}

func TestLoadPDFRunnerError(t *testing.T) {
	path := writeFile(t, "paper.pdf", "%PDF-1.4")
	runner := &mockRunner{err: errors.New("pdftotext crashed")}

	_, err := New(WithRunner(runner)).Load(context.Background(), path, fs.TypePDF)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdftotext failed")
}

func TestLoadPDFToolMissing(t *testing.T) {
	path := writeFile(t, "paper.pdf", "%PDF-1.4")
	runner := &mockRunner{err: ErrPDFToolNotFound}

	_, err := New(WithRunner(runner)).Load(context.Background(), path, fs.TypePDF)
	assert.ErrorIs(t, err, ErrPDFToolNotFound)
}

func TestExecRunnerMissingBinary(t *testing.T) {
	_, err := ExecRunner{}.Run(context.Background(), "definitely-not-a-real-binary-vecmem")
	assert.ErrorIs(t, err, ErrPDFToolNotFound)
	assert.ErrorIs(t, CheckPDFTool("definitely-not-a-real-binary-vecmem"), ErrPDFToolNotFound)
}

func TestErrPDFToolNotFound(t *testing.T) {
	assert.Contains(t, ErrPDFToolNotFound.Error(), "pdftotext")
}
