package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickcecere/vecmem/internal/index"
	"github.com/nickcecere/vecmem/internal/memory"
)

// resetFlags restores every flag to its default so package-level flag
// variables do not leak between executions.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

// writeConfig creates a config file selecting the static embedder and the
// given index url.
func writeConfig(t *testing.T, indexURL string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "index:\n" +
		"  url: " + indexURL + "\n" +
		"  name: doc_chunks\n" +
		"embeddings:\n" +
		"  provider: static\n" +
		"server:\n" +
		"  warm: false\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "vecmem dev")
	assert.Contains(t, out, "commit: none")
}

func TestMemoryLifecycle(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, "sqlite://"+filepath.Join(dir, "memory.db"))

	docs := filepath.Join(dir, "docs")
	require.NoError(t, os.MkdirAll(docs, 0755))
	alpha := filepath.Join(docs, "alpha.md")
	beta := filepath.Join(docs, "beta.txt")
	require.NoError(t, os.WriteFile(alpha, []byte("# Alpha\n\nAlpha notes about caching."), 0644))
	require.NoError(t, os.WriteFile(beta, []byte("Beta notes about retries."), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "main.go"), []byte("package main"), 0644))

	out, err := execute(t, "--config", cfgPath, "save", docs)
	require.NoError(t, err)
	assert.Contains(t, out, "Saved 2 file(s)")

	out, err = execute(t, "--config", cfgPath, "list")
	require.NoError(t, err)
	assert.Contains(t, out, alpha)
	assert.Contains(t, out, beta)
	assert.NotContains(t, out, "main.go")
	assert.Contains(t, out, "Total: 2 file(s)")

	out, err = execute(t, "--config", cfgPath, "recall", "--raw", "-k", "1", "caching")
	require.NoError(t, err)
	assert.Contains(t, out, "**Result 1**")
	assert.NotContains(t, out, "**Result 2**")

	out, err = execute(t, "--config", cfgPath, "find", "ALPHA")
	require.NoError(t, err)
	assert.Contains(t, out, alpha)
	assert.NotContains(t, out, beta)

	out, err = execute(t, "--config", cfgPath, "forget", alpha)
	require.ErrorIs(t, err, memory.ErrNotConfirmed)
	assert.Contains(t, out, `Pass confirm="DELETE"`)

	out, err = execute(t, "--config", cfgPath, "forget", alpha, "--confirm", "DELETE")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 1 chunk(s) for "+alpha)

	out, err = execute(t, "--config", cfgPath, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "1 files, 1 chunks")
	assert.Contains(t, out, "static")

	out, err = execute(t, "--config", cfgPath, "wipe", "--drop", "--confirm", "DELETE ALL")
	require.ErrorIs(t, err, memory.ErrNotConfirmed)
	assert.Contains(t, out, `Pass confirm="DROP INDEX"`)

	out, err = execute(t, "--config", cfgPath, "wipe", "--confirm", "DELETE ALL")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 1 chunk(s)")

	out, err = execute(t, "--config", cfgPath, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Memory is empty.")
}

func TestWipeDropRecoversFromDimensionChange(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "memory.db")
	cfgPath := writeConfig(t, "sqlite://"+dbPath)

	old, err := index.NewSQLiteIndex(dbPath, "doc_chunks", 8)
	require.NoError(t, err)
	_, err = old.Upsert(context.Background(), []index.Entry{{
		SourceFile: "/docs/old.txt",
		Content:    "older model",
		Vector:     []float32{0, 1, 0, 0, 0, 0, 0, 0},
	}})
	require.NoError(t, err)
	require.NoError(t, old.Close())

	_, err = execute(t, "--config", cfgPath, "list")
	require.ErrorIs(t, err, index.ErrDimensionMismatch)

	out, err := execute(t, "--config", cfgPath, "wipe", "--drop", "--confirm", "DROP INDEX")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 1 chunk(s) for doc_chunks.")

	out, err = execute(t, "--config", cfgPath, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Memory is empty.")
}

func TestSaveEmptyDirectory(t *testing.T) {
	cfgPath := writeConfig(t, "memory://")

	out, err := execute(t, "--config", cfgPath, "save", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No documents found.")
	assert.Contains(t, out, ".md")
	assert.Contains(t, out, ".pdf")
}

func TestSaveDryRun(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, "memory://")
	note := filepath.Join(dir, "note.md")
	require.NoError(t, os.WriteFile(note, []byte("hello"), 0644))

	out, err := execute(t, "--config", cfgPath, "save", "--dry-run", dir)
	require.NoError(t, err)
	assert.Contains(t, out, note)
	assert.Contains(t, out, "1 file(s)")
}

func TestSaveMissingFileFails(t *testing.T) {
	cfgPath := writeConfig(t, "memory://")

	out, err := execute(t, "--config", cfgPath, "save", filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.Contains(t, out, "missing.txt")
}

func TestRecallEmptyMemory(t *testing.T) {
	cfgPath := writeConfig(t, "memory://")

	out, err := execute(t, "--config", cfgPath, "recall", "anything at all")
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing found in memory matching your query.")
}

func TestCheck(t *testing.T) {
	cfgPath := writeConfig(t, "memory://")

	out, err := execute(t, "--config", cfgPath, "check")
	require.NoError(t, err)
	assert.Contains(t, out, "PASS embedder")
	assert.Contains(t, out, "PASS index")
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vecmem.yaml")

	out, err := execute(t, "--config", path, "config", "--init")
	require.NoError(t, err)
	assert.Contains(t, out, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "index:")
	assert.Contains(t, string(data), "embeddings:")

	_, err = execute(t, "--config", path, "config", "--init")
	assert.ErrorContains(t, err, "already exists")
}
