package mcp

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickcecere/vecmem/internal/embeddings"
	"github.com/nickcecere/vecmem/internal/index"
	"github.com/nickcecere/vecmem/internal/loader"
	"github.com/nickcecere/vecmem/internal/memory"
	"github.com/nickcecere/vecmem/internal/resource"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	m := resource.NewManager(func(ctx context.Context) (*resource.Handles, error) {
		return &resource.Handles{
			Embedder: embeddings.NewStaticService(),
			Index:    index.NewMemoryIndex("doc_chunks", embeddings.StaticDimensions),
		}, nil
	}, time.Second)
	store := memory.New(m, loader.New(), memory.Options{})
	t.Cleanup(func() { store.Close() })
	return NewServer(store, "test")
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return tc.Text
}

func TestHandleSaveAndRecall(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	path := writeFile(t, "fruit.md", "# Fruit\n\nBananas are yellow and rich in potassium.")

	res, _, err := s.handleSave(ctx, nil, SaveInput{FilePaths: []string{path}})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, resultText(t, res), "Successfully saved 1 file(s) to memory")

	res, _, err = s.handleRecall(ctx, nil, RecallInput{WhatToRemember: "yellow bananas"})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	text := resultText(t, res)
	assert.True(t, strings.HasPrefix(text, "**Result 1**\nSource: "+path))
	assert.Contains(t, text, "potassium")
}

func TestHandleSaveMissingFile(t *testing.T) {
	s := newTestServer(t)

	res, _, err := s.handleSave(context.Background(), nil, SaveInput{
		FilePaths: []string{filepath.Join(t.TempDir(), "nope.txt")},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "Failed to save 1 file(s) to memory:")
}

func TestHandleSaveNoPaths(t *testing.T) {
	s := newTestServer(t)

	res, _, err := s.handleSave(context.Background(), nil, SaveInput{})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "No files to save.", resultText(t, res))
}

func TestHandleRecallEmptyMemory(t *testing.T) {
	s := newTestServer(t)

	res, _, err := s.handleRecall(context.Background(), nil, RecallInput{WhatToRemember: "anything"})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, memory.NothingFound, resultText(t, res))
}

func TestHandleRecallEmptyQuery(t *testing.T) {
	s := newTestServer(t)

	res, _, err := s.handleRecall(context.Background(), nil, RecallInput{WhatToRemember: "  "})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "Error recalling from memory")
}

func TestHandleListAndSearch(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	res, _, err := s.handleList(ctx, nil, ListInput{})
	require.NoError(t, err)
	assert.Equal(t, "Memory is empty.", resultText(t, res))

	path := writeFile(t, "notes.txt", "Meeting notes about the quarterly roadmap.")
	_, _, err = s.handleSave(ctx, nil, SaveInput{FilePaths: []string{path}})
	require.NoError(t, err)

	res, _, err = s.handleList(ctx, nil, ListInput{})
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "1 file(s)")
	assert.Contains(t, resultText(t, res), path)

	res, _, err = s.handleSearch(ctx, nil, SearchInput{Query: "NOTES"})
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), path)

	res, _, err = s.handleSearch(ctx, nil, SearchInput{Query: "missing"})
	require.NoError(t, err)
	assert.Equal(t, `No stored files match "missing".`, resultText(t, res))

	res, _, err = s.handleSearch(ctx, nil, SearchInput{})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestHandleForget(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	path := writeFile(t, "notes.txt", "Something worth forgetting later.")
	_, _, err := s.handleSave(ctx, nil, SaveInput{FilePaths: []string{path}})
	require.NoError(t, err)

	res, _, err := s.handleForgetFile(ctx, nil, ForgetFileInput{FilePath: path, Confirm: "yes"})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, resultText(t, res), "Not confirmed")

	res, _, err = s.handleForgetFile(ctx, nil, ForgetFileInput{FilePath: path, Confirm: memory.ConfirmDelete})
	require.NoError(t, err)
	assert.Equal(t, "Deleted 1 chunk(s) for "+path+".", resultText(t, res))

	res, _, err = s.handleForgetFile(ctx, nil, ForgetFileInput{Confirm: memory.ConfirmDelete})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestHandleForgetEverything(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	a := writeFile(t, "a.txt", "First file.")
	b := writeFile(t, "b.txt", "Second file.")
	_, _, err := s.handleSave(ctx, nil, SaveInput{FilePaths: []string{a, b}})
	require.NoError(t, err)

	res, _, err := s.handleForgetEverything(ctx, nil, ForgetEverythingInput{Confirm: memory.ConfirmDelete})
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), `"DELETE ALL"`)

	res, _, err = s.handleForgetEverything(ctx, nil, ForgetEverythingInput{Confirm: memory.ConfirmDeleteAll})
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "Deleted 2 chunk(s)")

	res, _, err = s.handleList(ctx, nil, ListInput{})
	require.NoError(t, err)
	assert.Equal(t, "Memory is empty.", resultText(t, res))
}

func TestHandleStats(t *testing.T) {
	s := newTestServer(t)

	res, _, err := s.handleStats(context.Background(), nil, StatsInput{})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	text := resultText(t, res)
	assert.Contains(t, text, "Index: doc_chunks (memory)")
	assert.Contains(t, text, "Chunks: 0")
}

func TestServerOverInMemoryTransport(t *testing.T) {
	s := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	ss, err := s.MCP().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer ss.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer cs.Close()

	tools, err := cs.ListTools(ctx, nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
		if tool.Name == "recall_from_memory" {
			assert.Contains(t, tool.Description, "blank query is rejected")
		}
	}
	assert.ElementsMatch(t, []string{
		"save_to_memory",
		"recall_from_memory",
		"list_memories",
		"search_memories",
		"forget_file",
		"forget_everything",
		"memory_stats",
	}, names)

	path := writeFile(t, "guide.md", "# Guide\n\nThe deploy script lives in scripts/deploy.sh.")
	res, err := cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      "save_to_memory",
		Arguments: map[string]any{"file_paths": []string{path}},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)

	res, err = cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      "recall_from_memory",
		Arguments: map[string]any{"what_to_remember": "deploy script", "how_many_results": 1},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	text := resultText(t, res)
	assert.Contains(t, text, "**Result 1**")
	assert.NotContains(t, text, "**Result 2**")
	assert.Contains(t, text, "deploy.sh")
}
