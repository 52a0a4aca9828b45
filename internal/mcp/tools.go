package mcp

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nickcecere/vecmem/internal/memory"
)

// SaveInput is the input of save_to_memory.
type SaveInput struct {
	FilePaths []string `json:"file_paths" jsonschema:"paths of the PDF, text or markdown files to remember"`
}

// RecallInput is the input of recall_from_memory.
type RecallInput struct {
	WhatToRemember string `json:"what_to_remember" jsonschema:"what you want to recall, in natural language; must not be blank"`
	HowManyResults int    `json:"how_many_results,omitempty" jsonschema:"how many relevant pieces to return, default 3"`
}

// ListInput is the input of list_memories.
type ListInput struct{}

// SearchInput is the input of search_memories.
type SearchInput struct {
	Query string `json:"query" jsonschema:"case-insensitive text to look for in stored file paths"`
}

// ForgetFileInput is the input of forget_file.
type ForgetFileInput struct {
	FilePath string `json:"file_path" jsonschema:"path of the file to forget"`
	Confirm  string `json:"confirm" jsonschema:"must be exactly DELETE"`
}

// ForgetEverythingInput is the input of forget_everything.
type ForgetEverythingInput struct {
	Confirm string `json:"confirm" jsonschema:"must be exactly DELETE ALL"`
}

// StatsInput is the input of memory_stats.
type StatsInput struct{}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "save_to_memory",
		Description: "Save files to memory so their content can be recalled later. " +
			"Accepts PDF, text and markdown files. Saving a file again replaces what was stored for it.",
	}, s.handleSave)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "recall_from_memory",
		Description: "Recall information from memory based on what you're looking for. " +
			"Finds the most relevant saved content even if the exact words don't match. " +
			"what_to_remember must not be blank; a blank query is rejected with an error.",
	}, s.handleRecall)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_memories",
		Description: "List every file stored in memory with its chunk count.",
	}, s.handleList)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_memories",
		Description: "Find stored files whose path contains the given text.",
	}, s.handleSearch)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "forget_file",
		Description: "Remove one file from memory. Requires confirm=\"DELETE\".",
	}, s.handleForgetFile)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "forget_everything",
		Description: "Remove every file from memory. Requires confirm=\"DELETE ALL\".",
	}, s.handleForgetEverything)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "memory_stats",
		Description: "Show how much is stored in memory and which index and embedder are in use.",
	}, s.handleStats)

	log.Debug("Registered MCP tools", "count", 7)
}

func (s *Server) handleSave(ctx context.Context, _ *mcp.CallToolRequest, in SaveInput) (*mcp.CallToolResult, any, error) {
	result, err := s.memory.Save(ctx, in.FilePaths)
	if err != nil {
		return textResult(fmt.Sprintf("Error saving to memory: %v", err), true), nil, nil
	}

	return textResult(memory.FormatSave(result), result.SavedCount() == 0 && len(result.Errors) > 0), nil, nil
}

func (s *Server) handleRecall(ctx context.Context, _ *mcp.CallToolRequest, in RecallInput) (*mcp.CallToolResult, any, error) {
	results, err := s.memory.Recall(ctx, in.WhatToRemember, in.HowManyResults)
	if err != nil {
		return textResult(fmt.Sprintf("Error recalling from memory: %v", err), true), nil, nil
	}
	return textResult(memory.FormatRecall(results), false), nil, nil
}

func (s *Server) handleList(ctx context.Context, _ *mcp.CallToolRequest, _ ListInput) (*mcp.CallToolResult, any, error) {
	sources, err := s.memory.ListSources(ctx)
	if err != nil {
		return textResult(fmt.Sprintf("Error listing memories: %v", err), true), nil, nil
	}
	return textResult(memory.FormatSources(sources), false), nil, nil
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, in SearchInput) (*mcp.CallToolResult, any, error) {
	if in.Query == "" {
		return textResult("Error: query is required", true), nil, nil
	}

	sources, err := s.memory.FindSources(ctx, in.Query)
	if err != nil {
		return textResult(fmt.Sprintf("Error searching memories: %v", err), true), nil, nil
	}
	if len(sources) == 0 {
		return textResult(fmt.Sprintf("No stored files match %q.", in.Query), false), nil, nil
	}
	return textResult(memory.FormatSources(sources), false), nil, nil
}

func (s *Server) handleForgetFile(ctx context.Context, _ *mcp.CallToolRequest, in ForgetFileInput) (*mcp.CallToolResult, any, error) {
	if in.FilePath == "" {
		return textResult("Error: file_path is required", true), nil, nil
	}

	res, err := s.memory.DeleteSource(ctx, in.FilePath, in.Confirm)
	if err != nil {
		return textResult(fmt.Sprintf("Error forgetting file: %v", err), true), nil, nil
	}
	return textResult(memory.FormatDelete(res), false), nil, nil
}

func (s *Server) handleForgetEverything(ctx context.Context, _ *mcp.CallToolRequest, in ForgetEverythingInput) (*mcp.CallToolResult, any, error) {
	res, err := s.memory.DeleteAll(ctx, in.Confirm)
	if err != nil {
		return textResult(fmt.Sprintf("Error wiping memory: %v", err), true), nil, nil
	}
	return textResult(memory.FormatDelete(res), false), nil, nil
}

func (s *Server) handleStats(ctx context.Context, _ *mcp.CallToolRequest, _ StatsInput) (*mcp.CallToolResult, any, error) {
	stats, err := s.memory.Stats(ctx)
	if err != nil {
		return textResult(fmt.Sprintf("Error reading memory stats: %v", err), true), nil, nil
	}
	return textResult(memory.FormatStats(stats), false), nil, nil
}
