// Package mcp exposes the memory as Model Context Protocol tools over stdio.
package mcp

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nickcecere/vecmem/internal/memory"
)

// ServerName is the implementation name reported to clients.
const ServerName = "vector-memory"

// Server is the MCP server for the memory.
type Server struct {
	memory  *memory.Store
	mcp     *mcp.Server
	version string
}

// NewServer creates an MCP server with every memory tool registered.
func NewServer(store *memory.Store, version string) *Server {
	s := &Server{
		memory:  store,
		version: version,
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    ServerName,
			Version: version,
		},
		nil,
	)
	s.registerTools()

	return s
}

// MCP returns the underlying SDK server.
func (s *Server) MCP() *mcp.Server {
	return s.mcp
}

// Run serves requests on stdin/stdout until the client disconnects or ctx
// is cancelled.
func (s *Server) Run(ctx context.Context) error {
	log.Info("MCP server starting", "name", ServerName, "version", s.version)

	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("MCP server stopped with error", "error", err)
		return err
	}

	log.Info("MCP server stopped")
	return nil
}

// textResult wraps tool output in a single text content block.
func textResult(text string, isError bool) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: isError,
	}
}
