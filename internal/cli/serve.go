package cli

import (
	"context"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/nickcecere/vecmem/internal/config"
	"github.com/nickcecere/vecmem/internal/mcp"
	"github.com/nickcecere/vecmem/internal/memory"
	"github.com/nickcecere/vecmem/internal/watcher"
)

var (
	serveWatch  bool
	serveNoWarm bool
)

// serveCmd runs the MCP server.
var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"mcp"},
	Short:   "Start the MCP server on stdio",
	Long: `Start a Model Context Protocol (MCP) server on stdin/stdout.

Tools:
  - save_to_memory:     remember files
  - recall_from_memory: recall the most relevant passages
  - list_memories, search_memories, forget_file, forget_everything, memory_stats

The embedding model and index are prepared in the background at startup
(disable with --no-warm) and shared by every tool call. With --watch,
remembered files are saved again whenever they change on disk.

This command is typically started by an MCP client, not run directly.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "re-save remembered files when they change")
	serveCmd.Flags().BoolVar(&serveNoWarm, "no-warm", false, "build the embedder and index on first use instead of at startup")
}

func runServe(cmd *cobra.Command, args []string) error {
	// stdout carries the protocol
	log.SetOutput(os.Stderr)

	cfg := config.Get()

	ctx, cancel := signalContext()
	defer cancel()

	st, err := openMemory()
	if err != nil {
		return err
	}
	defer st.Close()

	if cfg.Server.Warm && !serveNoWarm {
		st.Warm()
	}

	if serveWatch {
		go startBackgroundWatcher(ctx, st, cfg)
	}

	server := mcp.NewServer(st, version)
	return server.Run(ctx)
}

// startBackgroundWatcher keeps remembered files current until ctx is done.
func startBackgroundWatcher(ctx context.Context, st *memory.Store, cfg *config.Config) {
	w := watcher.New(st,
		watcher.WithDebounceTime(cfg.Watch.Debounce),
		watcher.WithIgnorePatterns(cfg.Ignore),
		watcher.WithEventCallback(func(event, path string) {
			log.Debug("Background watcher event", "event", event, "path", path)
		}),
	)

	if err := w.Start(ctx); err != nil && ctx.Err() == nil {
		log.Error("Watcher error", "error", err)
	}
}
