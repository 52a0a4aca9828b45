package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/nickcecere/vecmem/internal/config"
	"github.com/nickcecere/vecmem/internal/ui"
	"github.com/nickcecere/vecmem/internal/watcher"
)

// watchCmd keeps remembered files current.
var watchCmd = &cobra.Command{
	Use:   "watch [dir]...",
	Short: "Re-save files when they change",
	Long: `Watch every remembered file and save it again when its content changes.
Files that are deleted from disk are forgotten.

Directories given as arguments are watched as well: new documents that appear
under them are saved automatically.

Examples:
  # Keep remembered files current
  vecmem watch

  # Also pick up new documents under ./docs
  vecmem watch ./docs`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	var roots []string
	for _, arg := range args {
		absPath, err := filepath.Abs(arg)
		if err != nil {
			return fmt.Errorf("failed to resolve path: %w", err)
		}
		info, err := os.Stat(absPath)
		if err != nil {
			return fmt.Errorf("path does not exist: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("path is not a directory: %s", absPath)
		}
		roots = append(roots, absPath)
	}

	cfg := config.Get()
	out := cmd.OutOrStdout()

	ctx, cancel := signalContext()
	defer cancel()

	st, err := openMemory()
	if err != nil {
		return err
	}
	defer st.Close()

	w := watcher.New(st,
		watcher.WithRoots(roots...),
		watcher.WithDebounceTime(cfg.Watch.Debounce),
		watcher.WithIgnorePatterns(cfg.Ignore),
		watcher.WithEventCallback(func(event, path string) {
			log.Debug("File event", "event", event, "path", path)
			switch event {
			case "save":
				fmt.Fprintf(out, "%s %s\n", ui.Success.Render("saved"), path)
			case "forget":
				fmt.Fprintf(out, "%s %s\n", ui.Warning.Render("forgot"), path)
			}
		}),
	)

	fmt.Fprintln(out, ui.Header.Render("Watching for Changes"))
	for _, r := range roots {
		fmt.Fprintf(out, "Directory: %s\n", r)
	}
	fmt.Fprintln(out, "Press Ctrl+C to stop.")
	fmt.Fprintln(out)

	if err := w.Start(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
