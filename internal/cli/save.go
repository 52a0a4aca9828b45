package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/nickcecere/vecmem/internal/config"
	"github.com/nickcecere/vecmem/internal/fs"
	"github.com/nickcecere/vecmem/internal/ui"
)

var (
	saveIgnore   []string
	saveNoExpand bool
	saveDryRun   bool
)

// saveCmd stores files in memory.
var saveCmd = &cobra.Command{
	Use:   "save <path>...",
	Short: "Save files to memory",
	Long: `Save PDF, text and markdown files to memory.

Directories are expanded into the documents they contain, honouring .gitignore
and the configured ignore patterns. Saving a file that is already in memory
replaces its previous content.

Examples:
  # Save two files
  vecmem save notes.md paper.pdf

  # Save every document under ./docs
  vecmem save ./docs

  # Preview which files a directory expands to
  vecmem save ./docs --dry-run`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSave,
}

func init() {
	saveCmd.Flags().StringSliceVarP(&saveIgnore, "ignore", "i", nil, "additional patterns to ignore when expanding directories")
	saveCmd.Flags().BoolVar(&saveNoExpand, "no-expand", false, "treat every argument as a file")
	saveCmd.Flags().BoolVarP(&saveDryRun, "dry-run", "d", false, "list the files that would be saved")
}

func runSave(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	out := cmd.OutOrStdout()

	paths := args
	if !saveNoExpand {
		expanded, err := fs.ExpandPaths(args, fs.WalkOptions{
			MaxFileSize:    int64(cfg.Ingest.MaxFileSize),
			IgnorePatterns: append(append([]string(nil), cfg.Ignore...), saveIgnore...),
			UseGitignore:   true,
			KnownOnly:      true,
		})
		if err != nil {
			return err
		}
		paths = expanded
	}

	log.Debug("Saving files", "arguments", len(args), "files", len(paths))

	if saveDryRun {
		fmt.Fprintln(out, ui.SectionTitle.Render("Files to save"))
		for _, p := range paths {
			fmt.Fprintf(out, "  %s\n", ui.FilePath.Render(p))
		}
		fmt.Fprintln(out, ui.Dim.Render(fmt.Sprintf("%d file(s)", len(paths))))
		return nil
	}

	if len(paths) == 0 {
		fmt.Fprintln(out, "No documents found.")
		fmt.Fprintln(out, ui.Dim.Render("Supported extensions: "+strings.Join(fs.SupportedExtensions(), " ")))
		return nil
	}

	ctx, cancel := signalContext()
	defer cancel()

	st, err := openMemory()
	if err != nil {
		return err
	}
	defer st.Close()

	stopSpinner := make(chan struct{})
	spinnerDone := make(chan struct{})
	go showSpinner(os.Stderr, fmt.Sprintf("Saving %d file(s)", len(paths)), stopSpinner, spinnerDone)

	result, err := st.Save(ctx, paths)

	close(stopSpinner)
	<-spinnerDone

	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("save failed: %w", err)
	}

	if result.SavedCount() > 0 {
		fmt.Fprintln(out, ui.Success.Render(fmt.Sprintf("Saved %d file(s)", result.SavedCount())))
		fmt.Fprintln(out, ui.Dim.Render(fmt.Sprintf("%d chunks stored, %d superseded", result.Chunks, result.Purged)))
	} else if len(result.Errors) == 0 {
		fmt.Fprintln(out, "No files to save.")
	}

	for _, fe := range result.Errors {
		fmt.Fprintf(out, "%s %s: %v\n", ui.Error.Render("failed"), fe.Path, fe.Err)
	}
	if result.SavedCount() == 0 && len(result.Errors) > 0 {
		return fmt.Errorf("no files were saved")
	}
	return nil
}

// showSpinner displays an animated spinner on w until stopCh is closed.
func showSpinner(w io.Writer, message string, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()
	defer close(doneCh)

	i := 0
	for {
		select {
		case <-stopCh:
			// Clear spinner line
			fmt.Fprint(w, "\r\033[2K")
			return
		case <-ticker.C:
			fmt.Fprintf(w, "\r%s %s", ui.Highlight.Render(frames[i]), message)
			i = (i + 1) % len(frames)
		}
	}
}
